package vpn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"fastproxy/internal/models"
	"fastproxy/internal/tun"
)

// System drives a real TUN device. It needs root (or CAP_NET_ADMIN) and
// is selected with the "system" provider driver.
type System struct {
	mu       sync.Mutex
	applied  *models.TunnelConfig
	device   *tun.Device
	statuses chan Status
}

func NewSystem() *System {
	return &System{
		statuses: make(chan Status, 8),
	}
}

func (s *System) Apply(_ context.Context, cfg *models.TunnelConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return errors.New("tunnel already running")
	}
	s.applied = cfg
	return nil
}

func (s *System) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied == nil {
		return errors.New("no configuration applied")
	}
	if s.device != nil {
		return errors.New("tunnel already running")
	}

	device, err := tun.NewDevice(s.applied.Tun.DeviceName)
	if err != nil {
		return fmt.Errorf("failed to create tun device: %w", err)
	}
	s.emit(StatusConnecting)

	if err := device.Configure(s.applied.Tun); err != nil {
		device.Close()
		s.emit(StatusDisconnected)
		return fmt.Errorf("failed to configure tun device: %w", err)
	}

	if err := device.SetDNS(s.applied.Tun.DNSServers); err != nil {
		// DNS push is best effort, the tunnel still works without it.
		log.Warnf("Failed to set DNS servers: %v", err)
	}

	s.device = device
	log.WithFields(log.Fields{
		"device": device.Name(),
		"server": s.applied.ServerAddress,
	}).Info("Tunnel started")

	s.emit(StatusConnected)
	return nil
}

func (s *System) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return nil
	}
	s.emit(StatusDisconnecting)

	err := s.device.Close()
	s.device = nil
	s.applied = nil
	s.emit(StatusDisconnected)

	if err != nil {
		return fmt.Errorf("failed to close tun device: %w", err)
	}
	return nil
}

func (s *System) Statuses() <-chan Status {
	return s.statuses
}

func (s *System) emit(status Status) {
	select {
	case s.statuses <- status:
	default:
	}
}
