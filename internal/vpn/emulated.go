package vpn

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"fastproxy/internal/models"
)

// Emulated is a provider that accepts configurations and reports status
// transitions without touching the host network. It is the default
// driver, and what the tests run against.
type Emulated struct {
	mu       sync.Mutex
	applied  *models.TunnelConfig
	started  bool
	statuses chan Status
}

func NewEmulated() *Emulated {
	return &Emulated{
		statuses: make(chan Status, 8),
	}
}

func (e *Emulated) Apply(_ context.Context, cfg *models.TunnelConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = cfg

	log.WithFields(log.Fields{
		"family": cfg.Family.String(),
		"server": cfg.ServerAddress,
		"port":   cfg.ServerPort,
	}).Info("Tunnel configuration applied")
	return nil
}

func (e *Emulated) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.applied == nil {
		return errors.New("no configuration applied")
	}
	e.started = true

	e.emit(StatusConnecting)
	e.emit(StatusConnected)
	return nil
}

func (e *Emulated) Stop(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	e.started = false

	e.emit(StatusDisconnecting)
	e.emit(StatusDisconnected)
	return nil
}

func (e *Emulated) Statuses() <-chan Status {
	return e.statuses
}

// emit never blocks; a full channel drops the signal on the floor,
// notifications are last-write-wins anyway.
func (e *Emulated) emit(s Status) {
	select {
	case e.statuses <- s:
	default:
	}
}

// LastConfig returns the most recently applied configuration.
func (e *Emulated) LastConfig() *models.TunnelConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}
