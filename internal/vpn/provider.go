// Package vpn abstracts the OS VPN subsystem. A Provider receives a
// fully built tunnel configuration, starts and stops the tunnel, and
// reports status changes on a channel.
package vpn

import (
	"context"
	"errors"

	"fastproxy/internal/models"
)

// Status values mirror what the OS reports for a tunnel.
type Status string

const (
	StatusConnecting    Status = "connecting"
	StatusConnected     Status = "connected"
	StatusDisconnecting Status = "disconnecting"
	StatusDisconnected  Status = "disconnected"
	StatusInvalid       Status = "invalid"
	StatusReasserting   Status = "reasserting"
)

type Provider interface {
	// Apply validates and installs a tunnel configuration. It does not
	// start the tunnel.
	Apply(ctx context.Context, cfg *models.TunnelConfig) error

	// Start brings the applied tunnel up.
	Start(ctx context.Context) error

	// Stop tears the tunnel down. Safe to call when nothing is running.
	Stop(ctx context.Context) error

	// Statuses delivers status changes. The channel is owned by the
	// provider and is never closed while the provider is in use.
	Statuses() <-chan Status
}

// ProxySettingsError marks a configuration rejected because of its proxy
// forwarding settings, as opposed to the tunnel settings proper.
type ProxySettingsError struct {
	Err error
}

func (e *ProxySettingsError) Error() string {
	return "proxy settings: " + e.Err.Error()
}

func (e *ProxySettingsError) Unwrap() error {
	return e.Err
}

func validateConfig(cfg *models.TunnelConfig) error {
	if cfg == nil {
		return errors.New("nil tunnel config")
	}
	if cfg.ServerAddress == "" {
		return errors.New("empty server address")
	}
	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return errors.New("server port out of range")
	}
	if cfg.Proxy.Server == "" {
		return &ProxySettingsError{Err: errors.New("empty proxy server")}
	}
	if cfg.Proxy.Port < 1 || cfg.Proxy.Port > 65535 {
		return &ProxySettingsError{Err: errors.New("proxy port out of range")}
	}
	return nil
}
