package session

import "errors"

// Connection failures are classified so callers can distinguish bad
// input from environment trouble.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrTunnelSetupFailed    = errors.New("tunnel setup failed")
	ErrProxySetupFailed     = errors.New("proxy setup failed")
	ErrSystem               = errors.New("system error")

	ErrAlreadyConnected = errors.New("session already active")
	ErrNotRunning       = errors.New("session controller not running")
)
