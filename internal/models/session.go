package models

import "time"

type TunnelState int

const (
	StateDisconnected TunnelState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateInvalid
)

func (s TunnelState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "invalid"
	}
}

// Event kinds recorded in the session history.
const (
	EventConnecting    = "connecting"
	EventConnected     = "connected"
	EventConnectFailed = "connect_failed"
	EventDisconnected  = "disconnected"
)

// SessionEvent is one history entry. Events carry the username for
// display but never a password.
type SessionEvent struct {
	ID           int64     `json:"id"`
	Event        string    `json:"event"`
	Protocol     Protocol  `json:"protocol"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Username     string    `json:"username,omitempty"`
	ResolvedAddr string    `json:"resolved_addr,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
