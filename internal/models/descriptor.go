package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidProtocol is returned when a scheme does not name a supported
// proxy protocol.
var ErrInvalidProtocol = errors.New("invalid protocol")

type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolHTTPS
	ProtocolSOCKS5
)

// ParseProtocol resolves a scheme name, case-insensitively, to a
// Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "http":
		return ProtocolHTTP, nil
	case "https":
		return ProtocolHTTPS, nil
	case "socks5":
		return ProtocolSOCKS5, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidProtocol, s)
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	case ProtocolHTTPS:
		return "https"
	case ProtocolSOCKS5:
		return "socks5"
	default:
		return "unknown"
	}
}

func (p Protocol) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Protocol) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseProtocol(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ConnectionDescriptor is the parsed form of a user-supplied connection
// string. It is either fully populated or never produced; the password
// is kept out of any serialized form.
type ConnectionDescriptor struct {
	Protocol Protocol `json:"protocol"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"-"`
}

// Endpoint returns the host:port pair of the proxy server.
func (d ConnectionDescriptor) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Redacted renders the descriptor with the password masked, safe for
// logs and persisted state.
func (d ConnectionDescriptor) Redacted() string {
	return fmt.Sprintf("%s://%s:***@%s:%d", d.Protocol, d.Username, d.Host, d.Port)
}
