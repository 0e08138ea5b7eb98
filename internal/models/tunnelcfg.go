package models

import "time"

type TunnelFamily int

const (
	FamilyIKEv2 TunnelFamily = iota
	FamilyIPSec
)

func (f TunnelFamily) String() string {
	switch f {
	case FamilyIKEv2:
		return "ikev2"
	case FamilyIPSec:
		return "ipsec"
	default:
		return "unknown"
	}
}

// Security association parameters handed to the VPN subsystem. They are
// configured here, never negotiated.
const (
	CipherAES256GCM = "aes-256-gcm"
	IntegritySHA256 = "sha256"
	DHGroup14       = 14
	SALifetime      = 24 * time.Hour
)

type SecurityAssociation struct {
	Cipher    string        `json:"cipher"`
	Integrity string        `json:"integrity"`
	DHGroup   int           `json:"dh_group"`
	Lifetime  time.Duration `json:"lifetime"`
}

// IKEParams carries the security associations for the main and child
// negotiation phases.
type IKEParams struct {
	Main  SecurityAssociation `json:"main"`
	Child SecurityAssociation `json:"child"`
}

type ProxySettings struct {
	HTTPEnabled  bool   `json:"http_enabled"`
	HTTPSEnabled bool   `json:"https_enabled"`
	Server       string `json:"server"`
	Port         int    `json:"port"`
}

// DNSSettings force queries through the tunnel. A single empty match
// domain is the catch-all: every query goes through.
type DNSSettings struct {
	Servers      []string `json:"servers"`
	MatchDomains []string `json:"match_domains"`
}

type TunConfig struct {
	DeviceName string
	Address    string
	Gateway    string
	MTU        int
	DNSServers []string
}

// TunnelConfig is the fully assembled configuration submitted to a VPN
// provider: one protocol family plus the proxy forwarding, DNS and
// device settings shared by both families.
type TunnelConfig struct {
	Family           TunnelFamily  `json:"family"`
	ServerAddress    string        `json:"server_address"`
	ServerPort       int           `json:"server_port"`
	RemoteIdentifier string        `json:"remote_identifier"`
	Username         string        `json:"username"`
	PasswordRef      string        `json:"password_ref"`
	SharedSecretRef  string        `json:"shared_secret_ref"`
	ExtendedAuth     bool          `json:"extended_auth"`
	IKE              *IKEParams    `json:"ike,omitempty"`
	Proxy            ProxySettings `json:"proxy"`
	DNS              DNSSettings   `json:"dns"`
	Tun              TunConfig     `json:"tun"`
}
