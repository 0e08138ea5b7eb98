package vpn

import (
	"errors"
	"fmt"

	"fastproxy/internal/models"
	"fastproxy/internal/secrets"
)

var ErrUnsupportedProtocol = errors.New("unsupported protocol")

type builderFunc func(desc *models.ConnectionDescriptor, resolvedAddr string) *models.TunnelConfig

// configBuilders maps each proxy protocol to its tunnel family. SOCKS5
// gets the IKEv2 shape, plain and TLS HTTP get the IPSec shape.
var configBuilders = map[models.Protocol]builderFunc{
	models.ProtocolSOCKS5: buildIKEv2,
	models.ProtocolHTTP:   buildIPSec,
	models.ProtocolHTTPS:  buildIPSec,
}

// BuildConfig assembles the tunnel configuration for a descriptor whose
// host has already been resolved.
func BuildConfig(desc *models.ConnectionDescriptor, resolvedAddr string) (*models.TunnelConfig, error) {
	if desc == nil {
		return nil, errors.New("nil descriptor")
	}
	build, ok := configBuilders[desc.Protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, desc.Protocol)
	}
	return build(desc, resolvedAddr), nil
}

// baseConfig carries everything both families share: proxy forwarding to
// the resolved endpoint, catch-all DNS, credential references and the
// device defaults.
func baseConfig(desc *models.ConnectionDescriptor, resolvedAddr string) *models.TunnelConfig {
	return &models.TunnelConfig{
		ServerAddress:    resolvedAddr,
		ServerPort:       desc.Port,
		RemoteIdentifier: desc.Host,
		Username:         desc.Username,
		PasswordRef:      secrets.PasswordKey(desc.Username),
		SharedSecretRef:  secrets.SharedSecretKey(desc.Username),
		Proxy: models.ProxySettings{
			HTTPEnabled:  true,
			HTTPSEnabled: true,
			Server:       resolvedAddr,
			Port:         desc.Port,
		},
		DNS: models.DNSSettings{
			Servers: []string{resolvedAddr},
			// The single empty match domain routes every query through
			// the tunnel.
			MatchDomains: []string{""},
		},
		Tun: DefaultTunConfig(),
	}
}

func buildIKEv2(desc *models.ConnectionDescriptor, resolvedAddr string) *models.TunnelConfig {
	sa := models.SecurityAssociation{
		Cipher:    models.CipherAES256GCM,
		Integrity: models.IntegritySHA256,
		DHGroup:   models.DHGroup14,
		Lifetime:  models.SALifetime,
	}

	cfg := baseConfig(desc, resolvedAddr)
	cfg.Family = models.FamilyIKEv2
	cfg.IKE = &models.IKEParams{Main: sa, Child: sa}
	return cfg
}

func buildIPSec(desc *models.ConnectionDescriptor, resolvedAddr string) *models.TunnelConfig {
	cfg := baseConfig(desc, resolvedAddr)
	cfg.Family = models.FamilyIPSec
	cfg.ExtendedAuth = true
	return cfg
}

func DefaultTunConfig() models.TunConfig {
	return models.TunConfig{
		DeviceName: "fastproxy0",
		Address:    "10.8.0.2/24",
		Gateway:    "10.8.0.1",
		MTU:        1500,
		DNSServers: []string{"1.1.1.1", "8.8.8.8"},
	}
}
