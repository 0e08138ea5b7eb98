package vpn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastproxy/internal/models"
)

func testDescriptor(proto models.Protocol) *models.ConnectionDescriptor {
	return &models.ConnectionDescriptor{
		Protocol: proto,
		Host:     "proxy.example.com",
		Port:     1080,
		Username: "alice",
		Password: "hunter2",
	}
}

func TestBuildConfigSOCKS5UsesIKEv2(t *testing.T) {
	cfg, err := BuildConfig(testDescriptor(models.ProtocolSOCKS5), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, models.FamilyIKEv2, cfg.Family)
	assert.False(t, cfg.ExtendedAuth)
	require.NotNil(t, cfg.IKE)

	for _, sa := range []models.SecurityAssociation{cfg.IKE.Main, cfg.IKE.Child} {
		assert.Equal(t, "aes-256-gcm", sa.Cipher)
		assert.Equal(t, "sha256", sa.Integrity)
		assert.Equal(t, 14, sa.DHGroup)
		assert.Equal(t, 24*time.Hour, sa.Lifetime)
	}
}

func TestBuildConfigHTTPFamilies(t *testing.T) {
	for _, proto := range []models.Protocol{models.ProtocolHTTP, models.ProtocolHTTPS} {
		cfg, err := BuildConfig(testDescriptor(proto), "203.0.113.7")
		require.NoError(t, err, proto.String())

		assert.Equal(t, models.FamilyIPSec, cfg.Family, proto.String())
		assert.True(t, cfg.ExtendedAuth, proto.String())
		assert.Nil(t, cfg.IKE, proto.String())
	}
}

func TestBuildConfigCommonFields(t *testing.T) {
	desc := testDescriptor(models.ProtocolSOCKS5)
	cfg, err := BuildConfig(desc, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.7", cfg.ServerAddress)
	assert.Equal(t, 1080, cfg.ServerPort)
	assert.Equal(t, "proxy.example.com", cfg.RemoteIdentifier)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "password:alice", cfg.PasswordRef)
	assert.Equal(t, "shared_secret:alice", cfg.SharedSecretRef)
}

func TestBuildConfigProxyForwarding(t *testing.T) {
	cfg, err := BuildConfig(testDescriptor(models.ProtocolHTTP), "203.0.113.7")
	require.NoError(t, err)

	assert.True(t, cfg.Proxy.HTTPEnabled)
	assert.True(t, cfg.Proxy.HTTPSEnabled)
	assert.Equal(t, "203.0.113.7", cfg.Proxy.Server)
	assert.Equal(t, 1080, cfg.Proxy.Port)
}

func TestBuildConfigDNSCatchAll(t *testing.T) {
	cfg, err := BuildConfig(testDescriptor(models.ProtocolSOCKS5), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, []string{""}, cfg.DNS.MatchDomains)
	assert.NotEmpty(t, cfg.DNS.Servers)
}

func TestBuildConfigNeverHoldsPassword(t *testing.T) {
	cfg, err := BuildConfig(testDescriptor(models.ProtocolSOCKS5), "203.0.113.7")
	require.NoError(t, err)

	// The config references secrets by key, the password itself stays in
	// the secret store.
	assert.NotContains(t, cfg.PasswordRef, "hunter2")
	assert.NotContains(t, cfg.SharedSecretRef, "hunter2")
}

func TestBuildConfigUnknownProtocol(t *testing.T) {
	_, err := BuildConfig(testDescriptor(models.Protocol(42)), "203.0.113.7")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)

	_, err = BuildConfig(nil, "203.0.113.7")
	assert.Error(t, err)
}
