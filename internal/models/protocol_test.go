package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocol(t *testing.T) {
	cases := map[string]Protocol{
		"http":   ProtocolHTTP,
		"https":  ProtocolHTTPS,
		"socks5": ProtocolSOCKS5,
		"HTTP":   ProtocolHTTP,
		"SoCkS5": ProtocolSOCKS5,
	}
	for in, want := range cases {
		got, err := ParseProtocol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseProtocolRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "ftp", "socks", "socks4", "httpx"} {
		_, err := ParseProtocol(in)
		assert.ErrorIs(t, err, ErrInvalidProtocol, in)
	}
}

func TestProtocolString(t *testing.T) {
	assert.Equal(t, "http", ProtocolHTTP.String())
	assert.Equal(t, "https", ProtocolHTTPS.String())
	assert.Equal(t, "socks5", ProtocolSOCKS5.String())
	assert.Equal(t, "unknown", Protocol(42).String())
}

func TestProtocolJSONRoundTrip(t *testing.T) {
	var p Protocol
	err := p.UnmarshalJSON([]byte(`"socks5"`))
	require.NoError(t, err)
	assert.Equal(t, ProtocolSOCKS5, p)

	b, err := ProtocolHTTPS.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"https"`, string(b))
}

func TestDescriptorEndpoint(t *testing.T) {
	d := ConnectionDescriptor{Protocol: ProtocolSOCKS5, Host: "proxy.example.com", Port: 1080}
	assert.Equal(t, "proxy.example.com:1080", d.Endpoint())
}

func TestDescriptorRedactedHidesPassword(t *testing.T) {
	d := ConnectionDescriptor{
		Protocol: ProtocolHTTP,
		Host:     "h",
		Port:     8080,
		Username: "alice",
		Password: "hunter2",
	}
	r := d.Redacted()
	assert.Equal(t, "http://alice:***@h:8080", r)
	assert.NotContains(t, r, "hunter2")
}

func TestTunnelStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnecting", StateDisconnecting.String())
	assert.Equal(t, "invalid", StateInvalid.String())
}
