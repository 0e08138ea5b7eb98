package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastproxy/internal/models"
	"fastproxy/pkg/testhelper"
)

func httpProxyDescriptor(t *testing.T, serverURL string) (*models.ConnectionDescriptor, string) {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return &models.ConnectionDescriptor{
		Protocol: models.ProtocolHTTP,
		Host:     u.Hostname(),
		Port:     port,
		Username: "alice",
		Password: "hunter2",
	}, u.Hostname()
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestCheckHTTPProxy(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		sawAuth = r.Header.Get("Proxy-Authorization") != ""
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	desc, addr := httpProxyDescriptor(t, srv.URL)
	require.NoError(t, Check(context.Background(), desc, addr, "http://probe-target.invalid/generate_204"))
	assert.True(t, sawAuth, "probe must forward proxy credentials")
}

func TestCheckHTTPProxyDefaultTarget(t *testing.T) {
	// The proxy answers directly, so the default target is never dialed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	desc, addr := httpProxyDescriptor(t, srv.URL)
	assert.NoError(t, Check(context.Background(), desc, addr, ""))
}

func TestCheckHTTPProxyRejectsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer srv.Close()

	desc, addr := httpProxyDescriptor(t, srv.URL)
	err := Check(context.Background(), desc, addr, "http://probe-target.invalid/generate_204")
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestCheckHTTPProxyUnreachable(t *testing.T) {
	desc := &models.ConnectionDescriptor{
		Protocol: models.ProtocolHTTP,
		Host:     "127.0.0.1",
		Port:     closedPort(t),
		Username: "alice",
		Password: "hunter2",
	}

	err := Check(context.Background(), desc, "127.0.0.1", "http://probe-target.invalid/generate_204")
	require.Error(t, err)

	var reachErr *ReachabilityError
	assert.ErrorAs(t, err, &reachErr)
}

func TestCheckSOCKS5Unreachable(t *testing.T) {
	desc := &models.ConnectionDescriptor{
		Protocol: models.ProtocolSOCKS5,
		Host:     "127.0.0.1",
		Port:     closedPort(t),
		Username: "alice",
		Password: "hunter2",
	}

	err := Check(context.Background(), desc, "127.0.0.1", "http://probe-target.invalid/generate_204")
	require.Error(t, err)

	var reachErr *ReachabilityError
	assert.ErrorAs(t, err, &reachErr)
}

func TestCheckUnknownProtocol(t *testing.T) {
	desc := &models.ConnectionDescriptor{
		Protocol: models.Protocol(42),
		Host:     "h",
		Port:     1080,
		Username: "u",
		Password: "p",
	}
	assert.Error(t, Check(context.Background(), desc, "127.0.0.1", ""))
	assert.Error(t, Check(context.Background(), nil, "127.0.0.1", ""))
}

func TestCheckSOCKS5Integration(t *testing.T) {
	if !testhelper.IsIntegration() {
		t.Skip("TEST_INTEGRATION != true, skipping docker-backed test")
	}

	pool := testhelper.StartDockerPool()
	resource := testhelper.StartDockerInstance(pool, "serjs/go-socks5-proxy", "latest",
		func(res *dockertest.Resource) error {
			conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", res.GetPort("1080/tcp")))
			if err != nil {
				return err
			}
			return conn.Close()
		},
		"PROXY_USER=alice", "PROXY_PASSWORD=hunter2",
	)

	port, err := strconv.Atoi(resource.GetPort("1080/tcp"))
	require.NoError(t, err)

	good := &models.ConnectionDescriptor{
		Protocol: models.ProtocolSOCKS5,
		Host:     "127.0.0.1",
		Port:     port,
		Username: "alice",
		Password: "hunter2",
	}
	assert.NoError(t, Check(context.Background(), good, "127.0.0.1", ""))

	bad := *good
	bad.Password = "wrong"
	err = Check(context.Background(), &bad, "127.0.0.1", "")
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}
