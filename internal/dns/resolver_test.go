package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookup(t *testing.T, fn func(ctx context.Context, host string) ([]string, error)) {
	t.Helper()
	orig := lookupHost
	lookupHost = func(ctx context.Context, _ *net.Resolver, host string) ([]string, error) {
		return fn(ctx, host)
	}
	t.Cleanup(func() { lookupHost = orig })
}

func TestLookupHostPassesThroughIPLiterals(t *testing.T) {
	stubLookup(t, func(context.Context, string) ([]string, error) {
		t.Fatal("resolver must not be called for IP literals")
		return nil, nil
	})

	r := NewSystemResolver(time.Second)

	addr, err := r.LookupHost(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", addr)

	addr, err = r.LookupHost(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", addr)
}

func TestLookupHostResolvesName(t *testing.T) {
	stubLookup(t, func(_ context.Context, host string) ([]string, error) {
		assert.Equal(t, "proxy.example.com", host)
		return []string{"203.0.113.7"}, nil
	})

	r := NewSystemResolver(time.Second)
	addr, err := r.LookupHost(context.Background(), "proxy.example.com")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", addr)
}

func TestLookupHostPrefersIPv4(t *testing.T) {
	stubLookup(t, func(context.Context, string) ([]string, error) {
		return []string{"2001:db8::1", "203.0.113.7", "203.0.113.8"}, nil
	})

	r := NewSystemResolver(time.Second)
	addr, err := r.LookupHost(context.Background(), "proxy.example.com")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", addr)
}

func TestLookupHostIPv6Only(t *testing.T) {
	stubLookup(t, func(context.Context, string) ([]string, error) {
		return []string{"2001:db8::1"}, nil
	})

	r := NewSystemResolver(time.Second)
	addr, err := r.LookupHost(context.Background(), "proxy.example.com")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", addr)
}

func TestLookupHostFailure(t *testing.T) {
	boom := errors.New("no such host")
	stubLookup(t, func(context.Context, string) ([]string, error) {
		return nil, boom
	})

	r := NewSystemResolver(time.Second)
	_, err := r.LookupHost(context.Background(), "missing.example.com")
	assert.ErrorIs(t, err, boom)
}

func TestLookupHostEmptyAnswer(t *testing.T) {
	stubLookup(t, func(context.Context, string) ([]string, error) {
		return nil, nil
	})

	r := NewSystemResolver(time.Second)
	_, err := r.LookupHost(context.Background(), "proxy.example.com")
	assert.Error(t, err)
}

func TestLookupHostEmptyHost(t *testing.T) {
	r := NewSystemResolver(time.Second)
	_, err := r.LookupHost(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyHost)
}

func TestLookupHostHonorsContext(t *testing.T) {
	stubLookup(t, func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	r := NewSystemResolver(50 * time.Millisecond)
	start := time.Now()
	_, err := r.LookupHost(context.Background(), "slow.example.com")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
