// Package dns resolves proxy hostnames before tunnel setup.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultTimeout = 10 * time.Second

var ErrEmptyHost = errors.New("empty host")

// lookupHost is swappable in tests.
var lookupHost = func(ctx context.Context, r *net.Resolver, host string) ([]string, error) {
	return r.LookupHost(ctx, host)
}

type Resolver interface {
	// LookupHost resolves host to a single address. IP literals pass
	// through untouched.
	LookupHost(ctx context.Context, host string) (string, error)
}

type SystemResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

func NewSystemResolver(timeout time.Duration) *SystemResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SystemResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
	}
}

func (r *SystemResolver) LookupHost(ctx context.Context, host string) (string, error) {
	if host == "" {
		return "", ErrEmptyHost
	}

	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := lookupHost(ctx, r.resolver, host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}

	addr := pickAddress(addrs)
	log.WithFields(log.Fields{
		"host": host,
		"addr": addr,
	}).Debug("Resolved proxy host")
	return addr, nil
}

// pickAddress prefers the first IPv4 address, falling back to whatever
// came first.
func pickAddress(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	return addrs[0]
}
