// Package probe verifies that an established session actually forwards
// traffic: it sends one request through the proxy and classifies what
// comes back.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"fastproxy/internal/models"
)

const (
	// DefaultTargetURL answers 204 with an empty body, which keeps the
	// probe cheap.
	DefaultTargetURL = "http://www.gstatic.com/generate_204"

	probeTimeout = 10 * time.Second
)

// ReachabilityError means the proxy endpoint could not be reached at
// all.
type ReachabilityError struct {
	Err error
}

func (e *ReachabilityError) Error() string {
	return "proxy unreachable: " + e.Err.Error()
}

func (e *ReachabilityError) Unwrap() error {
	return e.Err
}

// AuthenticationError means the proxy answered but rejected the
// credentials.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return "proxy rejected credentials: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Check sends one probe request through the proxy described by desc,
// using the already resolved address.
func Check(ctx context.Context, desc *models.ConnectionDescriptor, resolvedAddr, targetURL string) error {
	if desc == nil {
		return fmt.Errorf("nil descriptor")
	}
	if targetURL == "" {
		targetURL = DefaultTargetURL
	}

	switch desc.Protocol {
	case models.ProtocolSOCKS5:
		return checkSOCKS5(ctx, desc, resolvedAddr, targetURL)
	case models.ProtocolHTTP, models.ProtocolHTTPS:
		return checkHTTPProxy(ctx, desc, resolvedAddr, targetURL)
	default:
		return fmt.Errorf("no probe for protocol %s", desc.Protocol)
	}
}

func checkSOCKS5(ctx context.Context, desc *models.ConnectionDescriptor, addr, targetURL string) error {
	req, err := http.NewRequest(http.MethodHead, targetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	targetAddr := req.Host
	if _, _, err := net.SplitHostPort(targetAddr); err != nil {
		targetAddr = net.JoinHostPort(targetAddr, "80")
	}

	auth := &proxy.Auth{
		User:     desc.Username,
		Password: desc.Password,
	}
	proxyAddr := net.JoinHostPort(addr, strconv.Itoa(desc.Port))
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, proxy.Direct)
	if err != nil {
		return fmt.Errorf("failed to build SOCKS5 dialer: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var conn net.Conn
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", targetAddr)
	} else {
		conn, err = dialer.Dial("tcp", targetAddr)
	}
	if err != nil {
		// Credential rejections surface inside the dial handshake.
		if strings.Contains(err.Error(), "auth") {
			return &AuthenticationError{Err: err}
		}
		return &ReachabilityError{Err: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := req.Write(conn); err != nil {
		return &AuthenticationError{Err: err}
	}

	n, err := conn.Read(make([]byte, 1))
	if n == 0 && err != nil {
		return &AuthenticationError{Err: err}
	}
	return nil
}

func checkHTTPProxy(ctx context.Context, desc *models.ConnectionDescriptor, addr, targetURL string) error {
	scheme := "http"
	if desc.Protocol == models.ProtocolHTTPS {
		scheme = "https"
	}
	proxyURL := &url.URL{
		Scheme: scheme,
		User:   url.UserPassword(desc.Username, desc.Password),
		Host:   net.JoinHostPort(addr, strconv.Itoa(desc.Port)),
	}

	transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	client := &http.Client{
		Transport: transport,
		Timeout:   probeTimeout,
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ReachabilityError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusProxyAuthRequired {
		return &AuthenticationError{Err: fmt.Errorf("proxy returned %s", resp.Status)}
	}
	return nil
}
