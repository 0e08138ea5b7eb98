// Package tun manages the tunnel network device. The device only anchors
// addresses, routes and DNS; traffic forwarding happens in the proxy.
package tun

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/songgao/water"

	"fastproxy/internal/models"
)

type Device struct {
	iface *water.Interface
}

func NewDevice(name string) (*Device, error) {
	config := water.Config{
		DeviceType: water.TUN,
	}
	if runtime.GOOS != "windows" {
		config.Name = name
	}

	iface, err := water.New(config)
	if err != nil {
		return nil, err
	}

	return &Device{iface: iface}, nil
}

func (d *Device) Name() string {
	return d.iface.Name()
}

func (d *Device) Configure(cfg models.TunConfig) error {
	switch runtime.GOOS {
	case "linux":
		return d.configureLinux(cfg.Address, cfg.Gateway, cfg.MTU)
	case "darwin":
		return d.configureDarwin(cfg.Address, cfg.Gateway, cfg.MTU)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

func (d *Device) configureLinux(address, gateway string, mtu int) error {
	if err := run("ip", "addr", "add", address, "dev", d.iface.Name()); err != nil {
		return fmt.Errorf("failed to set IP address: %w", err)
	}

	if err := run("ip", "link", "set", "dev", d.iface.Name(), "mtu", strconv.Itoa(mtu)); err != nil {
		return fmt.Errorf("failed to set MTU: %w", err)
	}

	if err := run("ip", "link", "set", "dev", d.iface.Name(), "up"); err != nil {
		return fmt.Errorf("failed to bring up interface: %w", err)
	}

	if err := run("ip", "route", "add", "default", "via", gateway, "dev", d.iface.Name()); err != nil {
		return fmt.Errorf("failed to add default route: %w", err)
	}

	return nil
}

func (d *Device) configureDarwin(address, gateway string, mtu int) error {
	local := strings.Split(address, "/")[0]

	if err := run("ifconfig", d.iface.Name(), "inet", local, gateway); err != nil {
		return fmt.Errorf("failed to set IP address: %w", err)
	}

	if err := run("ifconfig", d.iface.Name(), "mtu", strconv.Itoa(mtu)); err != nil {
		return fmt.Errorf("failed to set MTU: %w", err)
	}

	if err := run("route", "add", "default", gateway); err != nil {
		return fmt.Errorf("failed to add default route: %w", err)
	}

	return nil
}

// SetDNS points the system resolver at the tunnel. The "~." routing
// domain makes the device the default for every query.
func (d *Device) SetDNS(servers []string) error {
	if len(servers) == 0 {
		return nil
	}
	if runtime.GOOS != "linux" {
		log.Debugf("DNS configuration not implemented on %s", runtime.GOOS)
		return nil
	}

	args := append([]string{"dns", d.iface.Name()}, servers...)
	if err := run("resolvectl", args...); err != nil {
		return fmt.Errorf("failed to set DNS servers: %w", err)
	}

	if err := run("resolvectl", "domain", d.iface.Name(), "~."); err != nil {
		return fmt.Errorf("failed to set DNS routing domain: %w", err)
	}

	return nil
}

func (d *Device) Close() error {
	if d.iface == nil {
		return nil
	}
	return d.iface.Close()
}

func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
