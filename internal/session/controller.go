// Package session owns the tunnel lifecycle. A single control loop holds
// all mutable state; callers talk to it through commands and read it
// through immutable snapshots, so there is exactly one writer and no
// locks around the state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"fastproxy/internal/descriptor"
	"fastproxy/internal/dns"
	"fastproxy/internal/models"
	"fastproxy/internal/secrets"
	"fastproxy/internal/vpn"
)

type Config struct {
	DNSTimeout   time.Duration
	StartTimeout time.Duration
	StopTimeout  time.Duration

	// Tun overrides the built-in tun defaults when set.
	Tun *models.TunConfig
}

func (c Config) withDefaults() Config {
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = 10 * time.Second
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 30 * time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	return c
}

// Recorder persists session events for the connection history.
type Recorder interface {
	RecordEvent(event models.SessionEvent) error
}

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	State           models.TunnelState
	Descriptor      *models.ConnectionDescriptor
	ResolvedAddress string
}

type Option func(*Controller)

func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg.withDefaults()
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithStateListener registers a callback invoked from the control loop
// on every state change. The callback must not call back into the
// controller.
func WithStateListener(fn func(models.TunnelState)) Option {
	return func(c *Controller) {
		c.listener = fn
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(c *Controller) {
		c.log = entry
	}
}

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdDisconnect
)

type command struct {
	kind  commandKind
	desc  *models.ConnectionDescriptor
	reply chan error
}

// outcome is what an establish worker hands back to the loop.
type outcome struct {
	desc     *models.ConnectionDescriptor
	resolved string
	err      error
}

type establishRun struct {
	cancel context.CancelFunc
	done   chan outcome
	reply  chan error
}

type Controller struct {
	cfg      Config
	resolver dns.Resolver
	store    secrets.Store
	provider vpn.Provider
	recorder Recorder
	listener func(models.TunnelState)
	log      *log.Entry

	cmds     chan command
	running  atomic.Bool
	snapshot atomic.Value

	// Owned by the control loop, never touched outside it.
	state    models.TunnelState
	active   *models.ConnectionDescriptor
	resolved string
	inflight *establishRun
}

func New(resolver dns.Resolver, store secrets.Store, provider vpn.Provider, opts ...Option) *Controller {
	c := &Controller{
		cfg:      Config{}.withDefaults(),
		resolver: resolver,
		store:    store,
		provider: provider,
		log:      log.WithField("component", "session"),
		cmds:     make(chan command),
		state:    models.StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish()
	return c
}

// Run drives the session until ctx is cancelled. It must be running for
// Connect and Disconnect to work.
func (c *Controller) Run(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	defer c.running.Store(false)

	statuses := c.provider.Statuses()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return

		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdConnect:
				c.handleConnect(ctx, cmd)
			case cmdDisconnect:
				c.handleDisconnect(cmd)
			}

		case out := <-c.inflightDone():
			run := c.inflight
			c.inflight = nil
			run.reply <- c.finishEstablish(out)

		case status, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			c.applyStatus(status)
		}
	}
}

// Running reports whether the control loop is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// inflightDone yields a nil channel when no attempt is in flight, which
// disables that select arm.
func (c *Controller) inflightDone() <-chan outcome {
	if c.inflight == nil {
		return nil
	}
	return c.inflight.done
}

// Connect parses raw and starts a connection attempt. It blocks until
// the attempt succeeds or fails.
func (c *Controller) Connect(ctx context.Context, raw string) error {
	desc, err := descriptor.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return c.ConnectDescriptor(ctx, desc)
}

func (c *Controller) ConnectDescriptor(ctx context.Context, desc *models.ConnectionDescriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	if desc.Username == "" || desc.Password == "" {
		return fmt.Errorf("%w: username and password must be non-empty", ErrInvalidCredentials)
	}
	return c.send(ctx, command{kind: cmdConnect, desc: desc})
}

// Disconnect tears the session down. It always leaves the session
// disconnected, even when parts of the teardown fail.
func (c *Controller) Disconnect(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdDisconnect})
}

// Status returns the current snapshot. Safe from any goroutine.
func (c *Controller) Status() Snapshot {
	if snap, ok := c.snapshot.Load().(Snapshot); ok {
		return snap
	}
	return Snapshot{State: models.StateDisconnected}
}

func (c *Controller) State() models.TunnelState {
	return c.Status().State
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	if !c.running.Load() {
		return ErrNotRunning
	}
	cmd.reply = make(chan error, 1)

	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrSystem, ctx.Err())
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrSystem, ctx.Err())
	}
}

func (c *Controller) handleConnect(ctx context.Context, cmd command) {
	if c.inflight != nil || (c.state != models.StateDisconnected && c.state != models.StateInvalid) {
		cmd.reply <- fmt.Errorf("%w: state %s", ErrAlreadyConnected, c.state)
		return
	}

	c.active = cmd.desc
	c.resolved = ""
	c.setState(models.StateConnecting)
	c.record(models.EventConnecting, "")

	runCtx, cancel := context.WithCancel(ctx)
	run := &establishRun{
		cancel: cancel,
		done:   make(chan outcome, 1),
		reply:  cmd.reply,
	}
	c.inflight = run

	go func() {
		resolved, err := c.establish(runCtx, cmd.desc)
		run.done <- outcome{desc: cmd.desc, resolved: resolved, err: err}
	}()
}

// establish runs off-loop. It owns steps that may block: DNS, the
// credential writes, config build and tunnel start.
func (c *Controller) establish(ctx context.Context, desc *models.ConnectionDescriptor) (string, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, c.cfg.DNSTimeout)
	resolved, err := c.resolver.LookupHost(resolveCtx, desc.Host)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", ErrConnectionFailed, desc.Host, err)
	}

	if err := secrets.StoreCredentials(c.store, desc.Username, desc.Password); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSystem, err)
	}

	cfg, err := vpn.BuildConfig(desc, resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTunnelSetupFailed, err)
	}
	if c.cfg.Tun != nil {
		cfg.Tun = *c.cfg.Tun
	}

	if err := c.provider.Apply(ctx, cfg); err != nil {
		var pse *vpn.ProxySettingsError
		if errors.As(err, &pse) {
			return "", fmt.Errorf("%w: %v", ErrProxySetupFailed, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTunnelSetupFailed, err)
	}

	startCtx, cancel := context.WithTimeout(ctx, c.cfg.StartTimeout)
	defer cancel()
	if err := c.provider.Start(startCtx); err != nil {
		return "", fmt.Errorf("%w: starting tunnel: %v", ErrConnectionFailed, err)
	}

	return resolved, nil
}

func (c *Controller) finishEstablish(out outcome) error {
	if out.err != nil {
		c.log.WithField("host", out.desc.Host).Errorf("Connect failed: %v", out.err)
		c.record(models.EventConnectFailed, out.err.Error())
		c.active = nil
		c.resolved = ""
		c.setState(models.StateDisconnected)
		return out.err
	}

	// The provider's connected notification moves the state to
	// Connected; until then the session stays Connecting.
	c.resolved = out.resolved
	c.publish()
	return nil
}

func (c *Controller) handleDisconnect(cmd command) {
	if c.inflight != nil {
		run := c.inflight
		c.inflight = nil
		run.cancel()
		out := <-run.done
		if out.err != nil {
			c.record(models.EventConnectFailed, out.err.Error())
		}
		run.reply <- out.err
	} else if c.state == models.StateDisconnected {
		cmd.reply <- nil
		return
	}

	c.setState(models.StateDisconnecting)

	stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.StopTimeout)
	err := c.provider.Stop(stopCtx)
	cancel()
	if err != nil {
		c.log.Warnf("Provider stop failed: %v", err)
	}

	c.record(models.EventDisconnected, "")
	c.active = nil
	c.resolved = ""
	c.setState(models.StateDisconnected)

	if err != nil {
		cmd.reply <- fmt.Errorf("%w: stopping tunnel: %v", ErrSystem, err)
	} else {
		cmd.reply <- nil
	}
}

// shutdown runs when the loop's context is cancelled: cancel any
// in-flight attempt, then tear the tunnel down best effort.
func (c *Controller) shutdown() {
	if c.inflight != nil {
		run := c.inflight
		c.inflight = nil
		run.cancel()
		out := <-run.done
		run.reply <- out.err
	}

	if c.state == models.StateDisconnected {
		return
	}

	c.setState(models.StateDisconnecting)

	stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.StopTimeout)
	if err := c.provider.Stop(stopCtx); err != nil {
		c.log.Warnf("Provider stop failed during shutdown: %v", err)
	}
	cancel()

	c.record(models.EventDisconnected, "shutdown")
	c.active = nil
	c.resolved = ""
	c.setState(models.StateDisconnected)
}

// applyStatus folds a provider notification into the session state.
// Notifications are last-write-wins; anything unknown maps to Invalid.
func (c *Controller) applyStatus(status vpn.Status) {
	next := StateFromStatus(status)
	if next == c.state {
		return
	}

	if next == models.StateConnected {
		c.record(models.EventConnected, "")
	}
	if next == models.StateDisconnected {
		c.active = nil
		c.resolved = ""
	}
	c.setState(next)
}

// StateFromStatus maps provider status values onto session states.
// Reasserting has no session equivalent and lands on Invalid with the
// rest of the unknowns.
func StateFromStatus(status vpn.Status) models.TunnelState {
	switch status {
	case vpn.StatusConnecting:
		return models.StateConnecting
	case vpn.StatusConnected:
		return models.StateConnected
	case vpn.StatusDisconnecting:
		return models.StateDisconnecting
	case vpn.StatusDisconnected:
		return models.StateDisconnected
	default:
		return models.StateInvalid
	}
}

func (c *Controller) setState(next models.TunnelState) {
	if c.state != next {
		c.log.WithFields(log.Fields{
			"from": c.state.String(),
			"to":   next.String(),
		}).Info("Session state changed")
		c.state = next
		if c.listener != nil {
			c.listener(next)
		}
	}
	c.publish()
}

func (c *Controller) publish() {
	snap := Snapshot{State: c.state, ResolvedAddress: c.resolved}
	if c.active != nil {
		d := *c.active
		snap.Descriptor = &d
	}
	c.snapshot.Store(snap)
}

func (c *Controller) record(event, detail string) {
	if c.recorder == nil {
		return
	}

	e := models.SessionEvent{
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if c.active != nil {
		e.Protocol = c.active.Protocol
		e.Host = c.active.Host
		e.Port = c.active.Port
		e.Username = c.active.Username
		e.ResolvedAddr = c.resolved
	}
	if err := c.recorder.RecordEvent(e); err != nil {
		c.log.Warnf("Failed to record session event: %v", err)
	}
}
