// Package transport keeps one persistent Socket.IO connection to the
// benchmark backend. Engine.IO sessions and packet coding come from the
// zishang520 client libraries; this package picks the transport (websocket
// first, then HTTP long-polling), reconnects with exponential backoff after
// unexpected drops, and delivers named events to subscribed handlers.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"benchmark_dashboard/internal/logger"

	"github.com/cenkalti/backoff/v5"
	"github.com/zishang520/engine.io-client-go/engine"
	"github.com/zishang520/engine.io/v2/types"
)

var (
	ErrClosed         = errors.New("transport: connection closed")
	ErrAlreadyRunning = errors.New("transport: already connected")
	ErrConnectRefused = errors.New("transport: connect refused")
	ErrNoTransport    = errors.New("transport: no usable transport")

	ErrHandshakeTimeout = errors.New("transport: handshake timed out")
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type SignalKind string

const (
	SignalConnected       SignalKind = "connected"
	SignalDisconnected    SignalKind = "disconnected"
	SignalConnectionError SignalKind = "connection_error"
)

// Signal reports a lifecycle transition. Intentional is set on the
// Disconnected signal that follows Close or context cancellation.
type Signal struct {
	Kind        SignalKind
	Transport   string
	Intentional bool
	Err         error
}

// Handler receives the first argument of a server event.
type Handler func(payload json.RawMessage)

type Config struct {
	URL  string
	Path string

	Transports []string

	Reconnect            bool
	ReconnectMaxAttempts int // 0 means unlimited
	ReconnectDelay       time.Duration
	ReconnectDelayMax    time.Duration

	HandshakeTimeout time.Duration
	Header           http.Header
}

func (c *Config) setDefaults() {
	if c.Path == "" {
		c.Path = "/socket.io/"
	}
	if len(c.Transports) == 0 {
		c.Transports = []string{TransportWebsocket, TransportPolling}
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.ReconnectDelayMax <= 0 {
		c.ReconnectDelayMax = 5 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 20 * time.Second
	}
}

type subscription struct {
	id uint64
	fn Handler
}

type signalSub struct {
	id uint64
	fn func(Signal)
}

// Conn is a reconnecting Socket.IO client. Event handlers run on the
// transport's reader goroutine one at a time, in the order the server sent
// the events.
type Conn struct {
	cfg  Config
	path string
	log  *logger.Logger

	mu       sync.Mutex
	state    State
	nextID   uint64
	handlers map[string][]subscription
	signals  []signalSub
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(cfg Config, log *logger.Logger) (*Conn, error) {
	cfg.setDefaults()
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", cfg.URL)
	}
	for _, t := range cfg.Transports {
		if _, ok := transportCtor(t); !ok {
			return nil, fmt.Errorf("unknown transport %q", t)
		}
	}
	return &Conn{
		cfg:      cfg,
		path:     strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		log:      log.Component("transport"),
		handlers: make(map[string][]subscription),
	}, nil
}

// On subscribes fn to a named server event. The returned func unsubscribes.
func (c *Conn) On(event string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], subscription{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.handlers[event]
		for i, s := range subs {
			if s.id == id {
				c.handlers[event] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(c.handlers[event]) == 0 {
			delete(c.handlers, event)
		}
	}
}

// OnSignal subscribes fn to lifecycle signals. The returned func unsubscribes.
func (c *Conn) OnSignal(fn func(Signal)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.signals = append(c.signals, signalSub{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.signals {
			if s.id == id {
				c.signals = append(c.signals[:i:i], c.signals[i+1:]...)
				return
			}
		}
	}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) Connected() bool { return c.State() == StateConnected }

// Connect starts the connection loop and returns immediately. The loop runs
// until ctx is cancelled, Close is called, or reconnection gives up.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = StateConnecting
	go c.run(runCtx, c.done)
	return nil
}

// Close tears the connection down and waits for the loop to exit.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed when the current connection loop exits.
func (c *Conn) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Conn) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.state = StateDisconnected
		c.cancel = nil
		c.mu.Unlock()
		close(done)
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectDelay
	bo.MaxInterval = c.cfg.ReconnectDelayMax
	bo.Reset()

	attempts := 0
	for {
		c.setState(StateConnecting)
		l, err := c.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if c.log != nil {
				c.log.Warnw("connection_error", "error", err, "attempt", attempts+1)
			}
			c.emit(Signal{Kind: SignalConnectionError, Err: err})
		} else {
			attempts = 0
			bo.Reset()
			c.setState(StateConnected)
			if c.log != nil {
				c.log.Infow("transport_connected", "transport", l.transport, "sid", l.sock.Id())
			}
			c.emit(Signal{Kind: SignalConnected, Transport: l.transport})

			err = c.serve(ctx, l)
			l.close()

			intentional := ctx.Err() != nil
			c.setState(StateDisconnected)
			if c.log != nil {
				c.log.Infow("transport_disconnected", "transport", l.transport, "intentional", intentional, "reason", err)
			}
			c.emit(Signal{Kind: SignalDisconnected, Transport: l.transport, Intentional: intentional, Err: err})
			if intentional {
				return
			}
		}

		if !c.cfg.Reconnect {
			return
		}
		attempts++
		if c.cfg.ReconnectMaxAttempts > 0 && attempts > c.cfg.ReconnectMaxAttempts {
			if c.log != nil {
				c.log.Errorw("reconnect_gave_up", "attempts", attempts-1)
			}
			return
		}

		wait := bo.NextBackOff()
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// open tries each configured transport in order and completes the
// Socket.IO namespace handshake on the first one that answers. A refused
// namespace connect is final for the attempt.
func (c *Conn) open(ctx context.Context) (*link, error) {
	var errs []error
	for _, name := range c.cfg.Transports {
		l := c.dial(name)
		timer := time.NewTimer(c.cfg.HandshakeTimeout)
		select {
		case <-l.connected:
			timer.Stop()
			return l, nil
		case <-l.done:
			timer.Stop()
			err := l.Err()
			l.close()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			if errors.Is(err, ErrConnectRefused) {
				return nil, errors.Join(errs...)
			}
		case <-timer.C:
			l.close()
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrHandshakeTimeout))
		case <-ctx.Done():
			timer.Stop()
			l.close()
			return nil, ctx.Err()
		}
	}
	if len(errs) == 0 {
		return nil, ErrNoTransport
	}
	return nil, errors.Join(errs...)
}

func (c *Conn) dial(name string) *link {
	l := newLink(name, c.dispatch, func(err error) {
		if c.log != nil {
			c.log.Warnw("event_dropped", "transport", name, "error", err)
		}
	})
	ctor, _ := transportCtor(name)

	opts := engine.DefaultSocketOptions()
	opts.SetPath(c.path)
	opts.SetTransports(types.NewSet(ctor))
	opts.SetUpgrade(false)
	opts.SetRequestTimeout(c.cfg.HandshakeTimeout)
	if len(c.cfg.Header) > 0 {
		opts.SetExtraHeaders(c.cfg.Header.Clone())
	}
	l.open(c.cfg.URL, opts)
	return l
}

// serve blocks until the link drops or ctx ends.
func (c *Conn) serve(ctx context.Context, l *link) error {
	select {
	case <-l.done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) dispatch(name string, payload json.RawMessage) {
	c.mu.Lock()
	subs := append([]subscription(nil), c.handlers[name]...)
	c.mu.Unlock()
	for _, s := range subs {
		c.call(name, func() { s.fn(payload) })
	}
}

func (c *Conn) emit(sig Signal) {
	c.mu.Lock()
	subs := append([]signalSub(nil), c.signals...)
	c.mu.Unlock()
	for _, s := range subs {
		c.call(string(sig.Kind), func() { s.fn(sig) })
	}
}

// call isolates the reader goroutine from panicking subscribers.
func (c *Conn) call(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil && c.log != nil {
			c.log.Errorw("handler_panic", "event", name, "panic", r)
		}
	}()
	fn()
}
