// Package session binds one push-channel connection to the reconciliation
// engine for a scoped lifetime. It owns the subscription list and tears it
// down on Close, after which nothing more reaches the store.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/events"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/state"
	"benchmark_dashboard/internal/transport"
)

const (
	connectedText    = "Connected to backend server"
	disconnectedText = "Disconnected from backend server"
)

// Stream is the subset of *transport.Conn a session drives.
type Stream interface {
	On(event string, fn transport.Handler) func()
	OnSignal(fn func(transport.Signal)) func()
	Connect(ctx context.Context) error
	Close() error
}

// Recorder receives lifecycle entries for the local journal.
type Recorder interface {
	Record(kind, message string, metadata any)
}

type Session struct {
	stream  Stream
	engine  *state.Engine
	alerts  alert.Alerter
	journal Recorder
	log     *logger.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	unsubs  []func()
}

// New builds a session. alerts and journal may be nil.
func New(stream Stream, engine *state.Engine, alerts alert.Alerter, journal Recorder, log *logger.Logger) *Session {
	return &Session{
		stream:  stream,
		engine:  engine,
		alerts:  alerts,
		journal: journal,
		log:     log.Component("session"),
	}
}

// Start subscribes to every data event and opens the connection.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return transport.ErrAlreadyRunning
	}
	if s.closed {
		s.mu.Unlock()
		return transport.ErrClosed
	}
	s.started = true
	for _, name := range events.Names {
		s.unsubs = append(s.unsubs, s.stream.On(name, func(payload json.RawMessage) {
			s.handleEvent(name, payload)
		}))
	}
	s.unsubs = append(s.unsubs, s.stream.OnSignal(s.handleSignal))
	s.mu.Unlock()

	return s.stream.Connect(ctx)
}

// Close tears the connection down. Events still in flight are dropped and the
// store is marked disconnected. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.stream.Close()

	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, off := range unsubs {
		off()
	}

	s.engine.SetConnected(false)
	return err
}

func (s *Session) handleEvent(name string, payload json.RawMessage) {
	ev, err := events.Decode(name, payload)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("event_rejected", "event", name, "error", err)
		}
		return
	}

	// Holding mu across Apply makes Close wait for an in-flight apply
	// and guarantees nothing is applied after it returns.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.engine.Apply(ev)
	if s.log != nil {
		s.log.Debugw("event_applied", "event", name, "version", s.engine.Store().Version())
	}
}

func (s *Session) handleSignal(sig transport.Signal) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	switch sig.Kind {
	case transport.SignalConnected:
		if closed {
			return
		}
		s.engine.SetConnected(true)
		s.alert(true, connectedText)
		s.record(models.JournalConnected, connectedText, map[string]any{"transport": sig.Transport})

	case transport.SignalDisconnected:
		s.engine.SetConnected(false)
		intentional := sig.Intentional || closed
		if !intentional {
			s.alert(false, disconnectedText)
		}
		meta := map[string]any{"transport": sig.Transport, "intentional": intentional}
		if sig.Err != nil && !intentional {
			meta["reason"] = sig.Err.Error()
		}
		s.record(models.JournalDisconnected, disconnectedText, meta)

	case transport.SignalConnectionError:
		// Reconnect attempts are expected while the backend restarts.
		if s.log != nil {
			s.log.Debugw("connection_attempt_failed", "error", sig.Err)
		}
	}
}

func (s *Session) alert(ok bool, text string) {
	if s.alerts == nil {
		return
	}
	if ok {
		s.alerts.Success(text)
	} else {
		s.alerts.Error(text)
	}
}

func (s *Session) record(kind, message string, meta any) {
	if s.journal != nil {
		s.journal.Record(kind, message, meta)
	}
}
