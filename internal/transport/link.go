package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zishang520/engine.io-client-go/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-go-parser/v2/parser"
)

// Transport names, in the order the client prefers them.
const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

const rootNamespace = "/"

var (
	errNamespaceClosed = errors.New("server disconnected the namespace")
	errBinaryEvent     = errors.New("binary events are not supported")
)

func transportCtor(name string) (engine.TransportCtor, bool) {
	switch name {
	case TransportWebsocket:
		return transports.WebSocket, true
	case TransportPolling:
		return transports.Polling, true
	default:
		return nil, false
	}
}

// link is one Engine.IO session pinned to a single transport plus the
// Socket.IO namespace handshake on top of it. Packets are decoded and
// dispatched on the engine's reader goroutine so delivery keeps the order the
// server wrote them in.
type link struct {
	transport string
	sock      engine.Socket
	enc       parser.Encoder
	dec       parser.Decoder
	dispatch  func(name string, payload json.RawMessage)
	discard   func(error)

	connected chan struct{}
	done      chan struct{}

	connectOnce sync.Once
	doneOnce    sync.Once
	err         error
	live        atomic.Bool
	closing     atomic.Bool

	// deliverMu is held while a handler runs so close can wait it out.
	deliverMu sync.Mutex
}

func newLink(transport string, dispatch func(string, json.RawMessage), discard func(error)) *link {
	p := parser.NewParser()
	return &link{
		transport: transport,
		enc:       p.NewEncoder(),
		dec:       p.NewDecoder(),
		dispatch:  dispatch,
		discard:   discard,
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// open builds the engine socket with listeners attached before Construct
// starts the transport, so no handshake outcome can be missed.
func (l *link) open(uri string, opts engine.SocketOptionsInterface) {
	_ = l.dec.On("decoded", func(args ...any) {
		if len(args) == 0 {
			return
		}
		if p, ok := args[0].(*parser.Packet); ok {
			l.onPacket(p)
		}
	})

	sock := engine.MakeSocket()
	l.sock = sock
	_ = sock.On("open", func(...any) {
		l.write(&parser.Packet{Type: parser.CONNECT, Nsp: rootNamespace})
	})
	_ = sock.On("data", func(args ...any) {
		if len(args) == 0 || l.closing.Load() {
			return
		}
		var err error
		switch v := args[0].(type) {
		case *types.StringBuffer:
			err = l.dec.Add(v.Clone())
		case string:
			err = l.dec.Add(v)
		default:
			err = errBinaryEvent
		}
		if err != nil {
			l.discard(err)
		}
	})
	_ = sock.On("close", func(args ...any) {
		l.finish(closeError(args))
	})
	sock.Construct(uri, opts)
}

func (l *link) onPacket(p *parser.Packet) {
	if p.Nsp != rootNamespace || l.closing.Load() {
		return
	}
	switch p.Type {
	case parser.CONNECT:
		l.connectOnce.Do(func() {
			l.live.Store(true)
			close(l.connected)
		})
	case parser.CONNECT_ERROR:
		l.finish(fmt.Errorf("%w: %s", ErrConnectRefused, connectErrorMessage(p.Data)))
	case parser.DISCONNECT:
		l.finish(errNamespaceClosed)
	case parser.EVENT:
		if !l.live.Load() {
			return
		}
		name, payload, err := eventPayload(p.Data)
		if err != nil {
			l.discard(err)
			return
		}
		l.deliverMu.Lock()
		defer l.deliverMu.Unlock()
		if l.closing.Load() {
			return
		}
		l.dispatch(name, payload)
	case parser.BINARY_EVENT:
		l.discard(errBinaryEvent)
	}
}

func (l *link) write(p *parser.Packet) {
	for _, buf := range l.enc.Encode(p) {
		l.sock.Write(buf, nil, nil)
	}
}

func (l *link) finish(err error) {
	l.doneOnce.Do(func() {
		l.err = err
		close(l.done)
	})
}

// Err is the reason the link ended. Valid once done is closed.
func (l *link) Err() error {
	<-l.done
	return l.err
}

// close leaves the namespace if it was joined and shuts the engine down.
// It waits for a running handler, and nothing is dispatched after it returns.
func (l *link) close() {
	l.deliverMu.Lock()
	first := l.closing.CompareAndSwap(false, true)
	l.deliverMu.Unlock()
	if !first {
		return
	}
	l.finish(ErrClosed)
	if l.live.Load() {
		l.write(&parser.Packet{Type: parser.DISCONNECT, Nsp: rootNamespace})
	}
	l.sock.Close()
	l.dec.Destroy()
}

func closeError(args []any) error {
	reason := "closed"
	if len(args) > 0 {
		if s, ok := args[0].(string); ok && s != "" {
			reason = s
		}
	}
	if len(args) > 1 {
		if err, ok := args[1].(error); ok && err != nil {
			return fmt.Errorf("%s: %w", reason, err)
		}
	}
	return errors.New(reason)
}

// eventPayload splits a decoded EVENT body into its name and first argument
// re-encoded as JSON. Missing arguments become JSON null.
func eventPayload(data any) (string, json.RawMessage, error) {
	args, ok := data.([]any)
	if !ok || len(args) == 0 {
		return "", nil, errors.New("event without a name")
	}
	name, ok := args[0].(string)
	if !ok {
		return "", nil, errors.New("event name is not a string")
	}
	if len(args) < 2 {
		return name, json.RawMessage("null"), nil
	}
	payload, err := json.Marshal(args[1])
	if err != nil {
		return "", nil, fmt.Errorf("event %q: %w", name, err)
	}
	return name, payload, nil
}

func connectErrorMessage(data any) string {
	switch v := data.(type) {
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		b, _ := json.Marshal(v)
		return string(b)
	case string:
		return strings.TrimSpace(v)
	default:
		return "connect error"
	}
}
