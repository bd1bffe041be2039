// Package transport is the WebSocket multiplexer: one reader goroutine, one
// writer goroutine, and a pending-call table keyed by sequence id. It
// generalizes the teacher's internal/cdpcontrol/rawcdp.go from a
// single-purpose JS-evaluation client into a general CDP connection that the
// session router and target manager build on.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/zendriver-go/cdpwire"
	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// State is the connection lifecycle state.
type State int32

const (
	StateOpening State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventHandler receives decoded CDP events. sessionID is empty for
// browser-level events.
type EventHandler func(sessionID, method string, params json.RawMessage)

type pendingCall struct {
	result chan cdpwire.Frame
}

// Connection is a single WebSocket connection to a CDP endpoint, carrying
// possibly many flattened sessions. Only the reader goroutine ever deletes
// from the pending table; callers only insert and, on timeout/cancel,
// delete their own entry.
type Connection struct {
	wsURL string

	state atomic.Int32
	seq   atomic.Int64

	connMu sync.Mutex
	conn   netConn

	pendingMu sync.Mutex
	pending   map[int64]*pendingCall

	handlerMu sync.RWMutex
	handlers  []EventHandler

	writeCh  chan writeJob
	closedCh chan struct{}
	closeOnce sync.Once
}

// netConn is the subset of net.Conn the connection needs, kept narrow so
// tests can supply a fake. io.ReadWriteCloser already has this exact shape.
type netConn = io.ReadWriteCloser

type writeJob struct {
	data   []byte
	errCh  chan error
}

// Dial opens a WebSocket connection to wsURL and starts its reader and
// writer loops. The caller owns the returned Connection and must call
// Close when done with it.
func Dial(ctx context.Context, wsURL string) (*Connection, error) {
	c := &Connection{
		wsURL:    wsURL,
		pending:  make(map[int64]*pendingCall),
		writeCh:  make(chan writeJob, 64),
		closedCh: make(chan struct{}),
	}
	c.state.Store(int32(StateOpening))

	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, zerrors.New(zerrors.ConnectError, fmt.Sprintf("dial %s", wsURL), err)
	}
	c.conn = conn
	c.state.Store(int32(StateOpen))

	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

// NewOnStream wires a Connection directly onto an already-established
// full-duplex byte stream, skipping the WebSocket handshake Dial performs.
// Exported for this repo's own tests and for callers that terminate the
// handshake themselves (e.g. an in-process fake browser).
func NewOnStream(stream netConn) *Connection {
	c := &Connection{
		pending:  make(map[int64]*pendingCall),
		writeCh:  make(chan writeJob, 64),
		closedCh: make(chan struct{}),
		conn:     stream,
	}
	c.state.Store(int32(StateOpen))
	go c.readLoop()
	go c.writeLoop()
	return c
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// AddHandler registers a callback invoked for every decoded event on this
// connection, across all sessions. Handlers are called directly and
// synchronously on the reader goroutine, in event-arrival order.
func (c *Connection) AddHandler(h EventHandler) {
	c.handlerMu.Lock()
	c.handlers = append(c.handlers, h)
	c.handlerMu.Unlock()
}

// Send issues a CDP command and blocks for its reply, or until ctx is
// cancelled. sessionID is empty for browser-level commands.
func (c *Connection) Send(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	if c.State() != StateOpen {
		return nil, zerrors.ErrConnectionClosed
	}

	id := c.seq.Add(1)
	call := &pendingCall{result: make(chan cdpwire.Frame, 1)}

	c.pendingMu.Lock()
	c.pending[id] = call
	c.pendingMu.Unlock()

	data, err := cdpwire.Encode(cdpwire.Request{ID: id, Method: method, Params: params, SessionID: sessionID})
	if err != nil {
		c.deletePending(id)
		return nil, err
	}

	errCh := make(chan error, 1)
	select {
	case c.writeCh <- writeJob{data: data, errCh: errCh}:
	case <-ctx.Done():
		c.deletePending(id)
		return nil, zerrors.New(zerrors.Cancelled, "send cancelled before write", ctx.Err()).WithMethod(method)
	case <-c.closedCh:
		c.deletePending(id)
		return nil, zerrors.ErrConnectionClosed
	}

	select {
	case err := <-errCh:
		if err != nil {
			c.deletePending(id)
			return nil, zerrors.New(zerrors.ConnectionClosed, "write failed", err).WithMethod(method)
		}
	case <-ctx.Done():
		c.deletePending(id)
		return nil, zerrors.New(zerrors.Cancelled, "send cancelled", ctx.Err()).WithMethod(method)
	case <-c.closedCh:
		c.deletePending(id)
		return nil, zerrors.ErrConnectionClosed.WithMethod(method)
	}

	select {
	case frame, ok := <-call.result:
		if !ok {
			return nil, zerrors.ErrConnectionClosed.WithMethod(method)
		}
		if frame.Err != nil {
			return nil, frame.Err.WithMethod(method).WithSession(sessionID)
		}
		return frame.Result, nil
	case <-ctx.Done():
		c.deletePending(id)
		return nil, zerrors.New(zerrors.Timeout, "waiting for reply", ctx.Err()).WithMethod(method).WithSession(sessionID)
	case <-c.closedCh:
		return nil, zerrors.ErrConnectionClosed.WithMethod(method)
	}
}

func (c *Connection) deletePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// writeLoop serializes all outbound writes onto the single WebSocket
// connection, matching the teacher's pattern of guarding wsutil writes with
// a mutex but moving the serialization onto its own goroutine so Send
// callers never block each other on the network.
func (c *Connection) writeLoop() {
	for {
		select {
		case job := <-c.writeCh:
			c.connMu.Lock()
			err := wsutil.WriteClientText(c.conn, job.data)
			c.connMu.Unlock()
			job.errCh <- err
		case <-c.closedCh:
			return
		}
	}
}

// readLoop is the sole reader of the WebSocket connection. It decodes each
// inbound frame and either resolves a pending call or fans the event out to
// registered handlers. It is the only goroutine that deletes pending
// entries on the happy path.
func (c *Connection) readLoop() {
	defer c.shutdown()
	for {
		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			slog.Debug("transport: read loop exit", "error", err)
			return
		}

		frame, err := cdpwire.Decode(data)
		if err != nil {
			slog.Warn("transport: dropping malformed frame", "error", err)
			continue
		}

		if frame.IsReply {
			c.pendingMu.Lock()
			call, ok := c.pending[frame.ID]
			if ok {
				delete(c.pending, frame.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				call.result <- frame
			}
			continue
		}

		c.handlerMu.RLock()
		handlers := make([]EventHandler, len(c.handlers))
		copy(handlers, c.handlers)
		c.handlerMu.RUnlock()
		for _, h := range handlers {
			h(frame.SessionID, frame.Method, frame.Params)
		}
	}
}

// Close closes the underlying socket and unblocks every pending Send call
// with ErrConnectionClosed.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.closedCh)
		// Not under connMu: writeLoop holds it while blocked in a write,
		// and closing the socket is what unblocks that write.
		_ = c.conn.Close()
		c.state.Store(int32(StateClosed))
	})
	return nil
}

func (c *Connection) shutdown() {
	c.state.Store(int32(StateClosed))
	c.pendingMu.Lock()
	for id, call := range c.pending {
		close(call.result)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}
