// Package fetchintercept is the request/fetch interception layer (C7): it
// turns Fetch.requestPaused events into ordered handler dispatch, where the
// first registered handler to resolve a request wins and every request is
// guaranteed a resolution, either by a handler or by a mandatory
// auto-continue deadline. Grounded in rawcdp.go's registerEventHandler/
// dispatchEvent pattern, generalized from "fire every handler" to "first
// handler to claim it wins" plus resolution bookkeeping.
package fetchintercept

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	cdpfetch "github.com/dgnsrekt/zendriver-go/cdpwire/fetch"
	cdptarget "github.com/dgnsrekt/zendriver-go/cdpwire/target"
	"github.com/dgnsrekt/zendriver-go/eventbus"
	"github.com/dgnsrekt/zendriver-go/transport"
	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// DefaultAutoContinueDeadline is how long a paused request waits for a
// handler to resolve it before the interceptor continues it unmodified and
// logs a warning. There is no way to disable this: every paused request is
// guaranteed a resolution.
const DefaultAutoContinueDeadline = 20 * time.Second

// Handler inspects a paused request and optionally resolves it. Returning
// true means this handler claimed the request (whether it continued,
// fulfilled, or failed it); false lets the next handler in registration
// order see it.
type Handler func(ctx context.Context, req *Request) bool

// Request is a live, resolvable handle onto one paused request.
type Request struct {
	ID           string
	URL          string
	Method       string
	Headers      map[string]string
	ResourceType string
	PostData     string
	SessionID    cdptarget.SessionID

	// CorrelationID is a locally-generated id, distinct from CDP's own
	// RequestID, used only to tie together log lines for a request that
	// spans multiple handler invocations and the eventual auto-continue.
	CorrelationID string

	conn *transport.Connection

	mu       sync.Mutex
	resolved bool
}

func (r *Request) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return false
	}
	r.resolved = true
	return true
}

// ContinueRequest lets the paused request proceed, optionally rewriting its
// URL, method, headers, or body.
func (r *Request) ContinueRequest(ctx context.Context, override cdpfetch.ContinueRequestParams) error {
	if !r.claim() {
		return zerrors.New(zerrors.ProtocolError, "request already resolved", nil)
	}
	override.RequestID = r.ID
	_, err := r.conn.Send(ctx, string(r.SessionID), cdpfetch.MethodContinueRequest, override)
	return err
}

// Fulfill completes the paused request with a synthetic response. body is
// the response body as raw bytes; Fetch.fulfillRequest's wire body is
// base64, matching GetResponseBodyReturns.Base64Encoded on the read side.
func (r *Request) Fulfill(ctx context.Context, statusCode int, headers []cdpfetch.HeaderEntry, body string) error {
	if !r.claim() {
		return zerrors.New(zerrors.ProtocolError, "request already resolved", nil)
	}
	params := cdpfetch.FulfillRequestParams{
		RequestID:       r.ID,
		ResponseCode:    statusCode,
		ResponseHeaders: headers,
		Body:            base64.StdEncoding.EncodeToString([]byte(body)),
	}
	_, err := r.conn.Send(ctx, string(r.SessionID), cdpfetch.MethodFulfillRequest, params)
	return err
}

// Fail aborts the paused request with the given network error reason.
func (r *Request) Fail(ctx context.Context, reason cdpfetch.ErrorReason) error {
	if !r.claim() {
		return zerrors.New(zerrors.ProtocolError, "request already resolved", nil)
	}
	params := cdpfetch.FailRequestParams{RequestID: r.ID, ErrorReason: reason}
	_, err := r.conn.Send(ctx, string(r.SessionID), cdpfetch.MethodFailRequest, params)
	return err
}

func (r *Request) autoContinue(ctx context.Context) {
	if !r.claim() {
		return
	}
	slog.Warn("fetchintercept: auto-continuing unresolved request", "requestId", r.ID, "correlationId", r.CorrelationID, "url", r.URL)
	_, _ = r.conn.Send(ctx, string(r.SessionID), cdpfetch.MethodContinueRequest, cdpfetch.ContinueRequestParams{RequestID: r.ID})
}

// Interceptor dispatches Fetch.requestPaused events to registered handlers
// in registration order and enforces the auto-continue deadline.
type Interceptor struct {
	conn     *transport.Connection
	bus      *eventbus.Bus
	deadline time.Duration

	mu       sync.Mutex
	handlers []Handler

	unsubscribe func()
}

// New creates an interceptor bound to conn's Fetch domain events on bus.
// deadline of zero uses DefaultAutoContinueDeadline.
func New(conn *transport.Connection, bus *eventbus.Bus, deadline time.Duration) *Interceptor {
	if deadline <= 0 {
		deadline = DefaultAutoContinueDeadline
	}
	ic := &Interceptor{conn: conn, bus: bus, deadline: deadline}
	ic.unsubscribe = bus.AddHandler(cdpfetch.MethodEventRequestPaused, ic.onRequestPaused)
	return ic
}

// Enable turns on the Fetch domain for sessionID with the given patterns.
func (ic *Interceptor) Enable(ctx context.Context, sessionID cdptarget.SessionID, patterns []cdpfetch.RequestPattern) error {
	_, err := ic.conn.Send(ctx, string(sessionID), cdpfetch.MethodEnable, cdpfetch.EnableParams{Patterns: patterns})
	return err
}

// AddHandler registers fn at the end of the dispatch order. Returns a
// function that unregisters it.
func (ic *Interceptor) AddHandler(fn Handler) func() {
	ic.mu.Lock()
	idx := len(ic.handlers)
	ic.handlers = append(ic.handlers, fn)
	ic.mu.Unlock()
	return func() {
		ic.mu.Lock()
		defer ic.mu.Unlock()
		if idx < len(ic.handlers) {
			ic.handlers[idx] = nil
		}
	}
}

func (ic *Interceptor) onRequestPaused(evt eventbus.Event) {
	var e cdpfetch.EventRequestPaused
	if err := json.Unmarshal(evt.Params, &e); err != nil {
		slog.Warn("fetchintercept: malformed requestPaused event", "error", err)
		return
	}

	req := &Request{
		ID:            e.RequestID,
		URL:           e.Request.URL,
		Method:        e.Request.Method,
		Headers:       e.Request.Headers,
		ResourceType:  e.ResourceType,
		PostData:      e.Request.PostData,
		SessionID:     cdptarget.SessionID(evt.SessionID),
		CorrelationID: uuid.New().String(),
		conn:          ic.conn,
	}

	ic.mu.Lock()
	handlers := make([]Handler, 0, len(ic.handlers))
	for _, h := range ic.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	ic.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ic.deadline)
	go func() {
		defer cancel()
		for _, h := range handlers {
			if req.resolvedNow() {
				return
			}
			if h(ctx, req) {
				return
			}
		}
		select {
		case <-ctx.Done():
			req.autoContinue(context.Background())
		}
	}()
}

func (r *Request) resolvedNow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// Close unsubscribes the interceptor's event handler.
func (ic *Interceptor) Close() {
	if ic.unsubscribe != nil {
		ic.unsubscribe()
	}
}
