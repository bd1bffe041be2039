// Package session is the session router (C4): it maps CDP sessionIds to the
// (connection, target) pair they were flattened onto, and makes concurrent
// attach calls for the same target collapse onto a single in-flight
// Target.attachToTarget, mirroring the idempotent-attach guarantee the
// target manager needs. The attach/detach wire calls themselves follow
// rawcdp.go's attachToTarget/detachFromTarget.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dgnsrekt/zendriver-go/cdpwire/target"
	"github.com/dgnsrekt/zendriver-go/eventbus"
	"github.com/dgnsrekt/zendriver-go/transport"
	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// Binding records which connection and target a sessionId is flattened onto.
type Binding struct {
	SessionID target.SessionID
	TargetID  target.ID
	Conn      *transport.Connection
}

type attachCall struct {
	done chan struct{}
	binding Binding
	err     error
}

// Router owns the sessionId <-> target mapping for one browser-level
// connection and de-duplicates concurrent attaches to the same target.
type Router struct {
	conn *transport.Connection

	mu        sync.Mutex
	byTarget  map[target.ID]Binding
	bySession map[target.SessionID]Binding
	inflight  map[target.ID]*attachCall
}

// New creates a router bound to the browser-level connection used to issue
// Target.attachToTarget / Target.detachFromTarget. If bus is non-nil, the
// router also listens for Target.detachedFromTarget so a browser-initiated
// detach (the target crashed, or the browser itself dropped the session)
// clears the binding without waiting for a caller to notice and call Detach.
func New(conn *transport.Connection, bus *eventbus.Bus) *Router {
	r := &Router{
		conn:      conn,
		byTarget:  make(map[target.ID]Binding),
		bySession: make(map[target.SessionID]Binding),
		inflight:  make(map[target.ID]*attachCall),
	}
	if bus != nil {
		bus.AddHandler(target.MethodEventDetachedFromTarget, r.onDetachedFromTarget)
	}
	return r
}

func (r *Router) onDetachedFromTarget(evt eventbus.Event) {
	var e target.EventDetachedFromTarget
	if err := json.Unmarshal(evt.Params, &e); err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bySession[e.SessionID]
	if !ok {
		return
	}
	delete(r.byTarget, b.TargetID)
	delete(r.bySession, e.SessionID)
}

// Attach flattens a session onto targetID, or returns the existing binding
// if one is already attached. Concurrent calls for the same targetID share
// one in-flight Target.attachToTarget call.
func (r *Router) Attach(ctx context.Context, targetID target.ID) (Binding, error) {
	r.mu.Lock()
	if b, ok := r.byTarget[targetID]; ok {
		r.mu.Unlock()
		return b, nil
	}
	if call, ok := r.inflight[targetID]; ok {
		r.mu.Unlock()
		<-call.done
		return call.binding, call.err
	}

	call := &attachCall{done: make(chan struct{})}
	r.inflight[targetID] = call
	r.mu.Unlock()

	correlationID := uuid.New().String()
	slog.Debug("session: attaching", "targetId", targetID, "correlationId", correlationID)
	binding, err := r.doAttach(ctx, targetID)
	call.binding, call.err = binding, err
	if err != nil {
		slog.Debug("session: attach failed", "targetId", targetID, "correlationId", correlationID, "error", err)
	}

	r.mu.Lock()
	delete(r.inflight, targetID)
	if err == nil {
		r.byTarget[targetID] = binding
		r.bySession[binding.SessionID] = binding
	}
	r.mu.Unlock()

	close(call.done)
	return binding, err
}

func (r *Router) doAttach(ctx context.Context, targetID target.ID) (Binding, error) {
	params := target.AttachToTargetParams{TargetID: targetID, Flatten: true}
	raw, err := r.conn.Send(ctx, "", target.MethodAttachToTarget, params)
	if err != nil {
		return Binding{}, err
	}
	var result target.AttachToTargetReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return Binding{}, zerrors.New(zerrors.ProtocolError, "decode attachToTarget result", err).WithMethod(target.MethodAttachToTarget)
	}
	return Binding{SessionID: result.SessionID, TargetID: targetID, Conn: r.conn}, nil
}

// Detach removes targetID's binding from the router's maps and sends
// Target.detachFromTarget for its session. The router is not on the event
// path: events the browser still sends for that sessionId are published on
// the eventbus as before, so subscriptions for the session stay live until
// their owners unsubscribe.
func (r *Router) Detach(ctx context.Context, targetID target.ID) error {
	r.mu.Lock()
	b, ok := r.byTarget[targetID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.byTarget, targetID)
	delete(r.bySession, b.SessionID)
	r.mu.Unlock()

	params := target.DetachFromTargetParams{SessionID: b.SessionID}
	_, err := r.conn.Send(ctx, "", target.MethodDetachFromTarget, params)
	return err
}

// ByTarget returns the binding for targetID, if attached.
func (r *Router) ByTarget(targetID target.ID) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byTarget[targetID]
	return b, ok
}

// BySession returns the binding that owns sessionID, if any.
func (r *Router) BySession(sessionID target.SessionID) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bySession[sessionID]
	return b, ok
}
