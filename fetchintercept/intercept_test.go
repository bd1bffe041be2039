package fetchintercept

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"

	cdpfetch "github.com/dgnsrekt/zendriver-go/cdpwire/fetch"
	"github.com/dgnsrekt/zendriver-go/eventbus"
	"github.com/dgnsrekt/zendriver-go/transport"
)

func newTestConn(t *testing.T) (*transport.Connection, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	c := transport.NewOnStream(clientSide)
	t.Cleanup(func() {
		_ = c.Close()
		_ = serverSide.Close()
	})
	return c, serverSide
}

func readRequest(t *testing.T, server net.Conn) map[string]any {
	t.Helper()
	data, err := wsutil.ReadClientText(server)
	if err != nil {
		t.Fatalf("ReadClientText() error = %v", err)
	}
	var req map[string]any
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	return req
}

func writeReply(t *testing.T, server net.Conn, id int64, result any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"id": id, "result": result})
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	if err := wsutil.WriteServerText(server, payload); err != nil {
		t.Fatalf("WriteServerText() error = %v", err)
	}
}

func publishRequestPaused(bus *eventbus.Bus, sessionID, requestID, url string) {
	evt := cdpfetch.EventRequestPaused{
		RequestID:    requestID,
		Request:      cdpfetch.RequestData{URL: url, Method: "GET"},
		ResourceType: "Document",
	}
	params, _ := json.Marshal(evt)
	bus.Publish(cdpfetch.MethodEventRequestPaused, sessionID, params)
}

func TestFirstClaimingHandlerWinsAndContinues(t *testing.T) {
	conn, server := newTestConn(t)
	bus := eventbus.New()
	ic := New(conn, bus, time.Second)
	defer ic.Close()

	var firstSaw, secondSaw bool
	ic.AddHandler(func(ctx context.Context, req *Request) bool {
		firstSaw = true
		return false // declines
	})
	ic.AddHandler(func(ctx context.Context, req *Request) bool {
		secondSaw = true
		_ = req.ContinueRequest(ctx, cdpfetch.ContinueRequestParams{})
		return true
	})

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		req := readRequest(t, server)
		if req["method"] != cdpfetch.MethodContinueRequest {
			t.Errorf("method = %v, want %s", req["method"], cdpfetch.MethodContinueRequest)
		}
		id := int64(req["id"].(float64))
		writeReply(t, server, id, map[string]any{})
	}()

	publishRequestPaused(bus, "sess-1", "req-1", "https://example.com")

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for continueRequest")
	}
	if !firstSaw || !secondSaw {
		t.Fatalf("firstSaw=%v secondSaw=%v, want both true", firstSaw, secondSaw)
	}
}

func TestUnclaimedRequestAutoContinuesAfterDeadline(t *testing.T) {
	conn, server := newTestConn(t)
	bus := eventbus.New()
	ic := New(conn, bus, 30*time.Millisecond)
	defer ic.Close()

	ic.AddHandler(func(ctx context.Context, req *Request) bool {
		return false // never claims
	})

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		req := readRequest(t, server)
		if req["method"] != cdpfetch.MethodContinueRequest {
			t.Errorf("method = %v, want %s (auto-continue)", req["method"], cdpfetch.MethodContinueRequest)
		}
		id := int64(req["id"].(float64))
		writeReply(t, server, id, map[string]any{})
	}()

	publishRequestPaused(bus, "sess-1", "req-2", "https://example.com/unclaimed")

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auto-continue")
	}
}

func TestDoubleResolutionIsRejected(t *testing.T) {
	conn, server := newTestConn(t)
	defer server.Close()

	req := &Request{ID: "req-3", conn: conn, SessionID: "sess-1"}

	go func() {
		r := readRequest(t, server)
		id := int64(r["id"].(float64))
		writeReply(t, server, id, map[string]any{})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := req.ContinueRequest(ctx, cdpfetch.ContinueRequestParams{}); err != nil {
		t.Fatalf("first ContinueRequest() error = %v", err)
	}
	if err := req.Fail(ctx, cdpfetch.ErrorReason("Failed")); err == nil {
		t.Fatal("second resolution attempt error = nil, want an error")
	}
}

func TestFulfillBase64EncodesBody(t *testing.T) {
	conn, server := newTestConn(t)
	defer server.Close()

	req := &Request{ID: "req-5", conn: conn, SessionID: "sess-1"}
	wantBody := `{"ok":true}`

	serverDone := make(chan map[string]any)
	go func() {
		r := readRequest(t, server)
		id := int64(r["id"].(float64))
		writeReply(t, server, id, map[string]any{})
		serverDone <- r
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := req.Fulfill(ctx, 200, nil, wantBody); err != nil {
		t.Fatalf("Fulfill() error = %v", err)
	}

	r := <-serverDone
	params := r["params"].(map[string]any)
	gotBody, ok := params["body"].(string)
	if !ok {
		t.Fatalf("params[body] = %v, want a base64 string", params["body"])
	}
	decoded, err := base64.StdEncoding.DecodeString(gotBody)
	if err != nil {
		t.Fatalf("body is not valid base64: %v", err)
	}
	if string(decoded) != wantBody {
		t.Fatalf("decoded body = %q, want %q", decoded, wantBody)
	}
}

func TestUnregisteredHandlerIsSkipped(t *testing.T) {
	conn, server := newTestConn(t)
	bus := eventbus.New()
	ic := New(conn, bus, time.Second)
	defer ic.Close()

	called := false
	unregister := ic.AddHandler(func(ctx context.Context, req *Request) bool {
		called = true
		return true
	})
	unregister()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		req := readRequest(t, server)
		id := int64(req["id"].(float64))
		writeReply(t, server, id, map[string]any{})
	}()

	publishRequestPaused(bus, "sess-1", "req-4", "https://example.com/unregistered")

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auto-continue after unregister")
	}
	if called {
		t.Fatal("unregistered handler was invoked")
	}
}
