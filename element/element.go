// Package element is the element proxy (C6): a handle onto one DOM node,
// identified by CDP backend node id, that re-resolves itself against the
// live DOM on demand rather than caching a JS object id across navigations.
// Its retry policy — exactly one DOM.resolveNode retry on "object not
// found" before surfacing StaleElement — is this package's central
// invariant. Grounded in rawcdp.go's pattern of a flattened-session command
// helper plus original_source/nodriver/core/element.py's attribute caching.
package element

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/zendriver-go/cdpwire/dom"
	"github.com/dgnsrekt/zendriver-go/cdpwire/input"
	"github.com/dgnsrekt/zendriver-go/cdpwire/runtime"
	cdptarget "github.com/dgnsrekt/zendriver-go/cdpwire/target"
	"github.com/dgnsrekt/zendriver-go/transport"
	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// releaseObjectTimeout bounds the best-effort Runtime.releaseObject call
// issued after a resolved object id's single use, so a slow or already-gone
// target can't hang the caller that no longer needs the handle.
const releaseObjectTimeout = 2 * time.Second

// Element is a proxy onto a single DOM node within one tab's session.
type Element struct {
	conn      *transport.Connection
	sessionID cdptarget.SessionID

	mu            sync.Mutex
	backendNodeID int64
	nodeID        int64

	// cached snapshot, populated lazily by Describe and refreshed only when
	// Describe is called again.
	tag        string
	attributes map[string]string
	text       string
	snapshotted bool
}

// New constructs an Element proxy for a node already resolved to a nodeId
// (e.g. from DOM.querySelector).
func New(conn *transport.Connection, sessionID cdptarget.SessionID, nodeID int64) *Element {
	return &Element{conn: conn, sessionID: sessionID, nodeID: nodeID}
}

// NewFromBackendID constructs an Element proxy from a backendNodeId, the
// stable identifier DOM.describeNode and DOM.performSearch return, which
// survives across NodeId invalidation caused by DOM.documentUpdated.
func NewFromBackendID(conn *transport.Connection, sessionID cdptarget.SessionID, backendNodeID int64) *Element {
	return &Element{conn: conn, sessionID: sessionID, backendNodeID: backendNodeID}
}

func (e *Element) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return e.conn.Send(ctx, string(e.sessionID), method, params)
}

// resolveNodeID ensures e.nodeID is populated, resolving from backendNodeID
// if that's all we have.
func (e *Element) resolveNodeID(ctx context.Context) (int64, error) {
	e.mu.Lock()
	nodeID := e.nodeID
	backendID := e.backendNodeID
	e.mu.Unlock()
	if nodeID != 0 {
		return nodeID, nil
	}
	if backendID == 0 {
		return 0, zerrors.New(zerrors.StaleElement, "element has neither nodeId nor backendNodeId", nil)
	}
	raw, err := e.send(ctx, dom.MethodDescribeNode, dom.DescribeNodeParams{BackendNodeID: backendID})
	if err != nil {
		return 0, err
	}
	var result dom.DescribeNodeReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, zerrors.New(zerrors.ProtocolError, "decode describeNode result", err).WithMethod(dom.MethodDescribeNode)
	}
	e.mu.Lock()
	e.nodeID = result.Node.NodeID
	e.mu.Unlock()
	return result.Node.NodeID, nil
}

// withRetry runs fn, and if it fails with a "not found"-shaped protocol
// error, re-resolves the node id once via DOM.resolveNode and retries
// exactly once before surfacing StaleElement.
func (e *Element) withRetry(ctx context.Context, fn func(nodeID int64) error) error {
	nodeID, err := e.resolveNodeID(ctx)
	if err != nil {
		return err
	}
	err = fn(nodeID)
	if err == nil {
		return nil
	}
	if !isNotFoundErr(err) {
		return err
	}

	if rerr := e.reresolve(ctx); rerr != nil {
		return zerrors.ErrStaleElement
	}
	e.mu.Lock()
	nodeID = e.nodeID
	e.mu.Unlock()
	if err := fn(nodeID); err != nil {
		return zerrors.ErrStaleElement
	}
	return nil
}

func (e *Element) reresolve(ctx context.Context) error {
	e.mu.Lock()
	backendID := e.backendNodeID
	e.mu.Unlock()
	if backendID == 0 {
		return zerrors.ErrStaleElement
	}
	raw, err := e.send(ctx, dom.MethodResolveNode, dom.ResolveNodeParams{BackendNodeID: backendID})
	if err != nil {
		return err
	}
	var result dom.ResolveNodeReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	describeRaw, err := e.send(ctx, dom.MethodDescribeNode, dom.DescribeNodeParams{BackendNodeID: backendID})
	if err != nil {
		return err
	}
	var describe dom.DescribeNodeReturns
	if err := json.Unmarshal(describeRaw, &describe); err != nil {
		return err
	}
	e.mu.Lock()
	e.nodeID = describe.Node.NodeID
	e.mu.Unlock()
	return nil
}

func isNotFoundErr(err error) bool {
	ce, ok := err.(*zerrors.CodedError)
	if !ok {
		return false
	}
	msg := strings.ToLower(ce.Message)
	return ce.Kind == zerrors.ProtocolError &&
		(strings.Contains(msg, "not found") || strings.Contains(msg, "no node with given id"))
}

// Describe fetches the node's tag and attributes, refreshing the cached
// snapshot used by Attr/Tag.
func (e *Element) Describe(ctx context.Context) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		raw, err := e.send(ctx, dom.MethodDescribeNode, dom.DescribeNodeParams{NodeID: nodeID})
		if err != nil {
			return err
		}
		var result dom.DescribeNodeReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode describeNode result", err).WithMethod(dom.MethodDescribeNode)
		}
		e.mu.Lock()
		e.tag = strings.ToLower(result.Node.LocalName)
		e.attributes = attrsToMap(result.Node.Attributes)
		e.backendNodeID = result.Node.BackendNodeID
		e.snapshotted = true
		e.mu.Unlock()
		return nil
	})
}

func attrsToMap(flat []string) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m
}

// Tag returns the element's lowercased tag name, describing the node first
// if it hasn't been snapshotted yet.
func (e *Element) Tag(ctx context.Context) (string, error) {
	e.mu.Lock()
	snapshotted := e.snapshotted
	tag := e.tag
	e.mu.Unlock()
	if snapshotted {
		return tag, nil
	}
	if err := e.Describe(ctx); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tag, nil
}

// Attr returns the value of attribute name, describing the node first if
// needed. ok is false if the attribute is absent.
func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	snapshotted := e.snapshotted
	e.mu.Unlock()
	if !snapshotted {
		if err := e.Describe(ctx); err != nil {
			return "", false, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attributes[name]
	return v, ok, nil
}

// SetAttr sets attribute name to value on the live node.
func (e *Element) SetAttr(ctx context.Context, name, value string) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		_, err := e.send(ctx, dom.MethodSetAttributeValue, dom.SetAttributeValueParams{NodeID: nodeID, Name: name, Value: value})
		return err
	})
}

// RemoveAttr removes attribute name from the live node.
func (e *Element) RemoveAttr(ctx context.Context, name string) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		_, err := e.send(ctx, dom.MethodRemoveAttribute, dom.RemoveAttributeParams{NodeID: nodeID, Name: name})
		return err
	})
}

// OuterHTML returns the node's outer HTML.
func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	var out string
	err := e.withRetry(ctx, func(nodeID int64) error {
		raw, err := e.send(ctx, dom.MethodGetOuterHTML, dom.GetOuterHTMLParams{NodeID: nodeID})
		if err != nil {
			return err
		}
		var result dom.GetOuterHTMLReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode getOuterHTML result", err).WithMethod(dom.MethodGetOuterHTML)
		}
		out = result.OuterHTML
		return nil
	})
	return out, err
}

// Text evaluates textContent on the node via Runtime.callFunctionOn against
// its resolved JS object, matching nodriver's element.text property.
func (e *Element) Text(ctx context.Context) (string, error) {
	var out string
	err := e.withRetry(ctx, func(nodeID int64) error {
		objectID, err := e.objectID(ctx, nodeID)
		if err != nil {
			return err
		}
		defer e.releaseObject(objectID)
		raw, err := e.send(ctx, runtime.MethodCallFunctionOn, runtime.CallFunctionOnParams{
			FunctionDeclaration: "function(){return this.textContent;}",
			ObjectID:            objectID,
			ReturnByValue:       true,
		})
		if err != nil {
			return err
		}
		var result runtime.CallFunctionOnReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode callFunctionOn result", err).WithMethod(runtime.MethodCallFunctionOn)
		}
		if result.ExceptionDetails != nil {
			return zerrors.New(zerrors.ProtocolError, result.ExceptionDetails.Text, nil).WithMethod(runtime.MethodCallFunctionOn)
		}
		_ = json.Unmarshal(result.Result.Value, &out)
		return nil
	})
	return out, err
}

func (e *Element) objectID(ctx context.Context, nodeID int64) (string, error) {
	raw, err := e.send(ctx, dom.MethodResolveNode, dom.ResolveNodeParams{NodeID: nodeID})
	if err != nil {
		return "", err
	}
	var result dom.ResolveNodeReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", zerrors.New(zerrors.ProtocolError, "decode resolveNode result", err).WithMethod(dom.MethodResolveNode)
	}
	return result.Object.ObjectID, nil
}

// releaseObject frees a resolved object id via Runtime.releaseObject once
// its caller is done with it. Best-effort: a release failure (the node's
// document already navigated away, say) isn't worth surfacing to callers
// who already have what they came for.
func (e *Element) releaseObject(objectID string) {
	if objectID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseObjectTimeout)
	defer cancel()
	_, _ = e.send(ctx, runtime.MethodReleaseObject, runtime.ReleaseObjectParams{ObjectID: objectID})
}

// center computes the click point at the center of the node's box model.
func (e *Element) center(ctx context.Context, nodeID int64) (float64, float64, error) {
	raw, err := e.send(ctx, dom.MethodGetBoxModel, dom.GetBoxModelParams{NodeID: nodeID})
	if err != nil {
		return 0, 0, err
	}
	var result dom.GetBoxModelReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, 0, zerrors.New(zerrors.ProtocolError, "decode getBoxModel result", err).WithMethod(dom.MethodGetBoxModel)
	}
	quad := result.Model.Content
	if len(quad) < 8 {
		return 0, 0, zerrors.New(zerrors.ElementNotInteract, "element has no box model (not rendered)", nil)
	}
	x := (quad[0] + quad[2] + quad[4] + quad[6]) / 4
	y := (quad[1] + quad[3] + quad[5] + quad[7]) / 4
	return x, y, nil
}

// Click scrolls the node into view and dispatches a trusted mouse click at
// its center, following rawcdp.go's dispatchMouseClick press/release pair.
func (e *Element) Click(ctx context.Context) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		if _, err := e.send(ctx, dom.MethodScrollIntoViewIfNeeded, dom.ScrollIntoViewIfNeededParams{NodeID: nodeID}); err != nil {
			return err
		}
		x, y, err := e.center(ctx, nodeID)
		if err != nil {
			return err
		}
		pressed := input.DispatchMouseEventParams{Type: "mousePressed", X: x, Y: y, Button: "left", ClickCount: 1}
		if _, err := e.send(ctx, input.MethodDispatchMouseEvent, pressed); err != nil {
			return err
		}
		released := input.DispatchMouseEventParams{Type: "mouseReleased", X: x, Y: y, Button: "left", ClickCount: 1}
		_, err = e.send(ctx, input.MethodDispatchMouseEvent, released)
		return err
	})
}

// Focus focuses the node via DOM.focus.
func (e *Element) Focus(ctx context.Context) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		_, err := e.send(ctx, dom.MethodFocus, dom.FocusParams{NodeID: nodeID})
		return err
	})
}

// Blur removes focus from the node via Runtime.callFunctionOn, the same
// resolved-object path SelectOption uses, since CDP has no DOM.blur.
func (e *Element) Blur(ctx context.Context) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		objectID, err := e.objectID(ctx, nodeID)
		if err != nil {
			return err
		}
		defer e.releaseObject(objectID)
		raw, err := e.send(ctx, runtime.MethodCallFunctionOn, runtime.CallFunctionOnParams{
			FunctionDeclaration: "function(){this.blur();}",
			ObjectID:            objectID,
		})
		if err != nil {
			return err
		}
		var result runtime.CallFunctionOnReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode callFunctionOn result", err).WithMethod(runtime.MethodCallFunctionOn)
		}
		if result.ExceptionDetails != nil {
			return zerrors.New(zerrors.ProtocolError, result.ExceptionDetails.Text, nil).WithMethod(runtime.MethodCallFunctionOn)
		}
		return nil
	})
}

// Type focuses the element and types text one character at a time using
// the rawKeyDown+char+keyUp sequence from rawcdp.go's dispatchCharInput, so
// that React-style controlled inputs see native input events.
func (e *Element) Type(ctx context.Context, text string) error {
	if err := e.Focus(ctx); err != nil {
		return err
	}
	return e.withRetry(ctx, func(nodeID int64) error {
		for _, r := range text {
			ch := string(r)
			down := input.DispatchKeyEventParams{Type: "rawKeyDown", Key: ch}
			if _, err := e.send(ctx, input.MethodDispatchKeyEvent, down); err != nil {
				return err
			}
			charEvt := input.DispatchKeyEventParams{Type: "char", Text: ch, Key: ch, UnmodifiedText: ch}
			if _, err := e.send(ctx, input.MethodDispatchKeyEvent, charEvt); err != nil {
				return err
			}
			up := input.DispatchKeyEventParams{Type: "keyUp", Key: ch}
			if _, err := e.send(ctx, input.MethodDispatchKeyEvent, up); err != nil {
				return err
			}
		}
		return nil
	})
}

// SelectOption sets a <select> element's value and dispatches a synthetic
// change event via Runtime, since CDP has no dedicated select command.
func (e *Element) SelectOption(ctx context.Context, value string) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		objectID, err := e.objectID(ctx, nodeID)
		if err != nil {
			return err
		}
		defer e.releaseObject(objectID)
		valueJSON, _ := json.Marshal(value)
		raw, err := e.send(ctx, runtime.MethodCallFunctionOn, runtime.CallFunctionOnParams{
			FunctionDeclaration: "function(v){this.value=v;this.dispatchEvent(new Event('change',{bubbles:true}));}",
			ObjectID:            objectID,
			Arguments:           []runtime.CallArgument{{Value: valueJSON}},
		})
		if err != nil {
			return err
		}
		var result runtime.CallFunctionOnReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode callFunctionOn result", err).WithMethod(runtime.MethodCallFunctionOn)
		}
		if result.ExceptionDetails != nil {
			return zerrors.New(zerrors.ProtocolError, result.ExceptionDetails.Text, nil).WithMethod(runtime.MethodCallFunctionOn)
		}
		return nil
	})
}

// UploadFile sets the files on an <input type="file"> node.
func (e *Element) UploadFile(ctx context.Context, paths ...string) error {
	return e.withRetry(ctx, func(nodeID int64) error {
		_, err := e.send(ctx, dom.MethodSetFileInputFiles, dom.SetFileInputFilesParams{NodeID: nodeID, Files: paths})
		return err
	})
}

// Query runs a CSS selector scoped to this element and returns the first
// match, or nil if none.
func (e *Element) Query(ctx context.Context, selector string) (*Element, error) {
	var child *Element
	err := e.withRetry(ctx, func(nodeID int64) error {
		raw, err := e.send(ctx, dom.MethodQuerySelector, dom.QuerySelectorParams{NodeID: nodeID, Selector: selector})
		if err != nil {
			return err
		}
		var result dom.QuerySelectorReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode querySelector result", err).WithMethod(dom.MethodQuerySelector)
		}
		if result.NodeID != 0 {
			child = New(e.conn, e.sessionID, result.NodeID)
		}
		return nil
	})
	return child, err
}

// QueryAll runs a CSS selector scoped to this element and returns all matches.
func (e *Element) QueryAll(ctx context.Context, selector string) ([]*Element, error) {
	var children []*Element
	err := e.withRetry(ctx, func(nodeID int64) error {
		raw, err := e.send(ctx, dom.MethodQuerySelectorAll, dom.QuerySelectorAllParams{NodeID: nodeID, Selector: selector})
		if err != nil {
			return err
		}
		var result dom.QuerySelectorAllReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode querySelectorAll result", err).WithMethod(dom.MethodQuerySelectorAll)
		}
		children = make([]*Element, 0, len(result.NodeIDs))
		for _, id := range result.NodeIDs {
			children = append(children, New(e.conn, e.sessionID, id))
		}
		return nil
	})
	return children, err
}

// Children issues DOM.describeNode at depth 1 and wraps each immediate
// child node as an Element, keyed on its backendNodeId so the returned
// proxies survive a subsequent document invalidation.
func (e *Element) Children(ctx context.Context) ([]*Element, error) {
	var children []*Element
	err := e.withRetry(ctx, func(nodeID int64) error {
		raw, err := e.send(ctx, dom.MethodDescribeNode, dom.DescribeNodeParams{NodeID: nodeID, Depth: 1})
		if err != nil {
			return err
		}
		var result dom.DescribeNodeReturns
		if err := json.Unmarshal(raw, &result); err != nil {
			return zerrors.New(zerrors.ProtocolError, "decode describeNode result", err).WithMethod(dom.MethodDescribeNode)
		}
		children = make([]*Element, 0, len(result.Node.Children))
		for _, child := range result.Node.Children {
			children = append(children, NewFromBackendID(e.conn, e.sessionID, child.BackendNodeID))
		}
		return nil
	})
	return children, err
}

// BackendNodeID exposes the stable backend id, used by Tab to re-create an
// Element proxy across document invalidation.
func (e *Element) BackendNodeID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backendNodeID
}
