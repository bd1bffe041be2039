// Package target defines the CDP Target domain's command and event shapes:
// target discovery, session attach/detach, and target lifecycle events. This
// is the wire vocabulary the session router (C4) and target manager (C5)
// build on.
package target

// ID identifies a CDP target (page, iframe, worker, browser-level).
type ID string

// SessionID identifies a flattened debugging session bound to one target.
type SessionID string

// BrowserContextID identifies an isolated browser context (a CDP "profile").
type BrowserContextID string

// TargetInfo mirrors the CDP TargetInfo shape reported by getTargets,
// targetCreated, and targetInfoChanged.
type TargetInfo struct {
	TargetID         ID               `json:"targetId"`
	Type             string           `json:"type"`
	Title            string           `json:"title"`
	URL              string           `json:"url"`
	Attached         bool             `json:"attached"`
	OpenerID         ID               `json:"openerId,omitempty"`
	BrowserContextID BrowserContextID `json:"browserContextId,omitempty"`
}

const MethodGetTargets = "Target.getTargets"

type GetTargetsParams struct{}

type GetTargetsReturns struct {
	TargetInfos []TargetInfo `json:"targetInfos"`
}

const MethodAttachToTarget = "Target.attachToTarget"

// AttachToTargetParams always sets Flatten: true. Per spec.md §9 open
// question (c), flatten=false's behavior is unspecified in the original and
// this repo requires flatten=true unconditionally.
type AttachToTargetParams struct {
	TargetID ID   `json:"targetId"`
	Flatten  bool `json:"flatten"`
}

type AttachToTargetReturns struct {
	SessionID SessionID `json:"sessionId"`
}

const MethodDetachFromTarget = "Target.detachFromTarget"

type DetachFromTargetParams struct {
	SessionID SessionID `json:"sessionId,omitempty"`
	TargetID  ID        `json:"targetId,omitempty"`
}

const MethodSetAutoAttach = "Target.setAutoAttach"

type SetAutoAttachParams struct {
	AutoAttach             bool `json:"autoAttach"`
	WaitForDebuggerOnStart bool `json:"waitForDebuggerOnStart"`
	Flatten                bool `json:"flatten"`
}

const MethodCreateTarget = "Target.createTarget"

type CreateTargetParams struct {
	URL              string           `json:"url"`
	Width            int              `json:"width,omitempty"`
	Height           int              `json:"height,omitempty"`
	BrowserContextID BrowserContextID `json:"browserContextId,omitempty"`
	NewWindow        bool             `json:"newWindow,omitempty"`
	Background       bool             `json:"background,omitempty"`
}

type CreateTargetReturns struct {
	TargetID ID `json:"targetId"`
}

const MethodCloseTarget = "Target.closeTarget"

type CloseTargetParams struct {
	TargetID ID `json:"targetId"`
}

type CloseTargetReturns struct {
	Success bool `json:"success"`
}

const MethodActivateTarget = "Target.activateTarget"

type ActivateTargetParams struct {
	TargetID ID `json:"targetId"`
}

const MethodGetTargetInfo = "Target.getTargetInfo"

type GetTargetInfoParams struct {
	TargetID ID `json:"targetId,omitempty"`
}

type GetTargetInfoReturns struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

// EventTargetCreated: Target.targetCreated.
type EventTargetCreated struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

const MethodEventTargetCreated = "Target.targetCreated"

// EventTargetInfoChanged: Target.targetInfoChanged.
type EventTargetInfoChanged struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

const MethodEventTargetInfoChanged = "Target.targetInfoChanged"

// EventTargetDestroyed: Target.targetDestroyed.
type EventTargetDestroyed struct {
	TargetID ID `json:"targetId"`
}

const MethodEventTargetDestroyed = "Target.targetDestroyed"

// EventAttachedToTarget: Target.attachedToTarget, delivered on the
// connection's browser-level session in response to auto-attach.
type EventAttachedToTarget struct {
	SessionID          SessionID  `json:"sessionId"`
	TargetInfo         TargetInfo `json:"targetInfo"`
	WaitingForDebugger bool       `json:"waitingForDebugger"`
}

const MethodEventAttachedToTarget = "Target.attachedToTarget"

// EventDetachedFromTarget: Target.detachedFromTarget. Per spec.md §3, once
// this is processed no further event for SessionID may be delivered.
type EventDetachedFromTarget struct {
	SessionID SessionID `json:"sessionId"`
	TargetID  ID        `json:"targetId,omitempty"`
}

const MethodEventDetachedFromTarget = "Target.detachedFromTarget"
