// Package zerrors defines the typed error kinds surfaced by the driver.
package zerrors

import "fmt"

// Kind classifies a CodedError. Callers compare against these constants with
// errors.Is / errors.As rather than matching on message text.
type Kind string

const (
	ConnectError         Kind = "CONNECT_ERROR"
	ConnectionClosed     Kind = "CONNECTION_CLOSED"
	ProtocolError        Kind = "PROTOCOL_ERROR"
	Timeout              Kind = "TIMEOUT"
	Cancelled            Kind = "CANCELLED"
	TargetGone           Kind = "TARGET_GONE"
	StaleElement         Kind = "STALE_ELEMENT"
	ElementNotInteract   Kind = "ELEMENT_NOT_INTERACTABLE"
	NavigationSuperseded Kind = "NAVIGATION_SUPERSEDED"
	ConfigError          Kind = "CONFIG_ERROR"
)

// CodedError is a typed error used for stable classification across every
// error kind the driver can raise.
type CodedError struct {
	Kind    Kind
	Message string
	Cause   error

	// Method, SessionID and TargetID carry structured context where
	// relevant. Empty when not applicable.
	Method    string
	SessionID string
	TargetID  string

	// Code and RawMessage hold the CDP error code/message when this
	// CodedError wraps a protocol-level error reply.
	Code       int64
	RawMessage string
}

func (e *CodedError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Method != "" {
		msg += fmt.Sprintf(" (method=%s)", e.Method)
	}
	if e.SessionID != "" {
		msg += fmt.Sprintf(" (session=%s)", e.SessionID)
	}
	if e.TargetID != "" {
		msg += fmt.Sprintf(" (target=%s)", e.TargetID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *CodedError) Unwrap() error { return e.Cause }

// Is reports whether target is a *CodedError with the same Kind, so that
// errors.Is(err, zerrors.New(zerrors.Timeout, "", nil)) works without
// requiring callers to compare message text.
func (e *CodedError) Is(target error) bool {
	other, ok := target.(*CodedError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs a CodedError of the given kind.
func New(kind Kind, message string, cause error) *CodedError {
	return &CodedError{Kind: kind, Message: message, Cause: cause}
}

// WithMethod returns a shallow copy of e with Method set, for chaining at
// the call site that knows which CDP method failed.
func (e *CodedError) WithMethod(method string) *CodedError {
	c := *e
	c.Method = method
	return &c
}

// WithSession returns a shallow copy of e with SessionID set.
func (e *CodedError) WithSession(sessionID string) *CodedError {
	c := *e
	c.SessionID = sessionID
	return &c
}

// WithTarget returns a shallow copy of e with TargetID set.
func (e *CodedError) WithTarget(targetID string) *CodedError {
	c := *e
	c.TargetID = targetID
	return &c
}

// Sentinel values for errors.Is comparisons where no extra context is
// needed at the call site.
var (
	ErrConnectionClosed     = New(ConnectionClosed, "connection closed", nil)
	ErrTimeout              = New(Timeout, "operation timed out", nil)
	ErrCancelled            = New(Cancelled, "operation cancelled", nil)
	ErrTargetGone           = New(TargetGone, "target is gone", nil)
	ErrStaleElement         = New(StaleElement, "element handle is stale", nil)
	ErrNavigationSuperseded = New(NavigationSuperseded, "navigation superseded by a newer one", nil)
)
