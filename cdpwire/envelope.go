// Package cdpwire marshals typed CDP method calls and unmarshals typed
// replies/events over the Chrome DevTools Protocol's JSON wire format. It is
// pure and stateless — the only component in this repo that touches JSON
// framing directly.
package cdpwire

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// Request is the outbound frame shape: {id, method, params, sessionId}.
type Request struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Encode marshals a Request to its wire form.
func Encode(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, zerrors.New(zerrors.ProtocolError, "encode request", err).WithMethod(req.Method)
	}
	return data, nil
}

// inboundError mirrors the CDP {code, message, data?} error shape.
type inboundError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Frame is a decoded inbound message: either a reply to a Request (ID != 0)
// or an event (Method != ""). Exactly one of the two is populated.
type Frame struct {
	ID        int64
	IsReply   bool
	Result    json.RawMessage
	Err       *zerrors.CodedError
	Method    string
	Params    json.RawMessage
	SessionID string
}

// rawInbound is the superset shape used to sniff whether a frame is a reply
// or an event before doing any further parsing.
type rawInbound struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result"`
	Error     *inboundError   `json:"error"`
}

// Decode parses a single inbound wire message into a Frame. Decode failures
// surface as a ProtocolError carrying the raw payload; unknown fields are
// ignored because encoding/json ignores them by default.
func Decode(data []byte) (Frame, error) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, zerrors.New(zerrors.ProtocolError, fmt.Sprintf("malformed frame: %s", string(data)), err)
	}

	if raw.ID != 0 {
		f := Frame{ID: raw.ID, IsReply: true, Result: raw.Result, SessionID: raw.SessionID}
		if raw.Error != nil {
			f.Err = &zerrors.CodedError{
				Kind:       zerrors.ProtocolError,
				Message:    raw.Error.Message,
				Code:       raw.Error.Code,
				RawMessage: raw.Error.Data,
			}
		}
		return f, nil
	}

	if raw.Method == "" {
		return Frame{}, zerrors.New(zerrors.ProtocolError, fmt.Sprintf("frame has neither id nor method: %s", string(data)), nil)
	}

	return Frame{
		Method:    raw.Method,
		Params:    raw.Params,
		SessionID: raw.SessionID,
	}, nil
}

// DecodeResult unmarshals a reply's Result payload into dst, wrapping
// failures as a ProtocolError tagged with method for context.
func DecodeResult(result json.RawMessage, dst any, method string) error {
	if len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, dst); err != nil {
		return zerrors.New(zerrors.ProtocolError, "decode result", err).WithMethod(method)
	}
	return nil
}

// DecodeParams unmarshals an event's Params payload into dst.
func DecodeParams(params json.RawMessage, dst any, method string) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return zerrors.New(zerrors.ProtocolError, "decode event params", err).WithMethod(method)
	}
	return nil
}
