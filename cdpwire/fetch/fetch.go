// Package fetch defines the CDP Fetch domain's command and event shapes used
// for request interception.
package fetch

const MethodEnable = "Fetch.enable"

type RequestPattern struct {
	URLPattern   string `json:"urlPattern,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	RequestStage string `json:"requestStage,omitempty"`
}

type EnableParams struct {
	Patterns           []RequestPattern `json:"patterns,omitempty"`
	HandleAuthRequests bool              `json:"handleAuthRequests,omitempty"`
}

const MethodDisable = "Fetch.disable"

const MethodContinueRequest = "Fetch.continueRequest"

type HeaderEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ContinueRequestParams struct {
	RequestID string        `json:"requestId"`
	URL       string        `json:"url,omitempty"`
	Method    string        `json:"method,omitempty"`
	PostData  string        `json:"postData,omitempty"`
	Headers   []HeaderEntry `json:"headers,omitempty"`
}

const MethodFulfillRequest = "Fetch.fulfillRequest"

type FulfillRequestParams struct {
	RequestID       string        `json:"requestId"`
	ResponseCode    int           `json:"responseCode"`
	ResponseHeaders []HeaderEntry `json:"responseHeaders,omitempty"`
	Body            string        `json:"body,omitempty"`
}

const MethodFailRequest = "Fetch.failRequest"

// ErrorReason is one of the net::ERR_* reasons CDP's Fetch domain accepts,
// e.g. "Failed", "Aborted", "BlockedByClient".
type ErrorReason string

type FailRequestParams struct {
	RequestID   string      `json:"requestId"`
	ErrorReason ErrorReason `json:"errorReason"`
}

const MethodContinueResponse = "Fetch.continueResponse"

type ContinueResponseParams struct {
	RequestID       string        `json:"requestId"`
	ResponseCode    int           `json:"responseCode,omitempty"`
	ResponseHeaders []HeaderEntry `json:"responseHeaders,omitempty"`
}

const MethodGetResponseBody = "Fetch.getResponseBody"

type GetResponseBodyParams struct {
	RequestID string `json:"requestId"`
}

type GetResponseBodyReturns struct {
	Body          string `json:"body"`
	Base64Encoded bool   `json:"base64Encoded"`
}

// RequestData mirrors the Network.Request shape embedded in requestPaused.
type RequestData struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Headers  map[string]string `json:"headers"`
	PostData string            `json:"postData,omitempty"`
}

// HTTPResponse mirrors the optional response summary included on
// requestPaused when RequestStage is "Response".
type HTTPResponse struct {
	URL             string        `json:"url"`
	Status          int           `json:"status"`
	StatusText      string        `json:"statusText"`
	Headers         []HeaderEntry `json:"headers"`
}

// EventRequestPaused: Fetch.requestPaused. Exactly one of RequestID's two
// possible stages applies: "Request" (before it is sent) or "Response"
// (headers received, body not yet read), distinguished by whether
// ResponseStatusCode is zero.
type EventRequestPaused struct {
	RequestID          string       `json:"requestId"`
	Request            RequestData  `json:"request"`
	FrameID             string       `json:"frameId"`
	ResourceType        string       `json:"resourceType"`
	ResponseErrorReason string       `json:"responseErrorReason,omitempty"`
	ResponseStatusCode  int          `json:"responseStatusCode,omitempty"`
	ResponseHeaders     []HeaderEntry `json:"responseHeaders,omitempty"`
	NetworkID           string       `json:"networkId,omitempty"`
}

const MethodEventRequestPaused = "Fetch.requestPaused"

// EventAuthRequired: Fetch.authRequired.
type EventAuthRequired struct {
	RequestID string `json:"requestId"`
}

const MethodEventAuthRequired = "Fetch.authRequired"
