// Package network defines the small slice of the CDP Network domain the
// driver touches directly: enabling the domain and disabling the cache so
// that intercepted requests reflect live server state.
package network

const MethodEnable = "Network.enable"

type EnableParams struct {
	MaxTotalBufferSize    int `json:"maxTotalBufferSize,omitempty"`
	MaxResourceBufferSize int `json:"maxResourceBufferSize,omitempty"`
}

const MethodSetCacheDisabled = "Network.setCacheDisabled"

type SetCacheDisabledParams struct {
	CacheDisabled bool `json:"cacheDisabled"`
}

const MethodSetUserAgentOverride = "Network.setUserAgentOverride"

type SetUserAgentOverrideParams struct {
	UserAgent      string `json:"userAgent"`
	AcceptLanguage string `json:"acceptLanguage,omitempty"`
	Platform       string `json:"platform,omitempty"`
}

// EventLoadingFinished: Network.loadingFinished.
type EventLoadingFinished struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
}

const MethodEventLoadingFinished = "Network.loadingFinished"

// EventLoadingFailed: Network.loadingFailed.
type EventLoadingFailed struct {
	RequestID    string `json:"requestId"`
	ErrorText    string `json:"errorText"`
	Canceled     bool   `json:"canceled,omitempty"`
}

const MethodEventLoadingFailed = "Network.loadingFailed"
