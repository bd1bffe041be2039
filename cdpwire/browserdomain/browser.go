// Package browserdomain defines the CDP Browser domain's command shapes.
// Named browserdomain rather than browser to avoid colliding with the
// higher-level supervisor package of the same concept.
package browserdomain

const MethodClose = "Browser.close"

const MethodGetVersion = "Browser.getVersion"

type GetVersionReturns struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JsVersion       string `json:"jsVersion"`
}

const MethodSetDownloadBehavior = "Browser.setDownloadBehavior"

type SetDownloadBehaviorParams struct {
	Behavior         string `json:"behavior"`
	DownloadPath     string `json:"downloadPath,omitempty"`
}
