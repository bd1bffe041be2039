// Package dom defines the CDP DOM domain's command shapes used by the
// element proxy layer to resolve, inspect, and mutate nodes.
package dom

const MethodEnable = "DOM.enable"

const MethodGetDocument = "DOM.getDocument"

type Node struct {
	NodeID        int64    `json:"nodeId"`
	BackendNodeID int64    `json:"backendNodeId"`
	NodeType      int      `json:"nodeType"`
	NodeName      string   `json:"nodeName"`
	LocalName     string   `json:"localName"`
	NodeValue     string   `json:"nodeValue"`
	Attributes    []string `json:"attributes,omitempty"`
	ChildNodeCount int     `json:"childNodeCount,omitempty"`
	Children      []Node   `json:"children,omitempty"`
}

type GetDocumentParams struct {
	Depth int  `json:"depth,omitempty"`
	Pierce bool `json:"pierce,omitempty"`
}

type GetDocumentReturns struct {
	Root Node `json:"root"`
}

const MethodQuerySelector = "DOM.querySelector"

type QuerySelectorParams struct {
	NodeID   int64  `json:"nodeId"`
	Selector string `json:"selector"`
}

type QuerySelectorReturns struct {
	NodeID int64 `json:"nodeId"`
}

const MethodQuerySelectorAll = "DOM.querySelectorAll"

type QuerySelectorAllParams struct {
	NodeID   int64  `json:"nodeId"`
	Selector string `json:"selector"`
}

type QuerySelectorAllReturns struct {
	NodeIDs []int64 `json:"nodeIds"`
}

const MethodDescribeNode = "DOM.describeNode"

type DescribeNodeParams struct {
	NodeID        int64 `json:"nodeId,omitempty"`
	BackendNodeID int64 `json:"backendNodeId,omitempty"`
	Depth         int   `json:"depth,omitempty"`
}

type DescribeNodeReturns struct {
	Node Node `json:"node"`
}

const MethodGetOuterHTML = "DOM.getOuterHTML"

type GetOuterHTMLParams struct {
	NodeID int64 `json:"nodeId"`
}

type GetOuterHTMLReturns struct {
	OuterHTML string `json:"outerHTML"`
}

const MethodSetAttributeValue = "DOM.setAttributeValue"

type SetAttributeValueParams struct {
	NodeID int64  `json:"nodeId"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

const MethodRemoveAttribute = "DOM.removeAttribute"

type RemoveAttributeParams struct {
	NodeID int64  `json:"nodeId"`
	Name   string `json:"name"`
}

const MethodGetBoxModel = "DOM.getBoxModel"

type BoxModel struct {
	Content []float64 `json:"content"`
	Padding []float64 `json:"padding"`
	Border  []float64 `json:"border"`
	Margin  []float64 `json:"margin"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
}

type GetBoxModelParams struct {
	NodeID int64 `json:"nodeId"`
}

type GetBoxModelReturns struct {
	Model BoxModel `json:"model"`
}

const MethodScrollIntoViewIfNeeded = "DOM.scrollIntoViewIfNeeded"

type ScrollIntoViewIfNeededParams struct {
	NodeID int64 `json:"nodeId"`
}

const MethodResolveNode = "DOM.resolveNode"

type ResolveNodeParams struct {
	NodeID        int64  `json:"nodeId,omitempty"`
	BackendNodeID int64  `json:"backendNodeId,omitempty"`
	ObjectGroup   string `json:"objectGroup,omitempty"`
}

type ResolvedObject struct {
	Type     string `json:"type"`
	ObjectID string `json:"objectId"`
}

type ResolveNodeReturns struct {
	Object ResolvedObject `json:"object"`
}

const MethodSetFileInputFiles = "DOM.setFileInputFiles"

type SetFileInputFilesParams struct {
	Files  []string `json:"files"`
	NodeID int64    `json:"nodeId,omitempty"`
}

const MethodPerformSearch = "DOM.performSearch"

type PerformSearchParams struct {
	Query                     string `json:"query"`
	IncludeUserAgentShadowDOM bool   `json:"includeUserAgentShadowDOM,omitempty"`
}

type PerformSearchReturns struct {
	SearchID    string `json:"searchId"`
	ResultCount int    `json:"resultCount"`
}

const MethodGetSearchResults = "DOM.getSearchResults"

type GetSearchResultsParams struct {
	SearchID  string `json:"searchId"`
	FromIndex int    `json:"fromIndex"`
	ToIndex   int    `json:"toIndex"`
}

type GetSearchResultsReturns struct {
	NodeIDs []int64 `json:"nodeIds"`
}

const MethodDiscardSearchResults = "DOM.discardSearchResults"

type DiscardSearchResultsParams struct {
	SearchID string `json:"searchId"`
}

const MethodFocus = "DOM.focus"

type FocusParams struct {
	NodeID int64 `json:"nodeId"`
}

// EventAttributeModified: DOM.attributeModified.
type EventAttributeModified struct {
	NodeID int64  `json:"nodeId"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

const MethodEventAttributeModified = "DOM.attributeModified"

// EventDocumentUpdated: DOM.documentUpdated. Signals that all previously
// obtained nodeIds are now invalid.
const MethodEventDocumentUpdated = "DOM.documentUpdated"
