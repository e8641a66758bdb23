package publishers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-claim-checker/pkg/claimapi"
)

// Claim kinds, derived from the endpoint a claim was submitted to.
const (
	KindText       = "text"
	KindMultimodal = "multimodal"
)

// Event attribute keys a sink may forward as message attributes.
const (
	AttrStatus   = "status"
	AttrEndpoint = "endpoint"
	AttrKind     = "kind"
	AttrFileName = "file_name"
)

var defaultAttributes = []string{AttrStatus, AttrEndpoint}

// Event is a fact-check verdict published downstream.
type Event struct {
	ClaimText string          `json:"claim_text,omitempty"`
	FileName  string          `json:"file_name,omitempty"`
	Endpoint  string          `json:"endpoint"`
	Status    string          `json:"status,omitempty"`
	Result    json.RawMessage `json:"result"`
	CheckedAt time.Time       `json:"checked_at"`
}

// NewEvent constructs an Event for a completed check. status is the verdict
// label reported by the service, e.g. "❌ False".
func NewEvent(claimText, fileName, endpoint, status string, result json.RawMessage) Event {
	return Event{
		ClaimText: claimText,
		FileName:  fileName,
		Endpoint:  endpoint,
		Status:    status,
		Result:    result,
		CheckedAt: time.Now().UTC(),
	}
}

// Kind reports whether the claim went to the text or the multimodal endpoint.
func (e Event) Kind() string {
	if strings.HasSuffix(strings.TrimRight(e.Endpoint, "/"), claimapi.MultimodalClaimPath) {
		return KindMultimodal
	}
	return KindText
}

func (e Event) attribute(key string) string {
	switch key {
	case AttrStatus:
		return e.Status
	case AttrEndpoint:
		return e.Endpoint
	case AttrKind:
		return e.Kind()
	case AttrFileName:
		return e.FileName
	}
	return ""
}

// attributes returns the non-empty values for keys. Queue-style sinks reject
// empty attribute values, so those are left out.
func (e Event) attributes(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := e.attribute(k); v != "" {
			out[k] = v
		}
	}
	return out
}

func knownAttribute(key string) bool {
	switch key {
	case AttrStatus, AttrEndpoint, AttrKind, AttrFileName:
		return true
	}
	return false
}

// Route selects which verdicts reach a sink. Empty lists match everything.
type Route struct {
	// Kinds limits delivery to text and/or multimodal claims.
	Kinds []string `json:"kinds" yaml:"kinds"`
	// Statuses matches verdict labels case-insensitively by substring, so
	// "false" matches "❌ False".
	Statuses []string `json:"statuses" yaml:"statuses"`
}

// Matches reports whether evt should be delivered.
func (r Route) Matches(evt Event) bool {
	if len(r.Kinds) > 0 && !containsFold(r.Kinds, evt.Kind()) {
		return false
	}
	if len(r.Statuses) == 0 {
		return true
	}
	status := strings.ToLower(evt.Status)
	if status == "" {
		return false
	}
	for _, s := range r.Statuses {
		if strings.Contains(status, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
