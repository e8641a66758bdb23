package claimapi

import (
	"encoding/json"
	"fmt"
)

// Result is the JSON document returned by the fact-checking service. The client
// does not validate its shape.
type Result struct {
	Raw   json.RawMessage
	Value any
}

func parseResult(body []byte) (*Result, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return &Result{Raw: raw, Value: v}, nil
}

// Decode unmarshals the raw document into v.
func (r *Result) Decode(v any) error {
	if r == nil {
		return fmt.Errorf("nil result")
	}
	return json.Unmarshal(r.Raw, v)
}

// FactCheck is a loose view over the fields the service is known to return.
// Missing fields are left empty.
type FactCheck struct {
	ClaimText       string           `json:"claim_text"`
	Status          string           `json:"status"`
	Explanation     string           `json:"explanation"`
	Sources         []any            `json:"sources"`
	ResearchSummary string           `json:"research_summary"`
	Findings        []any            `json:"findings"`
	StructuredClaim *StructuredClaim `json:"structured_claim"`
	Cached          bool             `json:"cached"`
	CacheNote       string           `json:"cache_note"`
	ResponseText    string           `json:"response_text"`
	Verdict         string           `json:"verdict"`
	Evidence        []any            `json:"evidence"`
	Error           string           `json:"error"`
}

// StructuredClaim is the service's normalised form of the submitted claim.
type StructuredClaim struct {
	Claim      string `json:"claim"`
	Entities   []any  `json:"entities"`
	TimePeriod string `json:"time_period"`
	Context    string `json:"context"`
}

// FactCheck decodes the result into the FactCheck view. Non-object documents
// yield an error.
func (r *Result) FactCheck() (FactCheck, error) {
	var fc FactCheck
	if err := r.Decode(&fc); err != nil {
		return FactCheck{}, fmt.Errorf("decode fact check: %w", err)
	}
	return fc, nil
}

// Outcome returns the first non-empty verdict-like field.
func (fc FactCheck) Outcome() string {
	for _, v := range []string{fc.Status, fc.Verdict, fc.Error} {
		if v != "" {
			return v
		}
	}
	return ""
}
