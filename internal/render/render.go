// Package render formats fact-check results and failures for the terminal.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samvad-hq/samvad-claim-checker/internal/config"
	"github.com/samvad-hq/samvad-claim-checker/pkg/claimapi"
	"gopkg.in/yaml.v3"
)

// Result writes res to w in the given format.
func Result(w io.Writer, format string, res *claimapi.Result) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}
	switch format {
	case config.OutputJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.Raw, "", "  "); err != nil {
			return fmt.Errorf("indent json: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res.Value); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case config.OutputText, "":
		return text(w, res)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func text(w io.Writer, res *claimapi.Result) error {
	fc, err := res.FactCheck()
	if err != nil {
		// Not an object; show it as-is.
		_, werr := fmt.Fprintf(w, "%s\n", res.Raw)
		return werr
	}

	var b strings.Builder
	line := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "%-10s %s\n", label+":", strings.TrimSpace(value))
		}
	}
	list := func(label string, items []any) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", label)
		for _, it := range items {
			fmt.Fprintf(&b, "  - %s\n", describe(it))
		}
	}

	line("Claim", fc.ClaimText)
	line("Verdict", fc.Outcome())
	line("Note", fc.CacheNote)
	line("Why", firstNonEmpty(fc.Explanation, fc.ResponseText))
	line("Research", fc.ResearchSummary)
	if sc := fc.StructuredClaim; sc != nil {
		line("Normalized", sc.Claim)
		line("Period", sc.TimePeriod)
		line("Context", sc.Context)
	}
	list("Findings", fc.Findings)
	list("Sources", fc.Sources)
	list("Evidence", fc.Evidence)

	if b.Len() == 0 {
		_, err := fmt.Fprintf(w, "%s\n", res.Raw)
		return err
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// describe renders a list item: strings verbatim, objects by their most telling field.
func describe(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		var parts []string
		for _, k := range []string{"title", "name", "finding", "url", "link"} {
			if s, ok := t[k].(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " - ")
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
