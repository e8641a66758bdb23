package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-claim-checker/pkg/claimapi"
)

const maxErrorDetail = 300

// DescribeError turns err into a single human-readable line. HTML error pages
// returned by proxies are reduced to their title or visible text.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *claimapi.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	detail := strings.TrimSpace(apiErr.Body)
	if looksLikeHTML(detail) {
		if summary := htmlSummary(detail); summary != "" {
			detail = summary
		}
	} else if msg := jsonDetail(detail); msg != "" {
		detail = msg
	}
	return fmt.Sprintf("API error: %d - %s", apiErr.StatusCode, truncate(detail, maxErrorDetail))
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") ||
		(strings.HasPrefix(lower, "<") && strings.Contains(lower, "</"))
}

func htmlSummary(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	heading := strings.TrimSpace(doc.Find("h1").First().Text())
	switch {
	case title != "" && heading != "" && heading != title:
		return title + ": " + heading
	case title != "":
		return title
	case heading != "":
		return heading
	}
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// jsonDetail extracts the message from {"detail": ...} or {"error": ...} bodies.
func jsonDetail(body string) string {
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "error", "message"} {
		switch v := doc[k].(type) {
		case string:
			return v
		case nil:
			continue
		default:
			raw, _ := json.Marshal(v)
			return string(raw)
		}
	}
	return ""
}
