// Package claimapi submits claims to the fact-checking service over HTTP.
package claimapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-claim-checker/pkg/httpclient"
)

const (
	TextClaimPath       = "/api/claims/"
	MultimodalClaimPath = "/api/claims/multimodal"

	fieldClaimText = "claim_text"
	fieldFile      = "file"
)

// Config carries the values the client resolves once at startup.
type Config struct {
	// BaseURL is prepended to every API path. Empty means same-origin: the
	// transport resolves the relative path against its own origin.
	BaseURL string
	// DevMode enables diagnostic debug logs. It never changes requests.
	DevMode bool
}

// File is a binary payload attached to a multimodal claim.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client sends claims to the fact-checking API. It holds no mutable state and
// is safe for concurrent use.
type Client struct {
	cfg  Config
	http httpclient.Client
	log  Logger
}

// New builds a Client. A nil logger disables logging.
func New(cfg Config, hc httpclient.Client, log Logger) (*Client, error) {
	if hc == nil {
		return nil, errors.New("claimapi: http client must not be nil")
	}
	c := &Client{cfg: cfg, http: hc, log: ensureLogger(log)}
	if cfg.DevMode {
		base := cfg.BaseURL
		if base == "" {
			base = "Using proxy"
		}
		c.log.DebugObj("api base url resolved", "api_base_url", base)
	}
	return c, nil
}

// TextClaimURL is the target of SubmitTextClaim.
func (c *Client) TextClaimURL() string { return c.cfg.BaseURL + TextClaimPath }

// MultimodalClaimURL is the target of SubmitMultimodalClaim.
func (c *Client) MultimodalClaimURL() string { return c.cfg.BaseURL + MultimodalClaimPath }

type textClaimBody struct {
	ClaimText string `json:"claim_text"`
}

// SubmitTextClaim posts claimText as JSON and returns the parsed response.
func (c *Client) SubmitTextClaim(ctx context.Context, claimText string) (*Result, error) {
	url := c.TextClaimURL()
	if c.cfg.DevMode {
		c.log.DebugObj("making request", "url", url)
	}

	resp, err := c.http.PostJSON(ctx, url, textClaimBody{ClaimText: claimText}, nil)
	return c.handle("submit text claim", url, resp, err)
}

// SubmitMultimodalClaim posts claimText and file as multipart/form-data. An
// empty claimText or nil file is omitted from the form; with neither the form
// is sent empty.
func (c *Client) SubmitMultimodalClaim(ctx context.Context, claimText string, file *File) (*Result, error) {
	fields := map[string]string{}
	if claimText != "" {
		fields[fieldClaimText] = claimText
	}
	var files []httpclient.FilePart
	if file != nil {
		files = append(files, httpclient.FilePart{
			Field:       fieldFile,
			Name:        file.Name,
			ContentType: file.ContentType,
			Data:        file.Data,
		})
	}

	url := c.MultimodalClaimURL()
	if c.cfg.DevMode {
		c.log.DebugObj("making multimodal request", "url", url)
	}

	resp, err := c.http.PostMultipart(ctx, url, fields, files)
	return c.handle("submit multimodal claim", url, resp, err)
}

func (c *Client) handle(op, url string, resp httpclient.Response, err error) (*Result, error) {
	if err != nil && (resp == nil || !errors.Is(err, httpclient.ErrReadBody)) {
		terr := &TransportError{Op: op, URL: url, Err: err}
		c.log.ErrorObj("fetch error", "error", terr.Error())
		return nil, terr
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		body := NoErrorDetails
		if err == nil {
			body = string(resp.Body())
		}
		c.log.ErrorObj("api error response", "api_error", map[string]any{
			"url":    url,
			"status": status,
			"body":   body,
		})
		return nil, &APIError{StatusCode: status, Body: body}
	}

	if err != nil {
		c.log.ErrorObj("fetch error", "error", err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := parseResult(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
