package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures the resty transport.
type Options struct {
	// Timeout bounds a whole request. Zero leaves requests unbounded.
	Timeout time.Duration
	// Origin resolves relative request URLs, e.g. "http://localhost:8000".
	Origin string
	// Logger receives resty's own warnings and errors.
	Logger resty.Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient from opts.
func NewRestyClient(opts Options) *RestyClient {
	c := newRestyBaseClient(opts.Timeout)
	if opts.Origin != "" {
		c.SetBaseURL(opts.Origin)
	}
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	return c
}

// PostJSON sends body encoded as JSON.
func (r *RestyClient) PostJSON(ctx context.Context, target string, body any, headers map[string]string) (Response, error) {
	req := r.client.R().
		SetContext(ctx).
		SetBody(body)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	req.SetHeader("Content-Type", "application/json")

	return adapt(req.Execute(http.MethodPost, target))
}

// PostMultipart sends fields and files as multipart/form-data. The Content-Type
// header, including the boundary, is produced by resty. A form with no parts is
// still sent as a multipart body holding only the closing boundary.
func (r *RestyClient) PostMultipart(ctx context.Context, target string, fields map[string]string, files []FilePart) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(fields) == 0 && len(files) == 0 {
		body, contentType, err := emptyMultipartBody()
		if err != nil {
			return nil, err
		}
		req.SetHeader("Content-Type", contentType).SetBody(body)
		return adapt(req.Execute(http.MethodPost, target))
	}

	if fields == nil {
		fields = map[string]string{}
	}
	req.SetMultipartFormData(fields)
	for _, f := range files {
		req.SetMultipartField(f.Field, f.Name, f.ContentType, bytes.NewReader(f.Data))
	}

	return adapt(req.Execute(http.MethodPost, target))
}

func emptyMultipartBody() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("build empty multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// adapt converts resty's result, separating body read failures from transport
// failures. net/http reports redirect and connection failures as *url.Error even
// when a response is attached; those stay transport failures.
func adapt(resp *resty.Response, err error) (Response, error) {
	if err != nil {
		var urlErr *url.Error
		if resp != nil && resp.RawResponse != nil && !errors.As(err, &urlErr) {
			return &restyResponseAdapter{resp: resp}, fmt.Errorf("%w: %v", ErrReadBody, err)
		}
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
