package httpclient

import (
	"context"
	"errors"
)

// ErrReadBody marks a response whose status arrived but whose body could not be read.
var ErrReadBody = errors.New("read response body")

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// FilePart is a single file attached to a multipart request.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
//
// Implementations return a non-nil Response together with an error wrapping
// ErrReadBody when the status line was received but the body was not.
type Client interface {
	PostJSON(ctx context.Context, url string, body any, headers map[string]string) (Response, error)
	PostMultipart(ctx context.Context, url string, fields map[string]string, files []FilePart) (Response, error)
}
