package claimapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-claim-checker/pkg/httpclient"
)

type logCall struct {
	level string
	msg   string
	key   string
	obj   interface{}
}

type recordingLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (r *recordingLogger) add(level, msg, key string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, logCall{level: level, msg: msg, key: key, obj: obj})
}

func (r *recordingLogger) InfoObj(msg, key string, obj interface{})  { r.add("info", msg, key, obj) }
func (r *recordingLogger) DebugObj(msg, key string, obj interface{}) { r.add("debug", msg, key, obj) }
func (r *recordingLogger) WarnObj(msg, key string, obj interface{})  { r.add("warn", msg, key, obj) }
func (r *recordingLogger) ErrorObj(msg, key string, obj interface{}) { r.add("error", msg, key, obj) }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.level == level {
			n++
		}
	}
	return n
}

// fakeHTTP returns canned responses and records what it was asked to send.
type fakeHTTP struct {
	resp httpclient.Response
	err  error

	url    string
	body   any
	fields map[string]string
	files  []httpclient.FilePart
}

func (f *fakeHTTP) PostJSON(_ context.Context, url string, body any, _ map[string]string) (httpclient.Response, error) {
	f.url = url
	f.body = body
	return f.resp, f.err
}

func (f *fakeHTTP) PostMultipart(_ context.Context, url string, fields map[string]string, files []httpclient.FilePart) (httpclient.Response, error) {
	f.url = url
	f.fields = fields
	f.files = files
	return f.resp, f.err
}

type cannedResponse struct {
	status int
	body   []byte
}

func (c cannedResponse) Body() []byte    { return c.body }
func (c cannedResponse) StatusCode() int { return c.status }

func newTestClient(t *testing.T, baseURL string, log Logger) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL}, httpclient.NewRestyClient(httpclient.Options{}), log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSubmitTextClaimSendsJSONBody(t *testing.T) {
	claims := []string{
		"The Eiffel Tower is in Paris",
		`quotes "inside" and <tags> & ampersands`,
		"unicode: चंद्रयान-3 चंद्रमा पर उतरा",
	}
	for _, claim := range claims {
		var got map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Fatalf("expected POST, got %s", r.Method)
			}
			if r.URL.Path != TextClaimPath {
				t.Fatalf("path = %q", r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Fatalf("Content-Type = %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		}))

		client := newTestClient(t, srv.URL, nil)
		if _, err := client.SubmitTextClaim(context.Background(), claim); err != nil {
			srv.Close()
			t.Fatalf("SubmitTextClaim(%q): %v", claim, err)
		}
		srv.Close()

		if len(got) != 1 || got["claim_text"] != claim {
			t.Fatalf("body = %#v, want claim_text %q", got, claim)
		}
	}
}

func TestClaimURLsPrependBaseURL(t *testing.T) {
	cases := []string{"", "https://api.example.com", "http://localhost:8000/prefix"}
	for _, base := range cases {
		client := newTestClient(t, base, nil)
		if got := client.TextClaimURL(); got != base+"/api/claims/" {
			t.Fatalf("TextClaimURL(%q) = %q", base, got)
		}
		if got := client.MultimodalClaimURL(); got != base+"/api/claims/multimodal" {
			t.Fatalf("MultimodalClaimURL(%q) = %q", base, got)
		}
	}
}

func TestSubmitTargetsMatchURLs(t *testing.T) {
	fake := &fakeHTTP{resp: cannedResponse{status: 200, body: []byte(`{}`)}}
	client, err := New(Config{BaseURL: "https://api.example.com", DevMode: true}, fake, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.SubmitTextClaim(context.Background(), "x"); err != nil {
		t.Fatalf("SubmitTextClaim: %v", err)
	}
	if fake.url != "https://api.example.com/api/claims/" {
		t.Fatalf("text url = %q", fake.url)
	}
	if _, err := client.SubmitMultimodalClaim(context.Background(), "x", nil); err != nil {
		t.Fatalf("SubmitMultimodalClaim: %v", err)
	}
	if fake.url != "https://api.example.com/api/claims/multimodal" {
		t.Fatalf("multimodal url = %q", fake.url)
	}
}

func TestSubmitTextClaimReturnsParsedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"verdict":"true"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, nil).SubmitTextClaim(context.Background(), "claim")
	if err != nil {
		t.Fatalf("SubmitTextClaim: %v", err)
	}
	want := map[string]any{"verdict": "true"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("Value = %#v, want %#v", res.Value, want)
	}
	if string(res.Raw) != `{"verdict":"true"}` {
		t.Fatalf("Raw = %s", res.Raw)
	}
}

func TestSubmitTextClaimAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "server error")
	}))
	defer srv.Close()

	log := &recordingLogger{}
	_, err := newTestClient(t, srv.URL, log).SubmitTextClaim(context.Background(), "claim")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 500 {
		t.Fatalf("StatusCode = %d", apiErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Fatalf("error message %q missing body", err.Error())
	}
	if status, ok := StatusCode(err); !ok || status != 500 {
		t.Fatalf("StatusCode(err) = %d, %v", status, ok)
	}
	if log.count("error") == 0 {
		t.Fatalf("expected api error to be logged")
	}
}

func TestSubmitMultimodalClaimFileOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != MultimodalClaimPath {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if _, ok := r.MultipartForm.Value["claim_text"]; ok {
			t.Fatalf("claim_text must be absent")
		}
		if len(r.MultipartForm.File["file"]) != 1 {
			t.Fatalf("expected file field, got %v", r.MultipartForm.File)
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	file := &File{Name: "x.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	if _, err := newTestClient(t, srv.URL, nil).SubmitMultimodalClaim(context.Background(), "", file); err != nil {
		t.Fatalf("SubmitMultimodalClaim: %v", err)
	}
}

func TestSubmitMultimodalClaimTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Fatalf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.MultipartForm.Value["claim_text"]; len(got) != 1 || got[0] != "claim" {
			t.Fatalf("claim_text = %v", got)
		}
		if len(r.MultipartForm.File["file"]) != 0 {
			t.Fatalf("file must be absent")
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL, nil).SubmitMultimodalClaim(context.Background(), "claim", nil); err != nil {
		t.Fatalf("SubmitMultimodalClaim: %v", err)
	}
}

func TestSubmitMultimodalClaimNeitherSendsEmptyForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != MultimodalClaimPath {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Fatalf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if len(r.MultipartForm.Value) != 0 || len(r.MultipartForm.File) != 0 {
			t.Fatalf("expected empty form, got %v %v", r.MultipartForm.Value, r.MultipartForm.File)
		}
		_, _ = io.WriteString(w, `{"error":"Either claim_text or file must be provided"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	res, err := client.SubmitMultimodalClaim(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("SubmitMultimodalClaim: %v", err)
	}
	if !strings.Contains(string(res.Raw), "Either claim_text or file") {
		t.Fatalf("raw = %s", res.Raw)
	}
}

func TestRedirectLoopIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.SubmitTextClaim(context.Background(), "claim")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if _, ok := StatusCode(err); ok {
		t.Fatalf("redirect failure must not carry a status")
	}
}

func TestErrorBodyReadFailureUsesPlaceholder(t *testing.T) {
	fake := &fakeHTTP{
		resp: cannedResponse{status: 502},
		err:  httpclient.ErrReadBody,
	}
	client, err := New(Config{}, fake, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.SubmitTextClaim(context.Background(), "claim")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 502 || apiErr.Body != "No error details" {
		t.Fatalf("apiErr = %#v", apiErr)
	}
	if err.Error() != "API error: 502 - No error details" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	log := &recordingLogger{}
	client, err := New(Config{BaseURL: "http://127.0.0.1:1"}, &fakeHTTP{err: boom}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.SubmitTextClaim(context.Background(), "claim")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause")
	}
	if _, ok := StatusCode(err); ok {
		t.Fatalf("transport error must not carry a status")
	}
	if log.count("error") != 1 {
		t.Fatalf("expected one error log, got %d", log.count("error"))
	}
}

func TestSuccessWithInvalidJSON(t *testing.T) {
	fake := &fakeHTTP{resp: cannedResponse{status: 200, body: []byte("<html>not json</html>")}}
	client, err := New(Config{}, fake, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.SubmitTextClaim(context.Background(), "claim"); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestDevModeGatesDebugLogs(t *testing.T) {
	fake := &fakeHTTP{resp: cannedResponse{status: 200, body: []byte(`{}`)}}

	quiet := &recordingLogger{}
	client, _ := New(Config{}, fake, quiet)
	_, _ = client.SubmitTextClaim(context.Background(), "claim")
	if quiet.count("debug") != 0 {
		t.Fatalf("expected no debug logs outside dev mode")
	}

	loud := &recordingLogger{}
	client, _ = New(Config{DevMode: true}, fake, loud)
	_, _ = client.SubmitTextClaim(context.Background(), "claim")
	if loud.count("debug") != 2 {
		t.Fatalf("expected base url and target url debug logs, got %d", loud.count("debug"))
	}
	if loud.calls[0].obj != "Using proxy" {
		t.Fatalf("empty base url should log as proxy, got %v", loud.calls[0].obj)
	}
}

func TestNewRejectsNilTransport(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

func TestFactCheckView(t *testing.T) {
	res, err := parseResult([]byte(`{
		"claim_text": "Mount Everest is 8,849 m",
		"status": "✅ True",
		"explanation": "Confirmed by the 2020 survey.",
		"sources": ["https://example.com/a", {"title": "b"}],
		"structured_claim": {"claim": "Everest height", "entities": ["Everest"]}
	}`))
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	fc, err := res.FactCheck()
	if err != nil {
		t.Fatalf("FactCheck: %v", err)
	}
	if fc.Outcome() != "✅ True" || len(fc.Sources) != 2 {
		t.Fatalf("unexpected view %#v", fc)
	}
	if fc.StructuredClaim == nil || fc.StructuredClaim.Claim != "Everest height" {
		t.Fatalf("structured claim = %#v", fc.StructuredClaim)
	}
}
