package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/drewfead/calendart/internal/criterion"
)

// DefaultEndpoint is the Calendar v3 API base.
const DefaultEndpoint = "https://www.googleapis.com/calendar/v3/"

const userAgent = "calendart/1.0"

// Request is a provider call relative to the transport endpoint.
type Request struct {
	Method string
	// Path is relative to the endpoint and already escaped.
	Path   string
	Query  criterion.Query
	Header http.Header
	Body   []byte
}

// Response is the raw provider answer.
type Response struct {
	StatusCode int
	// Reason is the status line text following the code.
	Reason string
	Header http.Header
	Body   []byte
}

// Transport executes provider requests. Implementations return an error only
// for connection level failures; status codes are mapped by CheckResponse.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport sends requests with an authenticated *http.Client.
type HTTPTransport struct {
	client   *http.Client
	endpoint *url.URL
}

// NewHTTPTransport creates a transport for the Calendar API.
// Optionally accepts an endpoint URL for testing with mock servers.
func NewHTTPTransport(client *http.Client, endpoint ...string) (*HTTPTransport, error) {
	base := DefaultEndpoint
	if len(endpoint) > 0 && endpoint[0] != "" {
		base = endpoint[0]
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", base, err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPTransport{client: client, endpoint: u}, nil
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	ref, err := url.Parse(req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", req.Path, err)
	}
	u := t.endpoint.ResolveReference(ref)
	u.RawQuery = req.Query.Encode()

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, values := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrTransport, req.Method, req.Path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Header:     resp.Header,
		Body:       data,
	}, nil
}
