package bosh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdhttp "net/http"

	"github.com/vovakirdan/kgchat/internal/config"
)

// Transport posts one BOSH body and returns the raw response body.
// The session layer owns request ids and serialization; the transport is
// a dumb pipe. Tests substitute a scripted implementation.
type Transport interface {
	Post(ctx context.Context, payload []byte) ([]byte, error)
}

// HTTPTransport talks to the real BOSH endpoint.
type HTTPTransport struct {
	url     string
	headers config.Headers
	client  *stdhttp.Client
}

// NewHTTP builds a transport for the given endpoint. No overall client
// timeout: a poll request legitimately blocks for the full server-side
// wait interval, so cancellation is the caller's context.
func NewHTTP(url string, headers config.Headers) *HTTPTransport {
	return &HTTPTransport{
		url:     url,
		headers: headers,
		client:  &stdhttp.Client{},
	}
}

// Post sends one body element and reads the full response.
func (t *HTTPTransport) Post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	if t.headers.Origin != "" {
		req.Header.Set("Origin", t.headers.Origin)
	}
	if t.headers.Referer != "" {
		req.Header.Set("Referer", t.headers.Referer)
	}
	if t.headers.UserAgent != "" {
		req.Header.Set("User-Agent", t.headers.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post body: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		return nil, fmt.Errorf("post body: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
