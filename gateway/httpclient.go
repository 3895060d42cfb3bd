// Package gateway holds the outbound HTTP clients for the four services the
// orchestrator depends on, plus mutex-guarded in-memory fakes of each used
// by tests.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ordersaga/correlation"
)

// jsonClient is the shared transport every gateway client embeds: a plain
// net/http.Client against a base URL, posting and decoding JSON bodies and
// propagating the correlation id as a header on every outbound call.
type jsonClient struct {
	baseURL string
	http    *http.Client
}

func newJSONClient(baseURL string, timeout time.Duration) jsonClient {
	return jsonClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// doJSON issues method to path with body marshalled as JSON (nil body is
// allowed for GET), decodes the response into out (nil to discard the
// body), and returns the status code alongside any transport/decode error.
func (c jsonClient) doJSON(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("gateway: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cid := correlation.FromContext(ctx); cid != "" {
		req.Header.Set(correlation.HeaderName, cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("gateway: decode response from %s %s: %w", method, path, err)
		}
	}

	return resp.StatusCode, nil
}
