package adapter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 120 * time.Second
	maxResponseBody = 10 << 20
)

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON posts a JSON body and returns the status plus response bytes.
// Non-2xx statuses are handed back to the caller, which decides what counts
// as failure for its protocol. The API key goes out both as a bearer token
// and as X-API-Key; custom headers can override either.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, headers, apiKey)
	return do(client, req)
}

func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	setAuth(req, headers, apiKey)
	return do(client, req)
}

func setAuth(req *http.Request, headers map[string]string, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("X-API-Key", apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func do(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// baseURLOf strips a known operation path from a full endpoint URL, giving
// the base URL that SDK clients append their own paths to. The first suffix
// found wins.
func baseURLOf(endpoint string, opPaths ...string) string {
	for _, op := range opPaths {
		if i := strings.LastIndex(endpoint, op); i > 0 {
			return endpoint[:i] + "/"
		}
	}
	return strings.TrimRight(endpoint, "/") + "/"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
