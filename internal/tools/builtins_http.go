package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	httpFetchTimeout  = 10 * time.Second
	httpFetchMaxBytes = 64 * 1024
)

// HTTPFetchArgs are the parameters of the http_fetch tool.
type HTTPFetchArgs struct {
	URL string `json:"url" jsonschema:"required,description=Absolute http(s) URL to fetch."`
}

// RegisterHTTPTool registers http_fetch, a bounded read-only GET a skill can
// use to pull external context. Only http/https schemes are permitted, and
// the response body is capped so a misbehaving or malicious endpoint cannot
// exhaust the agent loop's memory or the model's context window.
func RegisterHTTPTool(r *Registry) error {
	client := &http.Client{Timeout: httpFetchTimeout}
	return Register(r, "http_fetch", "Fetch the body of a URL over HTTP(S).",
		func(ctx context.Context, args HTTPFetchArgs) (any, error) {
			if args.URL == "" {
				return nil, errRequired("url")
			}
			if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
				return fmt.Sprintf("Error: unsupported URL scheme: %s", args.URL), nil
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
			if err != nil {
				return nil, fmt.Errorf("building request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return fmt.Sprintf("Error fetching %s: %v", args.URL, err), nil
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, httpFetchMaxBytes))
			if err != nil {
				return nil, fmt.Errorf("reading response body: %w", err)
			}

			return map[string]any{
				"status_code": resp.StatusCode,
				"body":        string(body),
				"truncated":   resp.ContentLength > httpFetchMaxBytes,
			}, nil
		})
}
