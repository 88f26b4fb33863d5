// Package opendota implements the secondary (fallback) provider adapter
// against the OpenDota REST API. Calls are unauthenticated and best-effort:
// the schema is simpler than the primary's, so some normalized fields
// (hero names, net worth, item lists) stay empty.
package opendota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/perceforge/dotafetch/pkg/provider"
)

// Name identifies this adapter in errors and logs.
const Name = "opendota"

// DefaultBaseURL is the OpenDota API root.
const DefaultBaseURL = "https://api.opendota.com"

// Config holds the adapter configuration.
type Config struct {
	// BaseURL overrides the API root (tests point it at a mock).
	BaseURL string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client is the OpenDota adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// New creates an OpenDota adapter.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		logger:     log.With().Str("component", "opendota").Logger(),
	}
}

// get executes one GET and decodes the JSON response into out. All
// failures come back as *provider.Error.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn().Str("path", path).Msg("OpenDota rate limited")
		return &provider.Error{Kind: provider.KindQuota, Provider: Name, StatusCode: resp.StatusCode, Message: "rate limited"}
	case resp.StatusCode == http.StatusNotFound:
		return &provider.Error{Kind: provider.KindNotFound, Provider: Name, StatusCode: resp.StatusCode, Message: "not found"}
	case resp.StatusCode >= 400:
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("OpenDota request error")
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "read response", Err: err}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	return nil
}

func playerPath(steamID, suffix string) string {
	return fmt.Sprintf("/api/players/%s%s", steamID, suffix)
}
