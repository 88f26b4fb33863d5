// Package stratz implements the primary provider adapter against the Stratz
// GraphQL API. Calls are bearer-token authenticated; the token is supplied
// per call so the orchestrator can rotate it through the key pool.
package stratz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/perceforge/dotafetch/pkg/provider"
)

// Name identifies this adapter in errors and logs.
const Name = "stratz"

// DefaultBaseURL is the Stratz GraphQL endpoint.
const DefaultBaseURL = "https://api.stratz.com/graphql"

// Config holds the adapter configuration.
type Config struct {
	// BaseURL overrides the GraphQL endpoint (tests point it at a mock).
	BaseURL string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client is the Stratz adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// New creates a Stratz adapter.
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
		logger:     log.With().Str("component", "stratz").Logger(),
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

// do executes one GraphQL request and decodes the data payload into out.
// All failures come back as *provider.Error.
func (c *Client) do(ctx context.Context, token, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "marshal query", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Stratz request error")
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "read response", Err: err}
	}

	var gql gqlResponse
	if err := json.Unmarshal(data, &gql); err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	// 2xx responses can still carry GraphQL-level errors.
	if len(gql.Errors) > 0 {
		return classifyGQLError(gql.Errors[0].Message)
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: resp.StatusCode, Message: "malformed data payload", Err: err}
	}

	return nil
}

// classifyStatus maps HTTP status codes into the error taxonomy. 429 and
// 403 both signal token exhaustion at Stratz.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusForbidden:
		return &provider.Error{Kind: provider.KindQuota, Provider: Name, StatusCode: status, Message: "quota exceeded"}
	case status == http.StatusNotFound:
		return &provider.Error{Kind: provider.KindNotFound, Provider: Name, StatusCode: status, Message: "not found"}
	case status >= 400:
		return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: status, Message: http.StatusText(status)}
	default:
		return nil
	}
}

// classifyGQLError maps a GraphQL error message. The adapter owns this
// sniffing so the orchestrator never has to inspect message text.
func classifyGQLError(msg string) error {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "rate") || strings.Contains(lower, "quota") || strings.Contains(lower, "limit") {
		return &provider.Error{Kind: provider.KindQuota, Provider: Name, StatusCode: http.StatusOK, Message: msg}
	}
	return &provider.Error{Kind: provider.KindTransient, Provider: Name, StatusCode: http.StatusOK, Message: msg}
}

func parseSteamID(steamID string) (int64, error) {
	id, err := strconv.ParseInt(steamID, 10, 64)
	if err != nil {
		return 0, &provider.Error{Kind: provider.KindNotFound, Provider: Name,
			Message: fmt.Sprintf("invalid steam account id %q", steamID), Err: err}
	}
	return id, nil
}
