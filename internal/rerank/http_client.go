package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

// HTTPClient scores query/document pairs against a remote cross-encoder
// endpoint, grounded on the same health-check-then-POST shape as
// internal/embed.HTTPClient (both descend from the prior LocalProvider).
type HTTPClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewHTTPClient builds a client targeting endpoint for the named rerank
// model.
func NewHTTPClient(endpoint, model string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) ModelID() string { return c.model }

type scoreRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Docs  []string `json:"docs"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Score posts the query and candidate documents to the rerank endpoint and
// returns one score per document. Any transport or protocol failure is
// classified UpstreamUnavailable.
func (c *HTTPClient) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "rerank request cancelled")
	default:
	}

	if len(docs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(scoreRequest{Model: c.model, Query: query, Docs: docs})
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "marshaling rerank request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "building rerank request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, err, "rerank request to %s failed", c.endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.UpstreamUnavailable, "rerank endpoint %s returned status %d", c.endpoint, resp.StatusCode)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, err, "decoding rerank response")
	}
	if len(decoded.Scores) != len(docs) {
		return nil, apperr.New(apperr.UpstreamUnavailable, "rerank endpoint returned %d scores for %d docs", len(decoded.Scores), len(docs))
	}
	return decoded.Scores, nil
}
