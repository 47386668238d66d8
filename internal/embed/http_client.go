package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

// HTTPClient is an Embedder that talks to a remote embedding endpoint over
// HTTP, grounded on the prior LocalProvider health-check-then-POST
// pattern (internal/embed/client/local.go), generalized from a
// locally-managed subprocess to an arbitrary configured endpoint, since the
// embedding model is always an external collaborator the core never
// launches itself.
type HTTPClient struct {
	endpoint   string
	model      string
	dimensions int
	apiKey     string
	client     *http.Client
	rotator    CredentialRotator
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithCredentialRotator wires in a rotation collaborator for QuotaExhausted
// handling. Without one, QuotaExhausted responses surface immediately as
// QuotaExhausted errors.
func WithCredentialRotator(r CredentialRotator) Option {
	return func(c *HTTPClient) { c.rotator = r }
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// NewHTTPClient builds a client targeting endpoint for the named model.
// dimensions is fixed at construction since the vector repository
// requires a stable embedding dimensionality for the life of a collection.
func NewHTTPClient(endpoint, model, apiKey string, dimensions int, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Dimensions() int  { return c.dimensions }
func (c *HTTPClient) ModelID() string { return c.model }

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed posts texts to the configured endpoint and returns their vectors in
// the same order. A 429 response is classified QuotaExhausted and, if a
// CredentialRotator is configured, retried once after a successful
// rotation; any other transport failure or status other than 200 is
// UpstreamUnavailable.
func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.doEmbed(ctx, texts)
	if err == nil {
		return vectors, nil
	}

	kind, ok := apperr.KindOf(err)
	if !ok || kind != apperr.QuotaExhausted || c.rotator == nil {
		return nil, err
	}

	if _, rotated := c.rotator.Rotate(ctx); !rotated {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, err, "embedding quota exhausted and no credential available to rotate to")
	}
	return c.doEmbed(ctx, texts)
}

func (c *HTTPClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "embed request cancelled")
	default:
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Texts: texts})
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "marshaling embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "building embed request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, err, "embedding request to %s failed", c.endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperr.New(apperr.QuotaExhausted, "embedding endpoint %s returned 429", c.endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.UpstreamUnavailable, "embedding endpoint %s returned status %d", c.endpoint, resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, err, "decoding embed response")
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, apperr.New(apperr.UpstreamUnavailable, "embedding endpoint returned %d vectors for %d texts", len(decoded.Embeddings), len(texts))
	}
	return decoded.Embeddings, nil
}

// HealthCheck reports whether the embedding endpoint is currently reachable,
// mirroring the prior isHealthy probe.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return apperr.Wrap(apperr.IOError, err, "building health check request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, err, "embedding endpoint %s unreachable", c.endpoint)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.UpstreamUnavailable, "embedding endpoint %s unhealthy: status %d", c.endpoint, resp.StatusCode)
	}
	return nil
}
