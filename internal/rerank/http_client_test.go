package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "quarterly goals", req.Query)
		require.NoError(t, json.NewEncoder(w).Encode(scoreResponse{Scores: []float64{0.9, 0.2}}))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "ms-marco-TinyBERT-L-2-v2")
	scores, err := c.Score(context.Background(), "quarterly goals", []string{"doc a", "doc b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.2}, scores)
}

func TestHTTPClient_Score_EmptyDocs(t *testing.T) {
	c := NewHTTPClient("http://unused.invalid", "m")
	scores, err := c.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestHTTPClient_Score_UpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "m")
	_, err := c.Score(context.Background(), "q", []string{"d"})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.UpstreamUnavailable, kind)
}
