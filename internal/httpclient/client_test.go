package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	body, err := Get(context.Background(), server.Client(), server.URL, map[string]string{"Authorization": "Bearer good"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	_, err = Get(context.Background(), server.Client(), server.URL, map[string]string{"Authorization": "Bearer bad"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.True(t, upstream.Unauthorized())
	assert.Contains(t, string(upstream.Body), "bad key")
}

func TestGet_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get(ctx, server.Client(), server.URL, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
