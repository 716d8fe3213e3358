package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/things", r.URL.Path)
		var in map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]int{"double": in["n"] * 2})
	}))
	defer srv.Close()

	c := NewClient(domain.ProviderCard, config.ProviderConfig{BaseURL: srv.URL + "/", APIKey: "sk_test", TimeoutSeconds: 5})
	var out struct {
		Double int `json:"double"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/v1/things", map[string]int{"n": 21}, &out))
	assert.Equal(t, 42, out.Double)
}

func TestClient_Do_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient funds"}}`))
	}))
	defer srv.Close()

	c := NewClient(domain.ProviderBNPLA, config.ProviderConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	err := c.Do(context.Background(), http.MethodGet, "/payments/p1", nil, nil)

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	var perr *domain.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusPaymentRequired, perr.StatusCode)
	assert.Equal(t, "insufficient funds", perr.Message)
	assert.Equal(t, domain.ProviderBNPLA, perr.Provider)
}

func TestClient_Do_Unreachable(t *testing.T) {
	c := NewClient(domain.ProviderCard, config.ProviderConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1})
	err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
