// Package provider holds the JSON-over-HTTP client shared by the payment
// provider adapters.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
)

const maxErrorBody = 4 << 10

type Client struct {
	provider domain.PaymentProvider
	baseURL  string
	apiKey   string
	client   *http.Client
}

func NewClient(provider domain.PaymentProvider, cfg config.ProviderConfig) *Client {
	return &Client{
		provider: provider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type errorBody struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Do sends in as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil). Every failure is a *domain.ProviderError.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.fail(op, 0, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fail(op, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(op, resp.StatusCode, errorMessage(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(op, resp.StatusCode, "decode response: "+err.Error())
	}
	return nil
}

func (c *Client) fail(op string, status int, msg string) error {
	return &domain.ProviderError{Provider: c.provider, Op: op, StatusCode: status, Message: msg}
}

func errorMessage(raw []byte) string {
	var e errorBody
	if json.Unmarshal(raw, &e) == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
