// Package suggest wraps the external category-suggestion service. The
// service is best-effort: callers fall back to a default category whenever
// it is unreachable or answers nonsense, and product creation never blocks
// on it.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Suggester proposes a category for a product given its name and price.
type Suggester interface {
	SuggestCategory(ctx context.Context, name string, price float64) (string, error)
}

type Client struct {
	http *resty.Client
}

// NewClient builds a suggester talking to the remote service at baseURL.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("content-type", "application/json").
		SetTimeout(5 * time.Second)
	if apiKey != "" {
		client.SetHeader("x-api-key", apiKey)
	}
	return &Client{http: client}
}

type suggestRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type suggestResponse struct {
	Category string `json:"category"`
}

func (c *Client) SuggestCategory(ctx context.Context, name string, price float64) (string, error) {
	var body suggestResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(suggestRequest{Name: name, Price: price}).
		SetResult(&body).
		Post("/v1/suggest")
	if err != nil {
		return "", fmt.Errorf("suggest category: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("suggest category: %s", resp.Status())
	}
	category := strings.TrimSpace(body.Category)
	if category == "" {
		return "", fmt.Errorf("suggest category: empty answer")
	}
	return category, nil
}

// Static always answers with a fixed category. It stands in for the remote
// service when none is configured.
type Static string

func (s Static) SuggestCategory(context.Context, string, float64) (string, error) {
	return string(s), nil
}
