package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shop-bot/internal/domain"
	"shop-bot/internal/integrations/apiclient"
)

const productsByCategoryPath = "api/Products/ProductByCategorie"

// Client queries the product catalog service.
type Client struct {
	baseURL string
	api     *apiclient.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.api = apiclient.New(httpClient)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog: base url must not be empty")
	}
	c := &Client{baseURL: baseURL, api: apiclient.New(nil)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProductsFor posts the shopping record as the filter and returns the matches.
func (c *Client) ProductsFor(ctx context.Context, filter domain.ShoppingState) ([]domain.Product, error) {
	var products []domain.Product
	err := c.api.Do(ctx, http.MethodPost, apiclient.JoinURL(c.baseURL, productsByCategoryPath), nil, filter, &products)
	if err != nil {
		return nil, fmt.Errorf("catalog: products by category: %w", err)
	}
	return products, nil
}
