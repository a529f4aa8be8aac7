package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"shop-bot/internal/domain"
	"shop-bot/internal/integrations/apiclient"
)

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient(" ")
	require.ErrorContains(t, err, "base url")
}

func TestProductsFor_PostsShoppingState(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/Products/ProductByCategorie", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `[
			{"name":"Trail Boot","price":120,"image":"https://img/boot.jpg","categorie":"Boots"},
			{"name":"City Boot","price":80.5,"image":"https://img/city.jpg","categorie":"Boots"}
		]`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	products, err := c.ProductsFor(context.Background(), domain.ShoppingState{Category: "Boots"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, domain.Product{Name: "City Boot", Price: 80.5, Image: "https://img/city.jpg", Categorie: "Boots"}, products[1])

	require.Equal(t, "Boots", got["categorie"])
	require.Equal(t, float64(0), got["priceMin"])
	require.Equal(t, float64(0), got["priceMax"])
}

func TestProductsFor_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	products, err := c.ProductsFor(context.Background(), domain.ShoppingState{})
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestProductsFor_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.ProductsFor(context.Background(), domain.ShoppingState{Category: "Boots"})
	var statusErr *apiclient.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
