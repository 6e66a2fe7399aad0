package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inventory-service/internal/apperr"
)

// HTTPProductCatalog resolves product and variant names from the
// product catalog service
type HTTPProductCatalog struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProductCatalog creates a catalog client with the given timeout
func NewHTTPProductCatalog(baseURL string, timeout time.Duration) *HTTPProductCatalog {
	return &HTTPProductCatalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type catalogProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Variants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"variants"`
}

// ProductName looks up display names for a product and, when set, one
// of its variants
func (c *HTTPProductCatalog) ProductName(ctx context.Context, productID, variantID string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("catalog lookup failed: %w: %v", apperr.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("catalog returned status %d: %w", resp.StatusCode, apperr.ErrDependency)
	}

	var product catalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return "", "", fmt.Errorf("failed to decode catalog response: %w", err)
	}

	variantName := ""
	for _, v := range product.Variants {
		if v.ID == variantID {
			variantName = v.Name
			break
		}
	}

	return product.Name, variantName, nil
}
