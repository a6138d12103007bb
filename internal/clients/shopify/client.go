package shopify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shopify-pricing-service/internal/clients"
)

const (
	apiVersion = "2024-01"
)

// APIError is returned for non-2xx Admin API responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a per-shop Shopify Admin API client. Requests are rate limited
// to stay inside the Admin API bucket, retried on throttling and 5xx, and
// guarded by a circuit breaker.
type Client struct {
	httpClient  *http.Client
	shopDomain  string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker
}

// NewClient creates an Admin API client for one shop. shopDomain is the full
// myshopify domain, e.g. "acme.myshopify.com".
func NewClient(shopDomain, accessToken string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		shopDomain:  shopDomain,
		accessToken: accessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
		retrier:     clients.NewRetrier(nil),
		breaker:     clients.NewCircuitBreaker(5, 30*time.Second),
	}
}

var _ clients.CommerceClient = (*Client)(nil)

// TestConnection verifies the access token is still valid
func (c *Client) TestConnection(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, "GET", "/shop.json", nil, nil)
	return err
}

// GetProducts fetches one page of products with their variants
func (c *Client) GetProducts(ctx context.Context, opts *clients.ListOptions) (*clients.ProductsResult, error) {
	params := url.Values{}
	if opts != nil && opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "250")
	}
	if opts != nil && opts.Cursor != "" {
		params.Set("page_info", opts.Cursor)
	} else if opts != nil && opts.Status != "" {
		// Shopify rejects filters combined with page_info
		params.Set("status", opts.Status)
	}

	body, headers, err := c.doRequest(ctx, "GET", "/products.json", params, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	products := make([]clients.ExternalProduct, 0, len(response.Products))
	for _, p := range response.Products {
		products = append(products, convertProduct(p))
	}

	nextCursor, hasMore := "", false
	if linkHeader := headers.Get("Link"); linkHeader != "" {
		nextCursor, hasMore = parsePagination(linkHeader)
	}

	return &clients.ProductsResult{
		Products:   products,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateVariantPrice pushes a price change to one variant. A nil Price is
// omitted from the payload; SetCompareAt with a nil CompareAtPrice sends an
// explicit null, clearing the compare-at price upstream.
func (c *Client) UpdateVariantPrice(ctx context.Context, variantID int64, update clients.VariantPriceUpdate) error {
	variant := map[string]interface{}{"id": variantID}
	if update.Price != nil {
		variant["price"] = formatPrice(*update.Price)
	}
	if update.SetCompareAt {
		if update.CompareAtPrice != nil {
			variant["compare_at_price"] = formatPrice(*update.CompareAtPrice)
		} else {
			variant["compare_at_price"] = nil
		}
	}

	payload := map[string]interface{}{"variant": variant}
	_, _, err := c.doRequest(ctx, "PUT", fmt.Sprintf("/variants/%d.json", variantID), nil, payload)
	if err != nil {
		return fmt.Errorf("failed to update variant %d: %w", variantID, err)
	}
	return nil
}

// GetCollections fetches both custom and smart collections
func (c *Client) GetCollections(ctx context.Context) ([]clients.ExternalCollection, error) {
	var collections []clients.ExternalCollection
	for _, path := range []string{"/custom_collections.json", "/smart_collections.json"} {
		body, _, err := c.doRequest(ctx, "GET", path, url.Values{"limit": {"250"}}, nil)
		if err != nil {
			return nil, err
		}

		var response struct {
			CustomCollections []shopifyCollection `json:"custom_collections"`
			SmartCollections  []shopifyCollection `json:"smart_collections"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse collections response: %w", err)
		}

		for _, col := range append(response.CustomCollections, response.SmartCollections...) {
			collections = append(collections, clients.ExternalCollection{
				ID:            col.ID,
				Title:         col.Title,
				Handle:        col.Handle,
				ProductsCount: col.ProductsCount,
			})
		}
	}
	return collections, nil
}

// GetCollectionProductIDs returns the product IDs belonging to a collection,
// following cursor pagination to exhaustion.
func (c *Client) GetCollectionProductIDs(ctx context.Context, collectionID string) ([]int64, error) {
	var ids []int64
	cursor := ""
	for {
		params := url.Values{"limit": {"250"}}
		if cursor != "" {
			params.Set("page_info", cursor)
		}

		body, headers, err := c.doRequest(ctx, "GET", fmt.Sprintf("/collections/%s/products.json", collectionID), params, nil)
		if err != nil {
			return nil, err
		}

		var response struct {
			Products []struct {
				ID int64 `json:"id"`
			} `json:"products"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse collection products response: %w", err)
		}
		for _, p := range response.Products {
			ids = append(ids, p.ID)
		}

		next, hasMore := parsePagination(headers.Get("Link"))
		if !hasMore {
			return ids, nil
		}
		cursor = next
	}
}

// GetShopInfo fetches the shop profile
func (c *Client) GetShopInfo(ctx context.Context) (*clients.ShopInfo, error) {
	body, _, err := c.doRequest(ctx, "GET", "/shop.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Shop struct {
			Name   string `json:"name"`
			Email  string `json:"email"`
			Domain string `json:"myshopify_domain"`
		} `json:"shop"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse shop response: %w", err)
	}

	return &clients.ShopInfo{
		Name:   response.Shop.Name,
		Email:  response.Shop.Email,
		Domain: response.Shop.Domain,
	}, nil
}

// ExchangeAccessToken trades an OAuth authorization code for a permanent
// Admin API access token.
func ExchangeAccessToken(ctx context.Context, shopDomain, apiKey, apiSecret, code string) (*clients.TokenResult, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     apiKey,
		"client_secret": apiSecret,
		"code":          code,
	})
	if err != nil {
		return nil, err
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned empty access token")
	}

	return &clients.TokenResult{AccessToken: result.AccessToken, Scope: result.Scope}, nil
}

// VerifyWebhook verifies a Shopify webhook HMAC signature
func VerifyWebhook(payload []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("no webhook secret configured")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, http.Header, error) {
	if !c.breaker.Allow() {
		return nil, nil, fmt.Errorf("shopify API circuit open for %s", c.shopDomain)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	fullURL := fmt.Sprintf("https://%s/admin/api/%s%s", c.shopDomain, apiVersion, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
	}

	resp, err := c.retrier.DoHTTP(ctx, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, err
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		}
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.breaker.RecordSuccess()
	return respBody, resp.Header, nil
}

// Shopify data structures
type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Vendor    string           `json:"vendor"`
	Status    string           `json:"status"`
	Variants  []shopifyVariant `json:"variants"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type shopifyVariant struct {
	ID                int64   `json:"id"`
	ProductID         int64   `json:"product_id"`
	Title             string  `json:"title"`
	SKU               string  `json:"sku"`
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compare_at_price"`
	InventoryQuantity int     `json:"inventory_quantity"`
}

type shopifyCollection struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	ProductsCount int    `json:"products_count"`
}

func convertProduct(p shopifyProduct) clients.ExternalProduct {
	product := clients.ExternalProduct{
		ID:        p.ID,
		Title:     p.Title,
		Vendor:    p.Vendor,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	for _, v := range p.Variants {
		variant := clients.ExternalVariant{
			ID:                v.ID,
			ProductID:         v.ProductID,
			Title:             v.Title,
			SKU:               v.SKU,
			InventoryQuantity: v.InventoryQuantity,
		}
		variant.Price, _ = strconv.ParseFloat(v.Price, 64)
		if v.CompareAtPrice != nil && *v.CompareAtPrice != "" {
			compareAt, _ := strconv.ParseFloat(*v.CompareAtPrice, 64)
			variant.CompareAtPrice = &compareAt
		}
		product.Variants = append(product.Variants, variant)
	}

	return product
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func parsePagination(linkHeader string) (string, bool) {
	if linkHeader == "" {
		return "", false
	}
	// Format: <url>; rel="next", <url>; rel="previous"
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		urlPart := strings.TrimSpace(strings.Split(part, ";")[0])
		urlPart = strings.Trim(urlPart, "<>")
		if parsedURL, err := url.Parse(urlPart); err == nil {
			return parsedURL.Query().Get("page_info"), true
		}
	}
	return "", false
}
