package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
)

// OAuthScopes are the Admin API scopes the app requests at install time
const OAuthScopes = "read_products,write_products,read_inventory,write_inventory"

// TokenExchangeFunc swaps an OAuth authorization code for an access token.
// Production wires shopify.ExchangeAccessToken; tests substitute a stub.
type TokenExchangeFunc func(ctx context.Context, shopDomain, code string) (*clients.TokenResult, error)

// ShopService handles app installation via the Shopify OAuth flow
type ShopService struct {
	shopRepo   repository.ShopRepositoryInterface
	clientFor  ClientFactory
	exchange   TokenExchangeFunc
	audit      *AuditService
	logger     *logrus.Logger
	apiKey     string
	appBaseURL string
}

// NewShopService creates a new shop service
func NewShopService(
	shopRepo repository.ShopRepositoryInterface,
	clientFor ClientFactory,
	exchange TokenExchangeFunc,
	audit *AuditService,
	logger *logrus.Logger,
	apiKey string,
	appBaseURL string,
) *ShopService {
	return &ShopService{
		shopRepo:   shopRepo,
		clientFor:  clientFor,
		exchange:   exchange,
		audit:      audit,
		logger:     logger,
		apiKey:     apiKey,
		appBaseURL: appBaseURL,
	}
}

// InstallURL issues a single-use state nonce and builds the Shopify OAuth
// authorize URL the merchant is redirected to.
func (s *ShopService) InstallURL(ctx context.Context, shopDomain string, returnURL string) (string, error) {
	if !validShopDomain(shopDomain) {
		return "", fmt.Errorf("%w: invalid shop domain %q", ErrInvalidCampaign, shopDomain)
	}

	state := &models.OAuthState{
		State:      uuid.New().String(),
		ShopDomain: shopDomain,
	}
	if returnURL != "" {
		state.ReturnURL = &returnURL
	}
	if err := s.shopRepo.CreateOAuthState(ctx, state); err != nil {
		return "", fmt.Errorf("failed to create oauth state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", s.apiKey)
	params.Set("scope", OAuthScopes)
	params.Set("redirect_uri", fmt.Sprintf("%s/oauth/callback", strings.TrimRight(s.appBaseURL, "/")))
	params.Set("state", state.State)

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shopDomain, params.Encode()), nil
}

// HandleCallback validates the state nonce, exchanges the code for an access
// token and persists the shop. Returns the shop and the merchant's return URL.
func (s *ShopService) HandleCallback(ctx context.Context, shopDomain, code, state string) (*models.Shop, string, error) {
	record, err := s.shopRepo.ConsumeOAuthState(ctx, state)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: unknown or expired oauth state", ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	if record.ShopDomain != shopDomain {
		return nil, "", fmt.Errorf("%w: oauth state issued for a different shop", ErrInvalidCampaign)
	}

	token, err := s.exchange(ctx, shopDomain, code)
	if err != nil {
		return nil, "", fmt.Errorf("%w: token exchange: %v", ErrUpstreamUnavailable, err)
	}

	reinstall := false
	if _, err := s.shopRepo.GetByDomain(ctx, shopDomain); err == nil {
		reinstall = true
	}

	shop := &models.Shop{
		ShopDomain:  shopDomain,
		AccessToken: token.AccessToken,
	}

	// Best effort, installation succeeds even if the profile fetch fails
	if info, err := s.clientFor(shop).GetShopInfo(ctx); err == nil {
		if info.Name != "" {
			shop.ShopName = &info.Name
		}
		if info.Email != "" {
			shop.Email = &info.Email
		}
	} else {
		s.logger.WithField("shopDomain", shopDomain).WithError(err).Warn("shop profile fetch failed")
	}

	if err := s.shopRepo.Upsert(ctx, shop); err != nil {
		return nil, "", fmt.Errorf("failed to persist shop: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"shopDomain": shopDomain,
		"reinstall":  reinstall,
		"scope":      token.Scope,
	}).Info("shop installed")

	if s.audit != nil {
		_ = s.audit.LogShopInstall(ctx, shop, reinstall)
	}

	returnURL := ""
	if record.ReturnURL != nil {
		returnURL = *record.ReturnURL
	}
	return shop, returnURL, nil
}

// GetShopByDomain retrieves an installed shop
func (s *ShopService) GetShopByDomain(ctx context.Context, shopDomain string) (*models.Shop, error) {
	shop, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: shop %s is not installed", ErrNotFound, shopDomain)
		}
		return nil, err
	}
	return shop, nil
}

// validShopDomain accepts only *.myshopify.com hosts to keep the OAuth
// redirect from being pointed at an arbitrary site.
func validShopDomain(domain string) bool {
	if !strings.HasSuffix(domain, ".myshopify.com") {
		return false
	}
	name := strings.TrimSuffix(domain, ".myshopify.com")
	if name == "" {
		return false
	}
	for _, c := range name {
		if c != '-' && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
