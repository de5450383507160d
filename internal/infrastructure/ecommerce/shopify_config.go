package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ShopifyConfig holds configuration for the Shopify Admin GraphQL API.
type ShopifyConfig struct {
	// ShopDomain is the shop's domain; either the bare shop name or the
	// full "<shop>.myshopify.com" form is accepted
	ShopDomain string
	// AccessToken is the Admin API access token
	AccessToken string
	// APIVersion selects the Admin API version segment of the endpoint
	APIVersion string
	// WebhookSecret signs webhook deliveries; empty disables verification
	WebhookSecret string
	// APIBaseURL overrides the https://<domain> base when set; used for
	// proxies and tests
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxRequestsPerSecond caps the sustained outbound request rate
	MaxRequestsPerSecond float64
}

const (
	// ShopifyDefaultAPIVersion is the Admin API version used when unset
	ShopifyDefaultAPIVersion = "2024-07"
	// shopifyDomainSuffix completes a bare shop name into a full domain
	shopifyDomainSuffix = ".myshopify.com"
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingDomain = errors.New("shopify: shop domain is required")
	ErrShopifyConfigMissingToken  = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(shopDomain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopDomain:           shopDomain,
		AccessToken:          accessToken,
		APIVersion:           ShopifyDefaultAPIVersion,
		TimeoutSeconds:       30,
		MaxRequestsPerSecond: 2,
	}
}

// Validate validates the Shopify configuration and fills defaults
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return ErrShopifyConfigMissingDomain
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxRequestsPerSecond <= 0 {
		c.MaxRequestsPerSecond = 2
	}
	return nil
}

// EndpointURL builds the Admin GraphQL endpoint for the configured shop.
func (c *ShopifyConfig) EndpointURL() string {
	base := c.APIBaseURL
	if base == "" {
		domain := c.ShopDomain
		if !strings.Contains(domain, ".") {
			domain += shopifyDomainSuffix
		}
		base = "https://" + domain
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", strings.TrimSuffix(base, "/"), c.APIVersion)
}

// VerifyWebhookSignature checks the base64 HMAC-SHA256 digest attached to a
// webhook delivery against the shared secret. An empty secret disables
// verification and accepts every delivery.
func (c *ShopifyConfig) VerifyWebhookSignature(payload []byte, signature string) bool {
	return VerifyWebhookHMAC(c.WebhookSecret, payload, signature)
}

// VerifyWebhookHMAC reports whether signature is the base64 HMAC-SHA256
// digest of payload under secret. Shopify signs each delivery this way and
// sends the digest in X-Shopify-Hmac-Sha256; the intake endpoint and the
// adapter both verify through here. An empty secret disables verification
// and accepts every delivery. The comparison is constant time.
func VerifyWebhookHMAC(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
