package ecommerce

import "errors"

// NauticalConfig holds configuration for the Nautical Commerce GraphQL API.
type NauticalConfig struct {
	// APIURL is the full GraphQL endpoint URL
	APIURL string
	// APIToken is the bearer token for the Authorization header
	APIToken string
	// TenantID identifies the marketplace tenant on every request
	TenantID string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxRequestsPerSecond caps the sustained outbound request rate
	MaxRequestsPerSecond float64
}

// Errors for Nautical configuration
var (
	ErrNauticalConfigMissingURL    = errors.New("nautical: api url is required")
	ErrNauticalConfigMissingToken  = errors.New("nautical: api token is required")
	ErrNauticalConfigMissingTenant = errors.New("nautical: tenant id is required")
)

// NewNauticalConfig creates a new Nautical configuration with defaults
func NewNauticalConfig(apiURL, apiToken, tenantID string) *NauticalConfig {
	return &NauticalConfig{
		APIURL:               apiURL,
		APIToken:             apiToken,
		TenantID:             tenantID,
		TimeoutSeconds:       30,
		MaxRequestsPerSecond: 4,
	}
}

// Validate validates the Nautical configuration and fills defaults
func (c *NauticalConfig) Validate() error {
	if c.APIURL == "" {
		return ErrNauticalConfigMissingURL
	}
	if c.APIToken == "" {
		return ErrNauticalConfigMissingToken
	}
	if c.TenantID == "" {
		return ErrNauticalConfigMissingTenant
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxRequestsPerSecond <= 0 {
		c.MaxRequestsPerSecond = 4
	}
	return nil
}
