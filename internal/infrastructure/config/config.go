package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Shopify   ShopifyConfig
	Nautical  NauticalConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Mapping   MappingConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// ShopifyConfig holds storefront connection settings
type ShopifyConfig struct {
	ShopDomain           string  // bare shop name or full <shop>.myshopify.com domain
	AccessToken          string  // Admin API access token
	APIVersion           string  // Admin API version segment (empty = adapter default)
	WebhookSecret        string  // HMAC secret for webhook deliveries
	WebhookCallbackURL   string  // public URL webhooks are delivered to
	RegisterWebhooks     bool    // register webhook subscriptions on startup
	TimeoutSeconds       int     // HTTP request timeout
	MaxRequestsPerSecond float64 // outbound rate cap
}

// NauticalConfig holds marketplace connection settings
type NauticalConfig struct {
	APIURL               string  // full GraphQL endpoint URL
	APIToken             string  // bearer token
	TenantID             string  // marketplace tenant header value
	TimeoutSeconds       int     // HTTP request timeout
	MaxRequestsPerSecond float64 // outbound rate cap
}

// SyncConfig holds synchronization flow settings
type SyncConfig struct {
	PageSize             int           // page size for bulk listing reads
	OrderLookback        time.Duration // overlap subtracted from the stored order cursor
	OrderInitialLookback time.Duration // window for the first order run ever
}

// SchedulerConfig holds periodic flow trigger configuration
type SchedulerConfig struct {
	Enabled           bool
	ProductsInterval  time.Duration
	InventoryInterval time.Duration
	OrdersInterval    time.Duration
	RunTimeout        time.Duration // maximum wall time for one flow run
}

// MappingConfig holds attribute mapping table source configuration
type MappingConfig struct {
	Source         string // file, s3
	Path           string // local path when source=file
	S3Bucket       string
	S3Key          string
	S3Region       string
	S3Endpoint     string // custom endpoint for S3-compatible stores (empty = AWS)
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool // https for custom endpoints
	S3UsePathStyle bool // path-style addressing for MinIO and friends
}

// RedisConfig holds Redis connection settings for the sync state store
type RedisConfig struct {
	Enabled  bool // when false, sync cursors are kept in memory only
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	ProfilingEnabled  bool    // Enable continuous profiling
	ProfilingServer   string  // Pyroscope server address
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CSYNC_ prefix (e.g., CSYNC_NAUTICAL_API_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:           v.GetString("shopify.shop_domain"),
			AccessToken:          v.GetString("shopify.access_token"),
			APIVersion:           v.GetString("shopify.api_version"),
			WebhookSecret:        v.GetString("shopify.webhook_secret"),
			WebhookCallbackURL:   v.GetString("shopify.webhook_callback_url"),
			RegisterWebhooks:     v.GetBool("shopify.register_webhooks"),
			TimeoutSeconds:       v.GetInt("shopify.timeout_seconds"),
			MaxRequestsPerSecond: v.GetFloat64("shopify.max_requests_per_second"),
		},
		Nautical: NauticalConfig{
			APIURL:               v.GetString("nautical.api_url"),
			APIToken:             v.GetString("nautical.api_token"),
			TenantID:             v.GetString("nautical.tenant_id"),
			TimeoutSeconds:       v.GetInt("nautical.timeout_seconds"),
			MaxRequestsPerSecond: v.GetFloat64("nautical.max_requests_per_second"),
		},
		Sync: SyncConfig{
			PageSize:             v.GetInt("sync.page_size"),
			OrderLookback:        v.GetDuration("sync.order_lookback"),
			OrderInitialLookback: v.GetDuration("sync.order_initial_lookback"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			ProductsInterval:  v.GetDuration("scheduler.products_interval"),
			InventoryInterval: v.GetDuration("scheduler.inventory_interval"),
			OrdersInterval:    v.GetDuration("scheduler.orders_interval"),
			RunTimeout:        v.GetDuration("scheduler.run_timeout"),
		},
		Mapping: MappingConfig{
			Source:         v.GetString("mapping.source"),
			Path:           v.GetString("mapping.path"),
			S3Bucket:       v.GetString("mapping.s3_bucket"),
			S3Key:          v.GetString("mapping.s3_key"),
			S3Region:       v.GetString("mapping.s3_region"),
			S3Endpoint:     v.GetString("mapping.s3_endpoint"),
			S3AccessKey:    v.GetString("mapping.s3_access_key"),
			S3SecretKey:    v.GetString("mapping.s3_secret_key"),
			S3UseSSL:       v.GetBool("mapping.s3_use_ssl"),
			S3UsePathStyle: v.GetBool("mapping.s3_use_path_style"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.Shopify.MaxRequestsPerSecond == 0 {
		cfg.Shopify.MaxRequestsPerSecond = 2
	}
	if cfg.Nautical.TimeoutSeconds == 0 {
		cfg.Nautical.TimeoutSeconds = 30
	}
	if cfg.Nautical.MaxRequestsPerSecond == 0 {
		cfg.Nautical.MaxRequestsPerSecond = 4
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 50
	}
	if cfg.Sync.OrderLookback == 0 {
		cfg.Sync.OrderLookback = 15 * time.Minute
	}
	if cfg.Sync.OrderInitialLookback == 0 {
		cfg.Sync.OrderInitialLookback = 24 * time.Hour
	}
	if cfg.Scheduler.ProductsInterval == 0 {
		cfg.Scheduler.ProductsInterval = time.Hour
	}
	if cfg.Scheduler.InventoryInterval == 0 {
		cfg.Scheduler.InventoryInterval = 15 * time.Minute
	}
	if cfg.Scheduler.OrdersInterval == 0 {
		cfg.Scheduler.OrdersInterval = 5 * time.Minute
	}
	if cfg.Scheduler.RunTimeout == 0 {
		cfg.Scheduler.RunTimeout = 15 * time.Minute
	}
	if cfg.Mapping.Source == "" {
		cfg.Mapping.Source = "file"
	}
	if cfg.Mapping.Path == "" {
		cfg.Mapping.Path = "mappings.json"
	}
	if cfg.Mapping.S3Region == "" {
		cfg.Mapping.S3Region = "us-east-1"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ProfilingServer == "" {
		cfg.Telemetry.ProfilingServer = "http://localhost:4040"
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// The storefront caps listing page sizes at 250
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be positive")
	}
	if c.Sync.PageSize > 250 {
		return fmt.Errorf("sync.page_size (%d) cannot exceed 250", c.Sync.PageSize)
	}
	if c.Sync.OrderInitialLookback < c.Sync.OrderLookback {
		return fmt.Errorf("sync.order_initial_lookback (%s) cannot be less than sync.order_lookback (%s)",
			c.Sync.OrderInitialLookback, c.Sync.OrderLookback)
	}

	switch c.Mapping.Source {
	case "file":
		// Path always has a default
	case "s3":
		if c.Mapping.S3Bucket == "" || c.Mapping.S3Key == "" {
			return fmt.Errorf("mapping.s3_bucket and mapping.s3_key are required when mapping.source is 's3'")
		}
	default:
		return fmt.Errorf("mapping.source must be 'file' or 's3', got %q", c.Mapping.Source)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Shopify.AccessToken == "" {
			return fmt.Errorf("shopify.access_token is required in production")
		}
		if c.Shopify.WebhookSecret == "" {
			return fmt.Errorf("shopify.webhook_secret is required in production (unsigned webhook deliveries would be accepted)")
		}
		if c.Nautical.APIToken == "" {
			return fmt.Errorf("nautical.api_token is required in production")
		}
		if c.Nautical.TenantID == "" {
			return fmt.Errorf("nautical.tenant_id is required in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
