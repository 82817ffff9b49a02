package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (ZENVEDA_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (ZENVEDA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL      string `usage:"Redis connection URL for the cart store (ZENVEDA_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	OriginPincode string `default:"122004" usage:"Warehouse pincode shipments originate from" flag:"origin-pincode"`
	AdminEmail    string `usage:"Address that receives a copy of every new order" flag:"admin-email"`
	APIKeyPepper  string `usage:"HMAC pepper for API key hashing (ZENVEDA_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Delhivery     DelhiveryConfig
	Resend        ResendConfig
	WhatsApp      WhatsAppConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// DelhiveryConfig holds carrier API credentials.
type DelhiveryConfig struct {
	BaseURL string `default:"https://track.delhivery.com" usage:"Delhivery API base URL"`
	Token   string `usage:"Delhivery API token"`
}

// ResendConfig holds transactional email settings.
type ResendConfig struct {
	APIKey string `usage:"Resend API key; email is disabled when empty" flag:"resend-api-key"`
	From   string `default:"orders@zenveda.in" usage:"Sender address for transactional email"`
}

// WhatsAppConfig holds the WhatsApp template-message provider settings.
type WhatsAppConfig struct {
	BaseURL string `usage:"WhatsApp provider API base URL"`
	Token   string `usage:"WhatsApp provider API token"`
	Enabled bool   `default:"false" usage:"Enable WhatsApp notifications"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ZENVEDA",
		Files:     []string{"config.yaml", "/etc/zenveda/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ZENVEDA_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required: set ZENVEDA_REDIS_URL or REDIS_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's ZENVEDA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
