package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Airtable  AirtableConfig  `yaml:"airtable"`
	AI        AIConfig        `yaml:"ai"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Notify    NotifyConfig    `yaml:"notify"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Polling   PollingConfig   `yaml:"polling"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Refusal   RefusalConfig   `yaml:"first_refusal"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings for rate limiting and the
// Airtable snapshot cache
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// AirtableConfig holds Airtable API configuration
type AirtableConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseID         string `yaml:"base_id"`
	BaseURL        string `yaml:"base_url"`
	BuyersTable    string `yaml:"buyers_table"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c AirtableConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AIConfig holds LLM provider configuration. Provider selects between
// "anthropic" (direct Messages API) and "bedrock" (AWS-managed).
type AIConfig struct {
	Provider        string  `yaml:"provider"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	AnthropicURL    string  `yaml:"anthropic_url"`
	Model           string  `yaml:"model"`
	BedrockModelID  string  `yaml:"bedrock_model_id"`
	AWSRegion       string  `yaml:"aws_region"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	Enabled         bool    `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StripeConfig holds payment processor settings. PriceIDs maps a tier name
// to its Stripe price.
type StripeConfig struct {
	SecretKey     string            `yaml:"secret_key"`
	WebhookSecret string            `yaml:"webhook_secret"`
	BaseURL       string            `yaml:"base_url"`
	PriceIDs      map[string]string `yaml:"price_ids"`
	SiteURL       string            `yaml:"site_url"`
	Enabled       bool              `yaml:"enabled"`
}

// NotifyConfig holds transactional email settings. Provider selects
// between "ses" and "resend".
type NotifyConfig struct {
	Provider     string `yaml:"provider"`
	FromAddress  string `yaml:"from_address"`
	FromName     string `yaml:"from_name"`
	ResendAPIKey string `yaml:"resend_api_key"`
	ResendURL    string `yaml:"resend_url"`
	AWSRegion    string `yaml:"aws_region"`
	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`
	Enabled      bool   `yaml:"enabled"`
}

// StorageConfig holds upload/insight storage configuration
type StorageConfig struct {
	Type       string `yaml:"type"` // "local" or "s3"
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// In a container, use the task IAM role rather than a local profile
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// AuthConfig holds Google OAuth authentication configuration
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	AllowedDomain      string `yaml:"allowed_domain"`
	SessionSecret      string `yaml:"session_secret"`
	CookieName         string `yaml:"cookie_name"`
	CookieMaxAge       int    `yaml:"cookie_max_age"`
}

// PollingConfig holds the Airtable collector's polling configuration
type PollingConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	PageSize        int `yaml:"page_size"`
}

// Interval returns the polling interval as a duration
func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RateLimitConfig holds the per-user fixed-window limit for AI endpoints
type RateLimitConfig struct {
	AIRequestsPerMinute int  `yaml:"ai_requests_per_minute"`
	Enabled             bool `yaml:"enabled"`
}

// RefusalConfig holds first-refusal window settings
type RefusalConfig struct {
	ScoreThreshold int `yaml:"score_threshold"`
	WindowHours    int `yaml:"window_hours"`
}

// Window returns the hold duration
func (c RefusalConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Airtable.BaseURL == "" {
		cfg.Airtable.BaseURL = "https://api.airtable.com/v0"
	}
	if cfg.Airtable.BuyersTable == "" {
		cfg.Airtable.BuyersTable = "Buyers"
	}
	if cfg.Airtable.TimeoutSeconds == 0 {
		cfg.Airtable.TimeoutSeconds = 30
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "anthropic"
	}
	if cfg.AI.AnthropicURL == "" {
		cfg.AI.AnthropicURL = "https://api.anthropic.com"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "claude-sonnet-4-20250514"
	}
	if cfg.AI.BedrockModelID == "" {
		cfg.AI.BedrockModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 2000
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.3
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.Stripe.BaseURL == "" {
		cfg.Stripe.BaseURL = "https://api.stripe.com"
	}
	if cfg.Notify.Provider == "" {
		cfg.Notify.Provider = "resend"
	}
	if cfg.Notify.ResendURL == "" {
		cfg.Notify.ResendURL = "https://api.resend.com"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 90
	}
	if cfg.Polling.PageSize == 0 {
		cfg.Polling.PageSize = 100
	}
	if cfg.RateLimit.AIRequestsPerMinute == 0 {
		cfg.RateLimit.AIRequestsPerMinute = 10
	}
	if cfg.Refusal.ScoreThreshold == 0 {
		cfg.Refusal.ScoreThreshold = 85
	}
	if cfg.Refusal.WindowHours == 0 {
		cfg.Refusal.WindowHours = 48
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "naybourhood_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("AIRTABLE_API_KEY"); v != "" {
		cfg.Airtable.APIKey = v
	}
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.Airtable.BaseID = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
		cfg.AI.Enabled = true
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
		cfg.Stripe.Enabled = true
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Stripe.SiteURL = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Notify.ResendAPIKey = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("AUTH_ALLOWED_DOMAIN"); v != "" {
		cfg.Auth.AllowedDomain = v
	}
	if v := os.Getenv("STORAGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "s3"
	}

	return cfg, nil
}
