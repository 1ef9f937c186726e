package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. It is loaded once at
// startup and handed to constructors; nothing reads the environment later.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Branding BrandingConfig `yaml:"branding"`
	AI       AIConfig       `yaml:"ai"`
	Email    EmailConfig    `yaml:"email"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyMB      int      `yaml:"max_body_mb"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("K_SERVICE") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether recipient addresses are masked in logs (default true).
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// BrandingConfig names the product and platform stamped on generated content.
type BrandingConfig struct {
	Product   string          `yaml:"product"`
	Platform  string          `yaml:"platform"`
	Watermark WatermarkConfig `yaml:"watermark"`
}

// WatermarkConfig holds the visible watermark defaults. Logo paths may be
// local files or s3://bucket/key URLs; empty paths use the bundled marks.
type WatermarkConfig struct {
	Text        string `yaml:"text"`
	Font        string `yaml:"font"`
	Color       string `yaml:"color"`
	Padding     *int   `yaml:"padding"`
	LogoApp     string `yaml:"logo_app"`
	LogoCompany string `yaml:"logo_company"`
}

// PaddingPx is the edge inset in pixels (default 20). An explicit 0 puts the
// marks flush with the image border.
func (c WatermarkConfig) PaddingPx() int {
	if c.Padding == nil {
		return 20
	}
	return *c.Padding
}

// AIConfig selects and configures the generative backend.
type AIConfig struct {
	Provider   string        `yaml:"provider"` // "gemini" or "bedrock"
	MaxRetries int           `yaml:"max_retries"`
	Gemini     GeminiConfig  `yaml:"gemini"`
	Bedrock    BedrockConfig `yaml:"bedrock"`
}

// GeminiConfig holds Google Generative Language API settings.
type GeminiConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	TextModel           string `yaml:"text_model"`
	ImageModel          string `yaml:"image_model"`
	TextTimeoutSeconds  int    `yaml:"text_timeout_seconds"`
	ImageTimeoutSeconds int    `yaml:"image_timeout_seconds"`
}

// TextTimeout returns the text generation timeout as a duration
func (c GeminiConfig) TextTimeout() time.Duration {
	return time.Duration(c.TextTimeoutSeconds) * time.Second
}

// ImageTimeout returns the image generation timeout as a duration
func (c GeminiConfig) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutSeconds) * time.Second
}

// BedrockConfig holds AWS Bedrock runtime settings.
type BedrockConfig struct {
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	TextModelID  string `yaml:"text_model_id"`
	ImageModelID string `yaml:"image_model_id"`
	MaxTokens    int    `yaml:"max_tokens"`
}

// EmailConfig selects and configures the outbound transport.
type EmailConfig struct {
	Provider       string               `yaml:"provider"` // "ses", "sendgrid" or empty
	From           string               `yaml:"from"`
	SES            SESConfig            `yaml:"ses"`
	SendGrid       SendGridConfig       `yaml:"sendgrid"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// SendGridConfig holds SendGrid v3 API configuration
type SendGridConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration
func (c SendGridConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CircuitBreakerConfig guards the transport against a failing provider.
type CircuitBreakerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MinRequests     uint32  `yaml:"min_requests"`
	FailureRatio    float64 `yaml:"failure_ratio"`
	OpenSeconds     int     `yaml:"open_seconds"`
	IntervalSeconds int     `yaml:"interval_seconds"`
}

// DispatchConfig tunes the campaign fan-out.
type DispatchConfig struct {
	Concurrency        int `yaml:"concurrency"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
	LockTTLSeconds     int `yaml:"lock_ttl_seconds"`
}

// SendTimeout returns the per-recipient transport timeout (zero disables it).
func (c DispatchConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// LockTTL returns how long a duplicate-send lock lives.
func (c DispatchConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// StorageConfig holds S3 publishing configuration for branded images.
type StorageConfig struct {
	S3Bucket      string `yaml:"s3_bucket"`
	S3Region      string `yaml:"s3_region"`
	AWSProfile    string `yaml:"aws_profile"`
	CDNDomain     string `yaml:"cdn_domain"`
	PublishImages bool   `yaml:"publish_images"`
}

// RedisConfig holds the Redis connection used for dispatch locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DatabaseConfig holds the Postgres connection used as the lock fallback.
type DatabaseConfig struct {
	URL string `yaml:"url"`
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

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for callers
// that run without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Server.MaxBodyMB == 0 {
		cfg.Server.MaxBodyMB = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Branding.Product == "" {
		cfg.Branding.Product = "BrandLab"
	}
	if cfg.Branding.Platform == "" {
		cfg.Branding.Platform = "UkaseAI"
	}
	wm := &cfg.Branding.Watermark
	if wm.Font == "" {
		wm.Font = "bold 20px sans-serif"
	}
	if wm.Color == "" {
		wm.Color = "rgba(255,255,255,0.25)"
	}
	if wm.Padding == nil {
		padding := 20
		wm.Padding = &padding
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 2
	}
	if cfg.AI.Gemini.BaseURL == "" {
		cfg.AI.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.AI.Gemini.TextModel == "" {
		cfg.AI.Gemini.TextModel = "gemini-2.5-flash-preview-05-20"
	}
	if cfg.AI.Gemini.ImageModel == "" {
		cfg.AI.Gemini.ImageModel = "imagen-3.0-generate-002"
	}
	if cfg.AI.Gemini.TextTimeoutSeconds == 0 {
		cfg.AI.Gemini.TextTimeoutSeconds = 30
	}
	if cfg.AI.Gemini.ImageTimeoutSeconds == 0 {
		cfg.AI.Gemini.ImageTimeoutSeconds = 60
	}
	if cfg.AI.Bedrock.Region == "" {
		cfg.AI.Bedrock.Region = "us-east-1"
	}
	if cfg.AI.Bedrock.TextModelID == "" {
		cfg.AI.Bedrock.TextModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.AI.Bedrock.ImageModelID == "" {
		cfg.AI.Bedrock.ImageModelID = "amazon.titan-image-generator-v1"
	}
	if cfg.AI.Bedrock.MaxTokens == 0 {
		cfg.AI.Bedrock.MaxTokens = 4000
	}

	if cfg.Email.SES.Region == "" {
		cfg.Email.SES.Region = "us-east-1"
	}
	if cfg.Email.SendGrid.BaseURL == "" {
		cfg.Email.SendGrid.BaseURL = "https://api.sendgrid.com/v3"
	}
	if cfg.Email.SendGrid.TimeoutSeconds == 0 {
		cfg.Email.SendGrid.TimeoutSeconds = 30
	}
	if cfg.Email.SendGrid.MaxRetries == 0 {
		cfg.Email.SendGrid.MaxRetries = 2
	}
	cb := &cfg.Email.CircuitBreaker
	if cb.MinRequests == 0 {
		cb.MinRequests = 5
	}
	if cb.FailureRatio == 0 {
		cb.FailureRatio = 0.5
	}
	if cb.OpenSeconds == 0 {
		cb.OpenSeconds = 60
	}
	if cb.IntervalSeconds == 0 {
		cb.IntervalSeconds = 60
	}

	if cfg.Dispatch.Concurrency == 0 {
		cfg.Dispatch.Concurrency = 1
	}
	if cfg.Dispatch.LockTTLSeconds == 0 {
		cfg.Dispatch.LockTTLSeconds = 600
	}

	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in deployment. A missing config file is not
// an error here; defaults plus environment are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AI.Bedrock.Region = v
	}

	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Email.Provider = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.Email.SendGrid.APIKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.SES.Region = v
	}

	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	return cfg, nil
}
