// Package config loads client configuration from the environment and
// functional options.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds the environment driven configuration for media clients.
type Config struct {
	Provider string `env:"MEDIA_PROVIDER" envDefault:"google" json:"provider" validate:"required"`

	// Model overrides the provider default for every mode; the per-mode
	// fields take precedence over it.
	Model      string `env:"MEDIA_MODEL" json:"model,omitempty"`
	ImageModel string `env:"MEDIA_IMAGE_MODEL" json:"image_model,omitempty"`
	VideoModel string `env:"MEDIA_VIDEO_MODEL" json:"video_model,omitempty"`
	TextModel  string `env:"MEDIA_TEXT_MODEL" json:"text_model,omitempty"`

	// APIKey overrides the per-provider keys discovered in the environment.
	APIKey  string            `env:"MEDIA_API_KEY" json:"-"`
	APIKeys map[string]string `env:"-" json:"-"`

	Endpoint     string            `env:"MEDIA_ENDPOINT" json:"endpoint,omitempty" validate:"omitempty,url"`
	ExtraHeaders map[string]string `env:"MEDIA_EXTRA_HEADERS" json:"extra_headers,omitempty"`
	Timeout      time.Duration     `env:"MEDIA_TIMEOUT" envDefault:"60s" json:"timeout" validate:"gt=0"`

	PollInterval    time.Duration `env:"MEDIA_POLL_INTERVAL" envDefault:"10s" json:"poll_interval" validate:"gt=0"`
	PollMaxWait     time.Duration `env:"MEDIA_POLL_MAX_WAIT" envDefault:"30m" json:"poll_max_wait" validate:"gte=0"`
	PollMaxAttempts int           `env:"MEDIA_POLL_MAX_ATTEMPTS" envDefault:"0" json:"poll_max_attempts" validate:"gte=0"`

	BatchConcurrency int   `env:"MEDIA_BATCH_CONCURRENCY" envDefault:"4" json:"batch_concurrency" validate:"gte=1,lte=32"`
	MaxUploadBytes   int64 `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"20971520" json:"max_upload_bytes" validate:"gt=0"`
	MaxDownloadBytes int64 `env:"MEDIA_MAX_DOWNLOAD_BYTES" envDefault:"0" json:"max_download_bytes" validate:"gte=0"`

	ArtifactBackend string `env:"MEDIA_ARTIFACT_BACKEND" envDefault:"memory" json:"artifact_backend" validate:"oneof=memory file"`
	ArtifactDir     string `env:"MEDIA_ARTIFACT_DIR" json:"artifact_dir,omitempty" validate:"required_if=ArtifactBackend file"`

	LogLevel string `env:"MEDIA_LOG_LEVEL" envDefault:"info" json:"log_level" validate:"oneof=off error warn info debug"`
}

// ConfigOption mutates a Config after it has been read from the environment.
type ConfigOption func(*Config)

var validate = validator.New(validator.WithRequiredStructEnabled())

// providerKeyAliases lists extra environment variables consulted per provider.
var providerKeyAliases = map[string][]string{
	"google":      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"gemini":      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"dashscope":   {"DASHSCOPE_API_KEY"},
	"ali":         {"DASHSCOPE_API_KEY"},
	"huggingface": {"HF_TOKEN"},
}

// LoadConfig parses the environment, applies opts and validates the result.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.APIKeys = make(map[string]string)
	cfg.Provider = normalizeProvider(cfg.Provider)

	for _, opt := range opts {
		opt(cfg)
	}
	loadAPIKeys(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadAPIKeys reads <PROVIDER>_API_KEY, provider aliases and the generic
// API_KEY variable, in that order.
func loadAPIKeys(cfg *Config) {
	if cfg.APIKeys == nil {
		cfg.APIKeys = make(map[string]string)
	}
	if cfg.Provider == "" {
		return
	}

	lower := strings.ToLower(cfg.Provider)
	candidates := []string{strings.ToUpper(cfg.Provider) + "_API_KEY"}
	candidates = append(candidates, providerKeyAliases[lower]...)
	candidates = append(candidates, "API_KEY")

	for _, name := range candidates {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			cfg.APIKeys[lower] = value
			cfg.APIKeys[cfg.Provider] = value
			return
		}
	}
}

// ResolvedAPIKey returns the credential for the configured provider.
func (c *Config) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if key := c.APIKeys[c.Provider]; key != "" {
		return key
	}
	return c.APIKeys[strings.ToLower(c.Provider)]
}

// ModelFor returns the configured model for a mode, or "" for the provider default.
func (c *Config) ModelFor(mode string) string {
	var specific string
	switch mode {
	case "image":
		specific = c.ImageModel
	case "video":
		specific = c.VideoModel
	case "text":
		specific = c.TextModel
	}
	if specific != "" {
		return specific
	}
	return c.Model
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// SetProvider selects the provider.
func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = normalizeProvider(provider)
	}
}

// SetModel sets the model used for every mode without a specific override.
func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// SetImageModel sets the model used for image edits.
func SetImageModel(model string) ConfigOption {
	return func(c *Config) {
		c.ImageModel = model
	}
}

// SetVideoModel sets the model used for video jobs.
func SetVideoModel(model string) ConfigOption {
	return func(c *Config) {
		c.VideoModel = model
	}
}

// SetTextModel sets the model used for text generation.
func SetTextModel(model string) ConfigOption {
	return func(c *Config) {
		c.TextModel = model
	}
}

// SetAPIKey sets the credential, overriding anything found in the environment.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		c.APIKey = strings.TrimSpace(apiKey)
	}
}

// SetEndpoint overrides the provider base URL.
func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// SetTimeout sets the per-request HTTP timeout.
func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// SetPollInterval sets the wait between job status queries.
func SetPollInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.PollInterval = interval
	}
}

// SetPollMaxWait bounds the total time spent waiting for a job. Zero disables the bound.
func SetPollMaxWait(maxWait time.Duration) ConfigOption {
	return func(c *Config) {
		c.PollMaxWait = maxWait
	}
}

// SetPollMaxAttempts bounds the number of status queries. Zero disables the bound.
func SetPollMaxAttempts(attempts int) ConfigOption {
	return func(c *Config) {
		c.PollMaxAttempts = attempts
	}
}

// SetBatchConcurrency sets how many batch items are processed at once.
func SetBatchConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.BatchConcurrency = n
	}
}

// SetArtifactDir stores downloaded artifacts as files under dir.
func SetArtifactDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ArtifactBackend = "file"
		c.ArtifactDir = dir
	}
}

// SetLogLevel sets the log level name.
func SetLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = strings.ToLower(level)
	}
}

// SetExtraHeaders adds headers sent with every provider request.
func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}
