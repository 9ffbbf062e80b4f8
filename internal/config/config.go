package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultProvider               = "gemini"
	DefaultCallInterval           = 2 * time.Second
	DefaultMaxConsecutiveFailures = 3
	DefaultDataDir                = "./data"
	DefaultDatabasePath           = "$HOME/.local/share/sooth/sooth.db"
	DefaultUserAgent              = "go:soothsayer:v0.1"
	DefaultSubreddit              = "wallstreetbets"
	DefaultCrawlLimit             = 100
	DefaultRequestInterval        = time.Second
)

// providerKeyEnv lists the conventional API key variables per oracle provider.
var providerKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
}

// Config is the full application configuration, built once at startup.
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	DataDir  string
	Reddit   RedditConfig
	Filter   FilterConfig
	Oracle   OracleConfig
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the run ledger.
type DatabaseConfig struct {
	Path string
}

// FilterConfig tunes the candidate filter.
type FilterConfig struct {
	ExtraMarkers []string
}

// OracleConfig configures the text-reasoning oracle and its call discipline.
type OracleConfig struct {
	Provider               string
	Model                  string
	APIKey                 string
	BaseURL                string
	Temperature            float64
	MaxTokens              int
	Timeout                time.Duration
	MaxRetries             int
	RetryDelay             time.Duration
	CallInterval           time.Duration
	MaxConsecutiveFailures int
}

// RedditConfig configures the crawl stage.
type RedditConfig struct {
	ClientID        string
	ClientSecret    string
	UserAgent       string
	Subreddits      []string
	Limit           int
	RequestInterval time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("oracle.provider", DefaultProvider)
	v.SetDefault("oracle.call_interval", DefaultCallInterval)
	v.SetDefault("oracle.max_consecutive_failures", DefaultMaxConsecutiveFailures)
	v.SetDefault("oracle.max_retries", 0)
	v.SetDefault("oracle.retry_delay", time.Second)
	v.SetDefault("oracle.timeout", 60*time.Second)
	v.SetDefault("reddit.user_agent", DefaultUserAgent)
	v.SetDefault("reddit.subreddits", []string{DefaultSubreddit})
	v.SetDefault("reddit.limit", DefaultCrawlLimit)
	v.SetDefault("reddit.request_interval", DefaultRequestInterval)
}

// Load builds a Config from v, falling back to conventional environment
// variables for credentials. Credential presence is not checked here; the
// oracle and source constructors report missing keys.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DataDir: ExpandPath(v.GetString("data_dir")),
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Filter: FilterConfig{
			ExtraMarkers: v.GetStringSlice("filter.extra_markers"),
		},
		Oracle: OracleConfig{
			Provider:               strings.ToLower(v.GetString("oracle.provider")),
			Model:                  v.GetString("oracle.model"),
			APIKey:                 v.GetString("oracle.api_key"),
			BaseURL:                v.GetString("oracle.base_url"),
			Temperature:            v.GetFloat64("oracle.temperature"),
			MaxTokens:              v.GetInt("oracle.max_tokens"),
			Timeout:                v.GetDuration("oracle.timeout"),
			MaxRetries:             v.GetInt("oracle.max_retries"),
			RetryDelay:             v.GetDuration("oracle.retry_delay"),
			CallInterval:           v.GetDuration("oracle.call_interval"),
			MaxConsecutiveFailures: v.GetInt("oracle.max_consecutive_failures"),
		},
		Reddit: RedditConfig{
			ClientID:        v.GetString("reddit.client_id"),
			ClientSecret:    v.GetString("reddit.client_secret"),
			UserAgent:       v.GetString("reddit.user_agent"),
			Subreddits:      v.GetStringSlice("reddit.subreddits"),
			Limit:           v.GetInt("reddit.limit"),
			RequestInterval: v.GetDuration("reddit.request_interval"),
		},
	}

	if cfg.Oracle.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.Oracle.Provider] {
			if key := os.Getenv(name); key != "" {
				cfg.Oracle.APIKey = key
				break
			}
		}
	}
	if cfg.Reddit.ClientID == "" {
		cfg.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	}
	if cfg.Reddit.ClientSecret == "" {
		cfg.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	}
	if ua := os.Getenv("REDDIT_USER_AGENT"); ua != "" && cfg.Reddit.UserAgent == DefaultUserAgent {
		cfg.Reddit.UserAgent = ua
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that do not depend on credentials.
func (c *Config) Validate() error {
	if _, ok := providerKeyEnv[c.Oracle.Provider]; !ok {
		return common.NewConfigurationError("oracle.provider",
			fmt.Errorf("%w: unsupported provider %q", common.ErrInvalidConfig, c.Oracle.Provider))
	}
	if c.Oracle.CallInterval < 0 {
		return common.NewConfigurationError("oracle.call_interval",
			fmt.Errorf("%w: must not be negative", common.ErrInvalidConfig))
	}
	if c.Oracle.MaxRetries < 0 {
		return common.NewConfigurationError("oracle.max_retries",
			fmt.Errorf("%w: must not be negative", common.ErrInvalidConfig))
	}
	if c.Oracle.MaxConsecutiveFailures < 0 {
		return common.NewConfigurationError("oracle.max_consecutive_failures",
			fmt.Errorf("%w: must not be negative", common.ErrInvalidConfig))
	}
	if c.DataDir == "" {
		return common.NewConfigurationError("data_dir", common.ErrMissingConfig)
	}
	return nil
}

// DatasetPath resolves a dataset file name inside the data directory.
func (c *Config) DatasetPath(name string) string {
	return filepath.Join(c.DataDir, name)
}
