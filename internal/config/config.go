package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fmpfetcher/internal/fetcher"
	"fmpfetcher/internal/fmp"
)

// Config holds all configuration for the fmpfetcher application.
type Config struct {
	// API access
	BaseURL    string `mapstructure:"fmp_base_url"`
	APIVersion string `mapstructure:"fmp_api_version"`
	APIKey     string `mapstructure:"fmp_api_key"`

	// What to fetch
	Symbols   []string `mapstructure:"symbols"`
	ChunkSize int      `mapstructure:"chunk_size"` // 0 picks one for the API version
	Statement string   `mapstructure:"statement"`
	Period    string   `mapstructure:"period"`

	// Transport behaviour
	RetryCount        int           `mapstructure:"retry_count"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait      time.Duration `mapstructure:"retry_max_wait"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over config file values. Variables from
// envFiles (default ".env") are added to the environment first; a missing default
// file is ignored, a missing named file is an error.
//
// Expected environment variables (all optional):
//   - FMP_BASE_URL, FMP_API_VERSION, FMP_API_KEY
//   - SYMBOLS (comma separated), CHUNK_SIZE, STATEMENT, PERIOD
//   - RETRY_COUNT, RETRY_WAIT, RETRY_MAX_WAIT, REQUEST_TIMEOUT, REQUESTS_PER_SECOND
//   - LOG_LEVEL
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	v.SetDefault("fmp_base_url", fmp.DefaultBaseURL)
	v.SetDefault("fmp_api_version", string(fmp.VersionLegacy))
	v.SetDefault("fmp_api_key", "")
	v.SetDefault("symbols", []string{})
	v.SetDefault("chunk_size", 0)
	v.SetDefault("statement", string(fmp.IncomeStatement))
	v.SetDefault("period", string(fmp.Annual))

	defaults := fetcher.DefaultHTTPOptions()
	v.SetDefault("retry_count", defaults.RetryCount)
	v.SetDefault("retry_wait", defaults.RetryWaitTime)
	v.SetDefault("retry_max_wait", defaults.RetryMaxWaitTime)
	v.SetDefault("request_timeout", defaults.Timeout)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("log_level", "info")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.fmpfetcher")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Symbols = splitSymbols(config.Symbols)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// splitSymbols flattens entries that still hold comma separated lists.
func splitSymbols(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every invalid field at once as a configuration error.
func (c *Config) Validate() error {
	var problems []string

	if c.BaseURL == "" {
		problems = append(problems, "FMP_BASE_URL is empty")
	}
	if _, err := fmp.ParseVersion(c.APIVersion); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := fmp.ParseStatement(c.Statement); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := fmp.ParsePeriod(c.Period); err != nil {
		problems = append(problems, err.Error())
	}
	// Batch limits per API version are enforced when fetching.
	if c.ChunkSize < 0 {
		problems = append(problems, fmt.Sprintf("CHUNK_SIZE must not be negative, got %d", c.ChunkSize))
	}
	if c.RetryCount < 0 {
		problems = append(problems, fmt.Sprintf("RETRY_COUNT must not be negative, got %d", c.RetryCount))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, fmt.Sprintf("REQUESTS_PER_SECOND must not be negative, got %g", c.RequestsPerSecond))
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fetcher.NewConfigurationError("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a log level", c.LogLevel)
	}
	return level, nil
}

// HTTPOptions returns the transport settings.
func (c *Config) HTTPOptions() fetcher.HTTPOptions {
	opts := fetcher.DefaultHTTPOptions()
	opts.RetryCount = c.RetryCount
	opts.RetryWaitTime = c.RetryWait
	opts.RetryMaxWaitTime = c.RetryMaxWait
	opts.Timeout = c.RequestTimeout
	opts.RequestsPerSecond = c.RequestsPerSecond
	return opts
}

// StatementOptions returns the statement selection. The API key, when set,
// is sent as the apikey query parameter.
func (c *Config) StatementOptions() fmp.StatementOptions {
	return fmp.StatementOptions{
		Statement: fmp.Statement(c.Statement),
		Period:    fmp.Period(c.Period),
		Version:   fmp.Version(c.APIVersion),
		ChunkSize: c.ChunkSize,
		Params:    c.QueryParams(),
	}
}

// QueryParams returns the parameters sent with every request.
func (c *Config) QueryParams() map[string]string {
	params := map[string]string{}
	if c.APIKey != "" {
		params["apikey"] = c.APIKey
	}
	return params
}
