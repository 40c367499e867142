package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tradeflow/provider"
)

type Config struct {
	Tradeflow TradeflowConfig `yaml:"tradeflow"`
	HTTP      HTTPConfig      `yaml:"http"`
	Providers ProvidersConfig `yaml:"providers"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type TradeflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Mode    string `yaml:"mode"`
}

type HTTPConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ProvidersConfig struct {
	Webull       ProviderConfig `yaml:"webull"`
	Alpaca       ProviderConfig `yaml:"alpaca"`
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
}

// ProviderConfig holds one provider's enablement and credential settings.
// Trading providers carry separate paper and live credential sets; data-only
// providers populate only the live set.
type ProviderConfig struct {
	Enabled           bool              `yaml:"enabled"`
	Demo              bool              `yaml:"demo"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	BurstSize         int               `yaml:"burst_size"`
	Paper             CredentialsConfig `yaml:"paper"`
	Live              CredentialsConfig `yaml:"live"`
}

type CredentialsConfig struct {
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	DeviceID     string `yaml:"device_id"`
}

func (c CredentialsConfig) credentials() provider.Credentials {
	return provider.Credentials{
		APIKey:       c.APIKey,
		APISecret:    c.APISecret,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		DeviceID:     c.DeviceID,
	}
}

type FallbackConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DefaultProvider string `yaml:"default_provider"`
}

type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Directory     string        `yaml:"directory"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Tradeflow: TradeflowConfig{
			Mode: string(provider.ModePaper),
		},
		Archive: ArchiveConfig{
			BatchSize:     500,
			FlushInterval: time.Minute,
			Compression:   "snappy",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Provider secrets prefer the environment over the file.
	applyProviderEnv("WEBULL", &config.Providers.Webull)
	applyProviderEnv("ALPACA", &config.Providers.Alpaca)
	applyProviderEnv("ALPHAVANTAGE", &config.Providers.AlphaVantage)

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyProviderEnv overlays <PREFIX>_API_KEY style environment variables onto
// the credential set matching the configured mode, keeping secrets out of the
// yaml file in deployed environments.
func applyProviderEnv(prefix string, pc *ProviderConfig) {
	overlay := func(c *CredentialsConfig) {
		if v := os.Getenv(prefix + "_API_KEY"); v != "" {
			c.APIKey = strings.TrimSpace(v)
		}
		if v := os.Getenv(prefix + "_API_SECRET"); v != "" {
			c.APISecret = strings.TrimSpace(v)
		}
		if v := os.Getenv(prefix + "_ACCESS_TOKEN"); v != "" {
			c.AccessToken = strings.TrimSpace(v)
		}
		if v := os.Getenv(prefix + "_DEVICE_ID"); v != "" {
			c.DeviceID = strings.TrimSpace(v)
		}
	}
	overlay(&pc.Paper)
	overlay(&pc.Live)
}

func validateConfig(cfg *Config) error {
	if cfg.Tradeflow.Name == "" {
		return fmt.Errorf("tradeflow.name is required")
	}

	if cfg.Tradeflow.Version == "" {
		return fmt.Errorf("tradeflow.version is required")
	}

	switch provider.Mode(cfg.Tradeflow.Mode) {
	case provider.ModePaper, provider.ModeLive:
	default:
		return fmt.Errorf("tradeflow.mode must be %q or %q", provider.ModePaper, provider.ModeLive)
	}

	if cfg.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}

	if cfg.Fallback.Enabled && cfg.Fallback.DefaultProvider != "" {
		if _, err := provider.Get(cfg.Fallback.DefaultProvider); err != nil {
			return fmt.Errorf("fallback.default_provider: %w", err)
		}
	}

	if cfg.Archive.Enabled {
		if cfg.Archive.BatchSize <= 0 {
			return fmt.Errorf("archive.batch_size must be greater than 0")
		}
		if cfg.Archive.FlushInterval <= 0 {
			return fmt.Errorf("archive.flush_interval must be greater than 0")
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
