package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml (from path, or ./configs and . when path is empty),
// merges config.<APP_ENVIRONMENT>.yaml next to it and applies environment
// overrides such as REDIS_ADDRESS or LOCATOR_CATEGORY_ORDER.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")
	applyDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.Set("environment", env)

	dirs := []string{"./configs", "."}
	if path != "" {
		v.SetConfigFile(path)
		dirs = []string{filepath.Dir(path)}
	} else {
		v.SetConfigName("config")
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	for _, d := range dirs {
		envFile := filepath.Join(d, fmt.Sprintf("config.%s.yaml", env))
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		overlay := viper.New()
		overlay.SetConfigFile(envFile)
		if err := overlay.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", envFile, err)
		}
		if err := v.MergeConfigMap(overlay.AllSettings()); err != nil {
			return nil, fmt.Errorf("error merging %s: %w", envFile, err)
		}
		break
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found in the working directory, its
// parents, or the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// applyDefaults registers every key with its default so environment
// overrides reach keys absent from the files.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.control_url", "")
	v.SetDefault("browser.target_urls", []string{})
	v.SetDefault("browser.replay_har", "")
	v.SetDefault("browser.timeout", 30000)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.request_key", "locator:requests")
	v.SetDefault("redis.event_stream", "locator:events")

	v.SetDefault("locator.category_order", []string{"early", "today"})
	v.SetDefault("locator.keywords_file", "")
	v.SetDefault("locator.timings.activation_delay", 300)
	v.SetDefault("locator.timings.category_retry_interval", 1000)
	v.SetDefault("locator.timings.category_retry_attempts", 4)
	v.SetDefault("locator.timings.category_settle", 800)
	v.SetDefault("locator.timings.sport_poll_interval", 300)
	v.SetDefault("locator.timings.sport_poll_attempts", 10)
	v.SetDefault("locator.timings.sport_settle", 800)
	v.SetDefault("locator.timings.date_settle", 1500)
	v.SetDefault("locator.timings.list_load_interval", 1000)
	v.SetDefault("locator.timings.list_load_attempts", 10)
	v.SetDefault("locator.timings.league_settle", 800)
	v.SetDefault("locator.timings.bulk_expand_settle", 300)
	v.SetDefault("locator.timings.enter_settle", 1000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", cfg.Logging.Format)
	}

	if len(cfg.Locator.CategoryOrder) == 0 {
		return fmt.Errorf("locator.category_order is required")
	}
	for _, c := range cfg.Locator.CategoryOrder {
		if _, ok := locate.ParseCategory(c); !ok {
			return fmt.Errorf("locator.category_order: unknown category %q", c)
		}
	}

	t := cfg.Locator.Timings
	if t.CategoryRetryAttempts < 1 || t.SportPollAttempts < 1 || t.ListLoadAttempts < 1 {
		return fmt.Errorf("locator.timings: attempt counts must be at least 1")
	}

	if cfg.Redis.RequestKey == "" || cfg.Redis.EventStream == "" {
		return fmt.Errorf("redis.request_key and redis.event_stream are required")
	}

	return nil
}
