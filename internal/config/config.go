package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/pdwatch/internal/domain"
)

// Config is the on-disk configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Source   SourceConfig   `toml:"source"`
	Cache    CacheConfig    `toml:"cache"`
	Forecast ForecastConfig `toml:"forecast"`
	Serve    ServeConfig    `toml:"serve"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type SourceConfig struct {
	BulletinURL string `toml:"bulletin_url"`
	PermURL     string `toml:"perm_url"`
	APIKeyEnv   string `toml:"api_key_env"`
	Timeout     string `toml:"timeout"`
	MaxRetries  int    `toml:"max_retries"`
}

type CacheConfig struct {
	RefreshInterval string `toml:"refresh_interval"`
}

// ForecastConfig mirrors domain.ForecastPolicy.
type ForecastConfig struct {
	VeryOldYears                  float64 `toml:"very_old_years"`
	VeryOldPermMonths             int     `toml:"very_old_perm_months"`
	VeryOldFilingMonthsEmployment int     `toml:"very_old_filing_months_employment"`
	VeryOldFilingMonthsFamily     int     `toml:"very_old_filing_months_family"`
	FilingToFinalActionMonths     int     `toml:"filing_to_final_action_months"`
	FinalActionToCardMonths       int     `toml:"final_action_to_card_months"`
	ConservatismBufferMonths      int     `toml:"conservatism_buffer_months"`
	TrendWindow                   int     `toml:"trend_window"`
	DefaultAdvanceDays            int     `toml:"default_advance_days"`
	MinAdvanceDays                int     `toml:"min_advance_days"`
	MaxAdvanceDays                int     `toml:"max_advance_days"`
	OutlierDeltaDays              int     `toml:"outlier_delta_days"`
}

type ServeConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// Default returns the configuration used when no file overrides it.
func Default(dbPath string) Config {
	p := domain.DefaultForecastPolicy()
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".pdwatch/log",
			},
		},
		Source: SourceConfig{
			APIKeyEnv:  "PDWATCH_JSONBIN_KEY",
			Timeout:    "30s",
			MaxRetries: 2,
		},
		Cache: CacheConfig{
			RefreshInterval: "15m",
		},
		Forecast: ForecastConfig{
			VeryOldYears:                  p.VeryOldYears,
			VeryOldPermMonths:             p.VeryOldPermMonths,
			VeryOldFilingMonthsEmployment: p.VeryOldFilingMonthsEmployment,
			VeryOldFilingMonthsFamily:     p.VeryOldFilingMonthsFamily,
			FilingToFinalActionMonths:     p.FilingToFinalActionMonths,
			FinalActionToCardMonths:       p.FinalActionToCardMonths,
			ConservatismBufferMonths:      p.ConservatismBufferMonths,
			TrendWindow:                   p.TrendWindow,
			DefaultAdvanceDays:            p.DefaultAdvanceDays,
			MinAdvanceDays:                p.MinAdvanceDays,
			MaxAdvanceDays:                p.MaxAdvanceDays,
			OutlierDeltaDays:              p.OutlierDeltaDays,
		},
		Serve: ServeConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

// Load reads path over defaults. A missing or empty file yields defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if _, err := c.Source.TimeoutDuration(); err != nil {
		return err
	}
	if c.Source.MaxRetries < 0 {
		return errors.New("source.max_retries must be >= 0")
	}
	if _, err := c.Cache.Interval(); err != nil {
		return err
	}

	if err := c.Forecast.Policy().Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	for name, endpoint := range map[string]string{
		"serve.api_endpoint": c.Serve.APIEndpoint,
		"serve.mcp_endpoint": c.Serve.MCPEndpoint,
	} {
		if e := strings.TrimSpace(endpoint); e != "" && !strings.HasPrefix(e, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	return nil
}

// Policy converts the section to a domain policy.
func (f ForecastConfig) Policy() domain.ForecastPolicy {
	return domain.ForecastPolicy{
		VeryOldYears:                  f.VeryOldYears,
		VeryOldPermMonths:             f.VeryOldPermMonths,
		VeryOldFilingMonthsEmployment: f.VeryOldFilingMonthsEmployment,
		VeryOldFilingMonthsFamily:     f.VeryOldFilingMonthsFamily,
		FilingToFinalActionMonths:     f.FilingToFinalActionMonths,
		FinalActionToCardMonths:       f.FinalActionToCardMonths,
		ConservatismBufferMonths:      f.ConservatismBufferMonths,
		TrendWindow:                   f.TrendWindow,
		DefaultAdvanceDays:            f.DefaultAdvanceDays,
		MinAdvanceDays:                f.MinAdvanceDays,
		MaxAdvanceDays:                f.MaxAdvanceDays,
		OutlierDeltaDays:              f.OutlierDeltaDays,
	}
}

// TimeoutDuration parses source.timeout. Empty means the client default.
func (s SourceConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("source.timeout", s.Timeout)
}

// APIKey reads the document store key from the configured environment variable.
func (s SourceConfig) APIKey() string {
	name := strings.TrimSpace(s.APIKeyEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// Interval parses cache.refresh_interval. Empty means the service default.
func (c CacheConfig) Interval() (time.Duration, error) {
	return parseDuration("cache.refresh_interval", c.RefreshInterval)
}

func parseDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0", name)
	}
	return d, nil
}
