package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runger/dishdex/internal/dishes"
)

// Config represents the dishdex configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Browse  BrowseConfig  `yaml:"browse"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig points at the dish data service.
type ServiceConfig struct {
	BaseURL   string `yaml:"base_url"`   // e.g. http://localhost:3000/api
	TimeoutMs int    `yaml:"timeout_ms"` // HTTP client timeout
}

// BrowseConfig holds browser defaults.
type BrowseConfig struct {
	PageSize         int    `yaml:"page_size"`         // Rows per page when the address has no limit
	DebounceMs       int    `yaml:"debounce_ms"`       // Quiet period before autosuggest
	SuggestLimit     int    `yaml:"suggest_limit"`     // Max suggestions per query
	DefaultSort      string `yaml:"default_sort"`      // Initial sort column ("" = service order)
	DefaultDimension string `yaml:"default_dimension"` // Initial search dimension
}

// CacheConfig holds local cache settings.
type CacheConfig struct {
	IngredientsTTLMins int `yaml:"ingredients_ttl_mins"` // Ingredient list lifetime (0 = no cache)
	SuggestLRUSize     int `yaml:"suggest_lru_size"`     // Memoised autosuggest queries (0 = off)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Browser log file (overrides default)
}

// DefaultBaseURL is the dish service address used when none is configured.
const DefaultBaseURL = "http://localhost:3000/api"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:   DefaultBaseURL,
			TimeoutMs: 10000,
		},
		Browse: BrowseConfig{
			PageSize:         dishes.DefaultPageSize,
			DebounceMs:       250,
			SuggestLimit:     8,
			DefaultSort:      "",
			DefaultDimension: string(dishes.DimensionName),
		},
		Cache: CacheConfig{
			IngredientsTTLMins: 60,
			SuggestLRUSize:     128,
		},
		Log: LogConfig{
			Level: "info",
			File:  "", // Use default from paths
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Service.TimeoutMs) * time.Millisecond
}

// Debounce returns the autosuggest quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Browse.DebounceMs) * time.Millisecond
}

// IngredientsTTL returns how long the ingredient list stays cached.
func (c *Config) IngredientsTTL() time.Duration {
	return time.Duration(c.Cache.IngredientsTTLMins) * time.Minute
}

// Get retrieves a configuration value by dot-separated key.
// For example: "service.base_url" or "browse.page_size"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "service":
		return c.getServiceField(field)
	case "browse":
		return c.getBrowseField(field)
	case "cache":
		return c.getCacheField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "service":
		return c.setServiceField(field, value)
	case "browse":
		return c.setBrowseField(field, value)
	case "cache":
		return c.setCacheField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getServiceField(field string) (string, error) {
	switch field {
	case "base_url":
		return c.Service.BaseURL, nil
	case "timeout_ms":
		return strconv.Itoa(c.Service.TimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: service.%s", field)
	}
}

func (c *Config) setServiceField(field, value string) error {
	switch field {
	case "base_url":
		if err := validateBaseURL(value); err != nil {
			return err
		}
		c.Service.BaseURL = value
	case "timeout_ms":
		v, err := parseNonNegative("timeout_ms", value)
		if err != nil {
			return err
		}
		c.Service.TimeoutMs = v
	default:
		return fmt.Errorf("unknown field: service.%s", field)
	}
	return nil
}

func (c *Config) getBrowseField(field string) (string, error) {
	switch field {
	case "page_size":
		return strconv.Itoa(c.Browse.PageSize), nil
	case "debounce_ms":
		return strconv.Itoa(c.Browse.DebounceMs), nil
	case "suggest_limit":
		return strconv.Itoa(c.Browse.SuggestLimit), nil
	case "default_sort":
		return c.Browse.DefaultSort, nil
	case "default_dimension":
		return c.Browse.DefaultDimension, nil
	default:
		return "", fmt.Errorf("unknown field: browse.%s", field)
	}
}

func (c *Config) setBrowseField(field, value string) error {
	switch field {
	case "page_size":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for page_size: %w", err)
		}
		if v < 1 {
			return errors.New("invalid page_size: must be at least 1")
		}
		c.Browse.PageSize = v
	case "debounce_ms":
		v, err := parseNonNegative("debounce_ms", value)
		if err != nil {
			return err
		}
		c.Browse.DebounceMs = v
	case "suggest_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for suggest_limit: %w", err)
		}
		if v < 1 {
			return errors.New("invalid suggest_limit: must be at least 1")
		}
		c.Browse.SuggestLimit = v
	case "default_sort":
		if _, err := dishes.ParseSortField(value); err != nil {
			return err
		}
		c.Browse.DefaultSort = value
	case "default_dimension":
		d, err := dishes.ParseDimension(value)
		if err != nil {
			return err
		}
		c.Browse.DefaultDimension = string(d)
	default:
		return fmt.Errorf("unknown field: browse.%s", field)
	}
	return nil
}

func (c *Config) getCacheField(field string) (string, error) {
	switch field {
	case "ingredients_ttl_mins":
		return strconv.Itoa(c.Cache.IngredientsTTLMins), nil
	case "suggest_lru_size":
		return strconv.Itoa(c.Cache.SuggestLRUSize), nil
	default:
		return "", fmt.Errorf("unknown field: cache.%s", field)
	}
}

func (c *Config) setCacheField(field, value string) error {
	switch field {
	case "ingredients_ttl_mins":
		v, err := parseNonNegative("ingredients_ttl_mins", value)
		if err != nil {
			return err
		}
		c.Cache.IngredientsTTLMins = v
	case "suggest_lru_size":
		v, err := parseNonNegative("suggest_lru_size", value)
		if err != nil {
			return err
		}
		c.Cache.SuggestLRUSize = v
	default:
		return fmt.Errorf("unknown field: cache.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func parseNonNegative(name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must be non-negative", name)
	}
	return v, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validateBaseURL(c.Service.BaseURL); err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}

	if c.Service.TimeoutMs < 0 {
		return errors.New("service.timeout_ms must be >= 0")
	}

	if c.Browse.DebounceMs < 0 {
		return errors.New("browse.debounce_ms must be >= 0")
	}

	// Clamp page size to [1, 100]
	if c.Browse.PageSize < 1 {
		c.Browse.PageSize = 1
	}
	if c.Browse.PageSize > 100 {
		c.Browse.PageSize = 100
	}

	if c.Browse.SuggestLimit < 1 {
		c.Browse.SuggestLimit = 1
	}

	if _, err := dishes.ParseSortField(c.Browse.DefaultSort); err != nil {
		return fmt.Errorf("browse.default_sort: %w", err)
	}

	if _, err := dishes.ParseDimension(c.Browse.DefaultDimension); err != nil {
		return fmt.Errorf("browse.default_dimension: %w", err)
	}

	if c.Cache.IngredientsTTLMins < 0 {
		return errors.New("cache.ingredients_ttl_mins must be >= 0")
	}

	if c.Cache.SuggestLRUSize < 0 {
		return errors.New("cache.suggest_lru_size must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base url %q: missing host", raw)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DISHDEX_API_URL"); v != "" {
		c.Service.BaseURL = v
	}
	if v := os.Getenv("DISHDEX_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("DISHDEX_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"service.base_url",
		"service.timeout_ms",
		"browse.page_size",
		"browse.debounce_ms",
		"browse.suggest_limit",
		"browse.default_sort",
		"browse.default_dimension",
		"cache.ingredients_ttl_mins",
		"cache.suggest_lru_size",
		"log.level",
		"log.file",
	}
}
