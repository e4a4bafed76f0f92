package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-medical-imaging/internal/payload"
)

// Default prompts, one pair per entry point
var (
	DefaultAPIPrompts = payload.Prompts{
		System: "You are an expert AI radiologist analyzing medical images. Provide a detailed assessment.",
		User:   "Perform a detailed radiological assessment of this image.",
	}
	DefaultUIPrompts = payload.Prompts{
		System: "You are an expert AI radiologist analyzing medical images...",
		User:   "Analyze this image in detail with abnormalities, observations & recommendations.",
	}
)

type Config struct {
	Host               string
	Port               string
	UIPort             string
	RequestTimeout     time.Duration
	UpstreamTimeout    time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	MaxImageSize       int64
	MaxImagePixels     int64
	RateLimitPerMinute int
	TrustedProxies     []string
	LogLevel           string

	OpenAIBaseURL string
	Model         string
	APIPrompts    payload.Prompts
	UIPrompts     payload.Prompts

	AzureAccount      string
	AzureKey          string
	AllowedFetchHosts []string
}

// promptFile is the layout of PROMPTS_FILE
type promptFile struct {
	API *payload.Prompts `yaml:"api"`
	UI  *payload.Prompts `yaml:"ui"`
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

func (c *Config) UIServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.UIPort))
}

// AzureEnabled reports whether blob sources can be used
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != ""
}

// LoadDotEnv loads variables from .env files without overriding the environment.
// Missing files are not an error.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8000"),
		UIPort:             getEnvOrDefault("UI_PORT", "8501"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 0),
		UpstreamTimeout:    parseDurationOrDefault("UPSTREAM_TIMEOUT", 0),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 30*1024*1024), // 30MB
		MaxImageSize:       parseIntOrDefault("MAX_IMAGE_SIZE", 20*1024*1024),        // 20MB
		MaxImagePixels:     parseIntOrDefault("MAX_IMAGE_PIXELS", 40_000_000),
		RateLimitPerMinute: int(parseIntOrDefault("RATE_LIMIT_PER_MINUTE", 0)),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		OpenAIBaseURL:      getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:              getEnvOrDefault("OPENAI_MODEL", payload.DefaultModel),
		APIPrompts:         DefaultAPIPrompts,
		UIPrompts:          DefaultUIPrompts,
		AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
		AllowedFetchHosts:  splitList(os.Getenv("ALLOWED_FETCH_HOSTS")),
	}

	if path := os.Getenv("PROMPTS_FILE"); path != "" {
		if err := cfg.loadPrompts(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail at listen or request time
func (c *Config) Validate() error {
	for name, port := range map[string]string{"PORT": c.Port, "UI_PORT": c.UIPort} {
		p, err := strconv.Atoi(strings.TrimSpace(port))
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid %s: %q", name, port)
		}
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be > 0 (got %d)", c.MaxImageSize)
	}
	if c.RequestTimeout < 0 || c.UpstreamTimeout < 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("invalid timeouts (request=%s, upstream=%s, fetch=%s)",
			c.RequestTimeout, c.UpstreamTimeout, c.ImageFetchTimeout)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.MaxImagePixels)
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
			}
		}
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0 (got %d)", c.RateLimitPerMinute)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("OPENAI_MODEL must not be empty")
	}
	return nil
}

func (c *Config) loadPrompts(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if file.API != nil {
		c.APIPrompts = mergePrompts(c.APIPrompts, *file.API)
	}
	if file.UI != nil {
		c.UIPrompts = mergePrompts(c.UIPrompts, *file.UI)
	}
	return nil
}

// mergePrompts keeps defaults for fields the file leaves empty
func mergePrompts(base, override payload.Prompts) payload.Prompts {
	if override.System != "" {
		base.System = override.System
	}
	if override.User != "" {
		base.User = override.User
	}
	return base
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
