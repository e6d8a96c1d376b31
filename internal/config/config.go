package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the OCR service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	WatsonX   WatsonXConfig   `yaml:"watsonx"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Samples   SamplesConfig   `yaml:"samples"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// WatsonXConfig holds the remote model and identity-provider settings.
// The model parameters are fixed for the process lifetime.
type WatsonXConfig struct {
	APIKey             string  `yaml:"api_key"`
	URL                string  `yaml:"url"`
	TokenURL           string  `yaml:"token_url"`
	ProjectID          string  `yaml:"project_id"`
	ModelID            string  `yaml:"model_id"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	TopP               float64 `yaml:"top_p"`
	TokenMarginMin     int     `yaml:"token_margin_min"`     // refresh this many minutes before expiry
	RequestTimeoutSec  int     `yaml:"request_timeout_sec"`  // per model call
	ExchangeTimeoutSec int     `yaml:"exchange_timeout_sec"` // per token exchange
	PromptFile         string  `yaml:"prompt_file"`          // optional taxonomy prompt override
}

// SegmenterConfig holds page rendering settings.
type SegmenterConfig struct {
	DPI int `yaml:"dpi"` // rendering resolution for PDF pages
}

// SamplesConfig holds the sample document store settings.
type SamplesConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig holds optional result cache settings. Empty addrs disables caching.
type CacheConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTLHours  int      `yaml:"ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Model calls for a long PDF can take minutes; the write timeout bounds them.
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.WatsonX.URL == "" {
		c.WatsonX.URL = "https://us-south.ml.cloud.ibm.com"
	}
	if c.WatsonX.TokenURL == "" {
		c.WatsonX.TokenURL = "https://iam.cloud.ibm.com/identity/token"
	}
	if c.WatsonX.ModelID == "" {
		c.WatsonX.ModelID = "mistralai/mistral-medium-2505"
	}
	if c.WatsonX.MaxTokens <= 0 {
		c.WatsonX.MaxTokens = 16000
	}
	if c.WatsonX.Temperature <= 0 {
		c.WatsonX.Temperature = 0.1
	}
	if c.WatsonX.TopP <= 0 {
		c.WatsonX.TopP = 0.95
	}
	if c.WatsonX.TokenMarginMin <= 0 {
		// IAM tokens live 60 minutes; refresh at 50.
		c.WatsonX.TokenMarginMin = 10
	}
	if c.WatsonX.RequestTimeoutSec <= 0 {
		c.WatsonX.RequestTimeoutSec = 180
	}
	if c.WatsonX.ExchangeTimeoutSec <= 0 {
		c.WatsonX.ExchangeTimeoutSec = 30
	}
	if c.Segmenter.DPI <= 0 {
		// Chosen for OCR fidelity, not filesize.
		c.Segmenter.DPI = 200
	}
	if c.Samples.Dir == "" {
		c.Samples.Dir = "samples"
	}
	// Empty ${VAR} expansions leave blank entries; an all-blank list means
	// caching is disabled.
	addrs := c.Cache.Addrs[:0]
	for _, a := range c.Cache.Addrs {
		if a != "" {
			addrs = append(addrs, a)
		}
	}
	c.Cache.Addrs = addrs
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "ocr:"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.WatsonX.APIKey == "" {
		return fmt.Errorf("watsonx.api_key is required")
	}
	if c.WatsonX.ProjectID == "" {
		return fmt.Errorf("watsonx.project_id is required")
	}
	if c.WatsonX.Temperature > 2 {
		return fmt.Errorf("watsonx.temperature must be at most 2, got %g", c.WatsonX.Temperature)
	}
	if c.WatsonX.TopP > 1 {
		return fmt.Errorf("watsonx.top_p must be at most 1, got %g", c.WatsonX.TopP)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
