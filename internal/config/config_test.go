package config

import (
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 600 {
		t.Errorf("expected WriteTimeoutSec=600, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.WatsonX.URL != "https://us-south.ml.cloud.ibm.com" {
		t.Errorf("unexpected default URL %q", cfg.WatsonX.URL)
	}
	if cfg.WatsonX.TokenURL != "https://iam.cloud.ibm.com/identity/token" {
		t.Errorf("unexpected default TokenURL %q", cfg.WatsonX.TokenURL)
	}
	if cfg.WatsonX.ModelID != "mistralai/mistral-medium-2505" {
		t.Errorf("unexpected default ModelID %q", cfg.WatsonX.ModelID)
	}
	if cfg.WatsonX.MaxTokens != 16000 {
		t.Errorf("expected MaxTokens=16000, got %d", cfg.WatsonX.MaxTokens)
	}
	if cfg.WatsonX.TokenMarginMin != 10 {
		t.Errorf("expected TokenMarginMin=10, got %d", cfg.WatsonX.TokenMarginMin)
	}
	if cfg.Segmenter.DPI != 200 {
		t.Errorf("expected DPI=200, got %d", cfg.Segmenter.DPI)
	}
	if cfg.Cache.KeyPrefix != "ocr:" {
		t.Errorf("expected KeyPrefix='ocr:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("expected TTLHours=24, got %d", cfg.Cache.TTLHours)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5},
		WatsonX:   WatsonXConfig{ModelID: "meta-llama/llama-3-2-90b-vision-instruct", MaxTokens: 4000},
		Segmenter: SegmenterConfig{DPI: 300},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.WatsonX.ModelID != "meta-llama/llama-3-2-90b-vision-instruct" {
		t.Errorf("ModelID overridden: %q", cfg.WatsonX.ModelID)
	}
	if cfg.WatsonX.MaxTokens != 4000 {
		t.Errorf("expected MaxTokens=4000, got %d", cfg.WatsonX.MaxTokens)
	}
	if cfg.Segmenter.DPI != 300 {
		t.Errorf("expected DPI=300, got %d", cfg.Segmenter.DPI)
	}
}

func TestApplyDefaults_DropsBlankCacheAddrs(t *testing.T) {
	cfg := Config{Cache: CacheConfig{Addrs: []string{"", "localhost:6379", ""}}}
	cfg.ApplyDefaults()

	if len(cfg.Cache.Addrs) != 1 || cfg.Cache.Addrs[0] != "localhost:6379" {
		t.Errorf("expected [localhost:6379], got %v", cfg.Cache.Addrs)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		HTTP:    HTTPConfig{Port: 8000},
		WatsonX: WatsonXConfig{APIKey: "key", ProjectID: "proj", Temperature: 0.1, TopP: 0.95},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }, true},
		{"missing api key", func(c *Config) { c.WatsonX.APIKey = "" }, true},
		{"missing project id", func(c *Config) { c.WatsonX.ProjectID = "" }, true},
		{"temperature out of range", func(c *Config) { c.WatsonX.Temperature = 3 }, true},
		{"top_p out of range", func(c *Config) { c.WatsonX.TopP = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("OCR_TEST_KEY", "secret")

	in := []byte("api_key: ${OCR_TEST_KEY}\nurl: ${OCR_TEST_MISSING:-https://fallback}\nempty: ${OCR_TEST_MISSING}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nurl: https://fallback\nempty: \n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
