package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CATALOG_TEST_HOST", "db.internal")

	tests := []struct {
		in   string
		want string
	}{
		{"host: ${CATALOG_TEST_HOST}", "host: db.internal"},
		{"host: ${CATALOG_TEST_HOST:localhost}", "host: db.internal"},
		{"port: ${CATALOG_TEST_MISSING:5432}", "port: 5432"},
		{"password: ${CATALOG_TEST_MISSING:}", "password: "},
		{"raw: ${CATALOG_TEST_MISSING}", "raw: ${CATALOG_TEST_MISSING}"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFrom_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	base := []byte(`
search:
  default_limit: 15
  elasticsearch:
    addresses: ["${CATALOG_TEST_ES:http://es:9200}"]
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), base, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "test")
	env := []byte(`
features:
  advanced_search:
    fallback_on_index_error: true
`)
	if err := os.WriteFile(filepath.Join(dir, "config.test.yaml"), env, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Search.DefaultLimit != 15 {
		t.Errorf("DefaultLimit = %d, want 15", cfg.Search.DefaultLimit)
	}
	if got := cfg.Search.Elasticsearch.Addresses; len(got) != 1 || got[0] != "http://es:9200" {
		t.Errorf("Addresses = %v", got)
	}
	if !cfg.Features.AdvancedSearch.FallbackOnIndexError {
		t.Error("env-specific file was not merged")
	}
	if cfg.Search.MaxLimit != 50 || cfg.Search.SuggestMaxLimit != 10 {
		t.Errorf("unexpected limit defaults: %+v", cfg.Search)
	}
	if cfg.Search.Elasticsearch.ProbeFailureTTL != time.Second {
		t.Errorf("ProbeFailureTTL = %s", cfg.Search.Elasticsearch.ProbeFailureTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Search: SearchConfig{
			DefaultLimit:        20,
			MaxLimit:            50,
			SuggestDefaultLimit: 5,
			SuggestMaxLimit:     10,
			Elasticsearch: ElasticsearchConfig{
				Enabled:         true,
				Addresses:       []string{"http://localhost:9200"},
				ProbeTTL:        5 * time.Second,
				ProbeFailureTTL: time.Second,
			},
		}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 60 }, true},
		{"zero suggest max", func(c *Config) { c.Search.SuggestMaxLimit = 0 }, true},
		{"no addresses", func(c *Config) { c.Search.Elasticsearch.Addresses = nil }, true},
		{"disabled without addresses", func(c *Config) {
			c.Search.Elasticsearch.Enabled = false
			c.Search.Elasticsearch.Addresses = nil
		}, false},
		{"failure ttl too long", func(c *Config) { c.Search.Elasticsearch.ProbeFailureTTL = time.Minute }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
