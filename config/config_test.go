package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.MaxIterations)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("PROVIDER", "anthropic")
	t.Setenv("MAX_ITERATIONS", "5")
	t.Setenv("CORS_ORIGINS", "https://pharmacy.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Provider != ProviderAnthropic || cfg.MaxIterations != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://pharmacy.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PROVIDER", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted unknown provider")
	}
}

func TestOpenAIConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.OpenAIConfigured() {
		t.Error("empty key should not be configured")
	}
	cfg.OpenAIAPIKey = "not-a-key"
	if cfg.OpenAIConfigured() {
		t.Error("key without sk- prefix should not be configured")
	}
	cfg.OpenAIAPIKey = "sk-test-123"
	if !cfg.OpenAIConfigured() {
		t.Error("sk- key should be configured")
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("name", "").
		RequirePositive("count", 0).
		ValidateOneOf("mode", "x", "a", "b").
		ValidateAddr("addr", "8000")
	if !v.HasErrors() {
		t.Fatal("validator should report errors")
	}
	if len(v.Errors()) != 4 {
		t.Errorf("error count = %d, want 4", len(v.Errors()))
	}
	if v.Error() == nil {
		t.Error("Error() should be non-nil")
	}

	ok := NewValidator()
	ok.RequireNonEmpty("name", "x").ValidateAddr("addr", ":8000")
	if ok.Error() != nil {
		t.Errorf("valid config reported error: %v", ok.Error())
	}
}
