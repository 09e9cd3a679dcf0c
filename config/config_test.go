package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "API_KEY", "MEDIA_API_KEY", "MEDIA_PROVIDER"} {
		t.Setenv(name, "")
	}
}

func TestLoadAPIKeysNormalizesProviderKey(t *testing.T) {
	t.Setenv("UNITTEST_API_KEY", "secret")

	cfg := &Config{
		Provider: "UNITTEST",
		APIKeys:  make(map[string]string),
	}

	loadAPIKeys(cfg)

	if cfg.APIKeys["unittest"] != "secret" {
		t.Fatalf("expected lower-case provider key to be set, got %q", cfg.APIKeys["unittest"])
	}

	if cfg.APIKeys["UNITTEST"] != "secret" {
		t.Fatalf("expected provider key to be set with original casing, got %q", cfg.APIKeys["UNITTEST"])
	}
}

func TestLoadAPIKeysUsesProviderAlias(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "gem-secret")

	cfg := &Config{Provider: "google"}
	loadAPIKeys(cfg)

	if cfg.APIKeys["google"] != "gem-secret" {
		t.Fatalf("expected GEMINI_API_KEY to be used for google, got %q", cfg.APIKeys["google"])
	}
}

func TestLoadAPIKeysFallsBackToGenericKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("API_KEY", "generic")

	cfg := &Config{Provider: "google"}
	loadAPIKeys(cfg)

	if cfg.APIKeys["google"] != "generic" {
		t.Fatalf("expected API_KEY fallback, got %q", cfg.APIKeys["google"])
	}
}

func TestLoadAPIKeysPrefersProviderKeyOverAlias(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "direct")
	t.Setenv("GEMINI_API_KEY", "alias")

	cfg := &Config{Provider: "google"}
	loadAPIKeys(cfg)

	if cfg.APIKeys["google"] != "direct" {
		t.Fatalf("expected GOOGLE_API_KEY to win, got %q", cfg.APIKeys["google"])
	}
}

func TestSetProviderNormalizesValue(t *testing.T) {
	cfg := &Config{}

	SetProvider(" Google ")(cfg)

	if cfg.Provider != "google" {
		t.Fatalf("expected provider to be normalized to lower case, got %q", cfg.Provider)
	}
}

func TestLoadConfigNormalizesProvider(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MEDIA_PROVIDER", "Google")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed, got error: %v", err)
	}

	if cfg.Provider != "google" {
		t.Fatalf("expected provider to be normalized to lower case, got %q", cfg.Provider)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed, got error: %v", err)
	}

	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("expected default poll interval of 10s, got %s", cfg.PollInterval)
	}
	if cfg.PollMaxWait != 30*time.Minute {
		t.Fatalf("expected default poll max wait of 30m, got %s", cfg.PollMaxWait)
	}
	if cfg.PollMaxAttempts != 0 {
		t.Fatalf("expected unlimited poll attempts by default, got %d", cfg.PollMaxAttempts)
	}
	if cfg.ArtifactBackend != "memory" {
		t.Fatalf("expected memory artifact backend, got %q", cfg.ArtifactBackend)
	}
	if cfg.BatchConcurrency != 4 {
		t.Fatalf("expected batch concurrency of 4, got %d", cfg.BatchConcurrency)
	}
}

func TestOptionsOverrideEnvironment(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MEDIA_POLL_INTERVAL", "5s")
	t.Setenv("MEDIA_API_KEY", "from-env")

	cfg, err := LoadConfig(SetPollInterval(time.Second), SetAPIKey("from-option"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed, got error: %v", err)
	}

	if cfg.PollInterval != time.Second {
		t.Fatalf("expected option to override env poll interval, got %s", cfg.PollInterval)
	}
	if cfg.ResolvedAPIKey() != "from-option" {
		t.Fatalf("expected option API key, got %q", cfg.ResolvedAPIKey())
	}
}

func TestLoadConfigParsesExtraHeaders(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MEDIA_EXTRA_HEADERS", "X-Team:media,X-Trace:on")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed, got error: %v", err)
	}

	if cfg.ExtraHeaders["X-Team"] != "media" || cfg.ExtraHeaders["X-Trace"] != "on" {
		t.Fatalf("unexpected extra headers: %v", cfg.ExtraHeaders)
	}
}

func TestLoadConfigRejectsFileBackendWithoutDir(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MEDIA_ARTIFACT_BACKEND", "file")
	t.Setenv("MEDIA_ARTIFACT_DIR", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error for a file backend without a directory")
	}
}

func TestLoadConfigRejectsInvalidBatchConcurrency(t *testing.T) {
	clearKeyEnv(t)

	if _, err := LoadConfig(SetBatchConcurrency(0)); err == nil {
		t.Fatal("expected an error for zero batch concurrency")
	}
}

func TestModelForPrecedence(t *testing.T) {
	cfg := &Config{Model: "shared", VideoModel: "veo-custom"}

	if got := cfg.ModelFor("video"); got != "veo-custom" {
		t.Fatalf("expected per-mode model, got %q", got)
	}
	if got := cfg.ModelFor("image"); got != "shared" {
		t.Fatalf("expected shared model, got %q", got)
	}
}

func TestJSONSchemaOmitsCredentials(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("expected schema, got error: %v", err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("schema has no properties: %s", data)
	}
	if _, ok := properties["poll_interval"]; !ok {
		t.Fatalf("expected poll_interval in schema: %s", data)
	}
	if strings.Contains(string(data), "api_key") {
		t.Fatalf("schema must not describe credentials: %s", data)
	}
}
