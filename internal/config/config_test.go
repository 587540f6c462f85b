package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "generated_images" {
		t.Errorf("OutputDir: got %q", cfg.OutputDir)
	}
	if cfg.MaxImageBytes != 10*1024*1024 {
		t.Errorf("MaxImageBytes: got %d", cfg.MaxImageBytes)
	}
	if got := cfg.MissingCredentials(); len(got) != 3 {
		t.Errorf("MissingCredentials: got %v, want all three", got)
	}
}

func TestLoad_Env(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		EnvGeminiAPIKey:   "g-key",
		EnvRemoveBGAPIKey: "r-key",
		EnvOutputDir:      "",
		EnvLogLevel:       "debug",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiAPIKey != "g-key" || cfg.RemoveBGAPIKey != "r-key" {
		t.Errorf("credentials not applied: %+v", cfg)
	}
	if cfg.OutputDir != "" {
		t.Errorf("empty %s should disable output dir, got %q", EnvOutputDir, cfg.OutputDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
	if got := cfg.MissingCredentials(); len(got) != 1 || got[0] != EnvFreeImageAPIKey {
		t.Errorf("MissingCredentials: got %v", got)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptshop.yaml")
	content := `
gemini_api_key: ${MY_GEMINI}
edit_model: gemini-custom
upstream_timeout: 15s
registry_capacity: 10
registry_ttl: 1h
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, envMap(map[string]string{"MY_GEMINI": "from-file"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiAPIKey != "from-file" {
		t.Errorf("GeminiAPIKey: got %q", cfg.GeminiAPIKey)
	}
	if cfg.EditModel != "gemini-custom" {
		t.Errorf("EditModel: got %q", cfg.EditModel)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout: got %v", cfg.UpstreamTimeout)
	}
	if cfg.RegistryCapacity != 10 || cfg.RegistryTTL != time.Hour {
		t.Errorf("registry: got %d / %v", cfg.RegistryCapacity, cfg.RegistryTTL)
	}
	// Untouched fields keep their defaults.
	if cfg.GenerateModel != Default().GenerateModel {
		t.Errorf("GenerateModel: got %q", cfg.GenerateModel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptshop.yaml")
	if err := os.WriteFile(path, []byte("gemini_api_key: file-key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, envMap(map[string]string{EnvGeminiAPIKey: "env-key"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GeminiAPIKey != "env-key" {
		t.Errorf("GeminiAPIKey: got %q, want env-key", cfg.GeminiAPIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "registry_capacity: [1, 2"},
		{"negative capacity", "registry_capacity: -1"},
		{"zero max bytes", "max_image_bytes: 0"},
		{"empty model", "generate_model: \"\""},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path, envMap(nil)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil)); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCredential(t *testing.T) {
	cfg := Default()
	cfg.FreeImageAPIKey = "f-key"

	if v, err := cfg.Credential(EnvFreeImageAPIKey); err != nil || v != "f-key" {
		t.Errorf("FREEIMAGE: got %q, %v", v, err)
	}

	_, err := cfg.Credential(EnvGeminiAPIKey)
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("got %v, want *ConfigurationError", err)
	}
	if cerr.Variable != EnvGeminiAPIKey {
		t.Errorf("Variable: got %s", cerr.Variable)
	}
}
