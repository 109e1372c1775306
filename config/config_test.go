package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PARLO_APIKEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.Voice != DefaultVoice {
		t.Errorf("voice = %q, want %q", cfg.Voice, DefaultVoice)
	}
	if cfg.Language != "Spanish" {
		t.Errorf("language = %q, want Spanish", cfg.Language)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PARLO_APIKEY", "env-key")
	t.Setenv("PARLO_LANGUAGE", "French")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("apikey = %q, want env-key", cfg.APIKey)
	}
	if cfg.Language != "French" {
		t.Errorf("language = %q, want French", cfg.Language)
	}
}

func TestLoadGeminiKeyFallback(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PARLO_APIKEY", "")
	t.Setenv("GEMINI_API_KEY", "sdk-key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "sdk-key" {
		t.Errorf("apikey = %q, want sdk-key", cfg.APIKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmp := chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PARLO_APIKEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	yaml := "apikey: file-key\nvoice: Kore\n"
	if err := os.WriteFile(filepath.Join(tmp, "parlo.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("apikey = %q, want file-key", cfg.APIKey)
	}
	if cfg.Voice != "Kore" {
		t.Errorf("voice = %q, want Kore", cfg.Voice)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{APIKey: "k", Model: "m", Voice: "v"}, false},
		{"missing key", Config{Model: "m", Voice: "v"}, true},
		{"missing model", Config{APIKey: "k", Voice: "v"}, true},
		{"missing voice", Config{APIKey: "k", Model: "m"}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
