package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tuespacio/tuespacio/internal/config"
)

func TestConfigSaveAndLoad(t *testing.T) {
	// Use a temp dir as home
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := CLIConfig{StoreURL: "http://myhost:8090"}
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(tmp, ".config", "tuespacio", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not found: %v", err)
	}

	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.StoreURL != cfg.StoreURL {
		t.Errorf("store_url = %q, want %q", loaded.StoreURL, cfg.StoreURL)
	}
}

func TestConfigLoadMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.StoreURL != "" {
		t.Error("expected zero-value config for missing file")
	}
}

func TestConfigLoadInvalid(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	path := filepath.Join(tmp, ".config", "tuespacio", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("store_url: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetStoreURL(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		env    string
		config string
		want   string
	}{
		{"default", "", "", "", config.DefaultStoreURL},
		{"config file", "", "", "http://config:8090/", "http://config:8090"},
		{"env over config", "", "http://env:8090", "http://config:8090", "http://env:8090"},
		{"flag over env", "http://flag:8090", "http://env:8090", "http://config:8090", "http://flag:8090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("TUESPACIO_STORE_URL", tt.env)
			if tt.config != "" {
				if err := saveConfig(CLIConfig{StoreURL: tt.config}); err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			flagStore = tt.flag
			t.Cleanup(func() { flagStore = "" })

			if got := getStoreURL(); got != tt.want {
				t.Errorf("getStoreURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
