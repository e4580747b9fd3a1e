package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig_EmptyBackendDefaultsSQLite(t *testing.T) {
	cfg := StorageConfig{Backend: "", Path: "./board.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to sqlite: %v", err)
	}
	if cfg.Backend != StorageBackendSQLite {
		t.Errorf("backend = %q, want %q", cfg.Backend, StorageBackendSQLite)
	}
}

func TestStorageConfig_UnknownBackend(t *testing.T) {
	cfg := StorageConfig{Backend: "redis", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestStorageConfig_MissingPath(t *testing.T) {
	cfg := StorageConfig{Backend: StorageBackendFile}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing path should fail validation")
	}
}

func TestBoardConfig_DurationHelpers(t *testing.T) {
	cfg := BoardConfig{RemovalDelayMS: 400, SaveDebounceMS: 300, EventThrottleMS: 2000}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid board config should pass: %v", err)
	}
	if cfg.RemovalDelay() != 400*time.Millisecond {
		t.Errorf("removal delay = %v", cfg.RemovalDelay())
	}
	if cfg.SaveDebounce() != 300*time.Millisecond {
		t.Errorf("save debounce = %v", cfg.SaveDebounce())
	}
	if cfg.EventThrottle() != 2*time.Second {
		t.Errorf("event throttle = %v", cfg.EventThrottle())
	}
}

func TestBoardConfig_NegativeRejected(t *testing.T) {
	cfg := BoardConfig{RemovalDelayMS: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative removal delay should fail validation")
	}
}

func TestInboxConfig_DisabledSkipsPathCheck(t *testing.T) {
	cfg := InboxConfig{Enabled: false, Path: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled inbox should pass without a path: %v", err)
	}

	cfg = InboxConfig{Enabled: true, Path: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled inbox without a path should fail")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
