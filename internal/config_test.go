package internal

import (
	"strings"
	"testing"
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
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Workspace.KnowledgeDir != "docs/knowledge" {
		t.Errorf("knowledge dir = %q", cfg.Workspace.KnowledgeDir)
	}
	if cfg.Probe.CanaryID != "kno-canary" {
		t.Errorf("canary id = %q", cfg.Probe.CanaryID)
	}
}

func TestScanConfig_RejectsZeroWorkers(t *testing.T) {
	cfg := ScanConfig{Parallel: true, Workers: 0, Threshold: 64}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero workers should fail validation")
	}
}

func TestSyncConfig_RejectsZeroTimeout(t *testing.T) {
	cfg := SyncConfig{TimeoutSeconds: 0, MaxBodyBytes: 1024}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero timeout should fail validation")
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
	cfg.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid port should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestFullConfig_WorkspaceValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workspace.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch workspace error")
	}
}
