package config

import (
	"os"
	"testing"

	"tradeflow/provider"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `tradeflow:
  name: "TestApp"
  version: "1.0"
  mode: paper
providers:
  webull:
    enabled: true
    demo: true
  alpaca:
    enabled: true
    paper:
      api_key: "pk-test"
      api_secret: "ps-test"
  alphavantage:
    enabled: false
    live:
      api_key: "av-test"
fallback:
  enabled: true
  default_provider: alphavantage
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tradeflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Tradeflow.Name)
	}
	if !cfg.ProviderEnabled("webull") {
		t.Error("expected webull enabled")
	}
	if cfg.ProviderEnabled("alphavantage") {
		t.Error("expected alphavantage disabled")
	}
	if !cfg.DemoMode("webull") {
		t.Error("expected webull demo mode")
	}
	if cfg.Mode() != provider.ModePaper {
		t.Errorf("unexpected mode: %s", cfg.Mode())
	}
}

func TestDefaultProvider(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.DefaultProvider(); got != "alphavantage" {
		t.Errorf("unexpected default provider: %q", got)
	}

	cfg.Fallback.Enabled = false
	if got := cfg.DefaultProvider(); got != "" {
		t.Errorf("disabled fallback must yield no default, got %q", got)
	}
}

func TestLoadConfigInvalidMode(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	content := "tradeflow:\n  name: x\n  version: \"1\"\n  mode: pretend\n"
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for bad mode")
	}
}

func TestCredentialsPerMode(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	creds, err := cfg.Credentials("alpaca", provider.ModePaper)
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.APIKey != "pk-test" {
		t.Errorf("expected paper key, got %q", creds.APIKey)
	}

	// Live set is empty and alpaca is not in demo mode.
	if _, err := cfg.Credentials("alpaca", provider.ModeLive); err == nil {
		t.Error("expected missing_credentials for empty live set")
	} else if provider.KindOf(err) != provider.KindMissingCredentials {
		t.Errorf("unexpected error kind: %v", provider.KindOf(err))
	}

	// Data-only provider resolves its single key set regardless of mode.
	creds, err = cfg.Credentials("alphavantage", provider.ModePaper)
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.APIKey != "av-test" {
		t.Errorf("expected data-only key, got %q", creds.APIKey)
	}
}

func TestCredentialsEnvOverride(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("ALPACA_API_KEY", "pk-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	creds, err := cfg.Credentials("alpaca", provider.ModePaper)
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.APIKey != "pk-env" {
		t.Errorf("expected env override, got %q", creds.APIKey)
	}
}

func TestCredentialsUnknownProvider(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if _, err := cfg.Credentials("nope", provider.ModePaper); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestEnabledProviders(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	got := cfg.EnabledProviders()
	want := []string{"alpaca", "webull"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
