package config

import (
	"testing"
)

func TestAppEnvironmentDefaultsToDevelopment(t *testing.T) {
	t.Setenv(appEnvVar, "")
	if got := AppEnvironment(); got != EnvironmentDevelopment {
		t.Errorf("expected development default, got %q", got)
	}
}

func TestAppEnvironmentNormalizesAliases(t *testing.T) {
	cases := map[string]string{
		"prod":       EnvironmentProduction,
		"PROD":       EnvironmentProduction,
		"stag":       EnvironmentStaging,
		"production": EnvironmentProduction,
	}
	for raw, want := range cases {
		t.Setenv(appEnvVar, raw)
		if got := AppEnvironment(); got != want {
			t.Errorf("%q: expected %q, got %q", raw, want, got)
		}
	}
}

func TestIsProductionLike(t *testing.T) {
	if !IsProductionLike(EnvironmentProduction) || !IsProductionLike(EnvironmentStaging) {
		t.Error("production and staging are production-like")
	}
	if IsProductionLike(EnvironmentDevelopment) {
		t.Error("development is not production-like")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(appEnvVar, "prod")
	if got := ResolveConfigPath(""); got != "config/config.production.yml" {
		t.Errorf("expected production config path, got %q", got)
	}

	// An explicit non-default path always wins.
	if got := ResolveConfigPath("custom.yml"); got != "custom.yml" {
		t.Errorf("explicit path overridden: %q", got)
	}

	t.Setenv(appEnvVar, "development")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Errorf("expected default path, got %q", got)
	}
}
