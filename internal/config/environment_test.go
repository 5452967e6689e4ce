package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func noEnv(string) (string, bool) { return "", false }

func writeDotenv(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".env."+name), []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write dotenv file: %v", err)
	}
}

func TestResolveEnvironmentFromConfig(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	config := &Config{
		configDir: tempDir,
		Environments: map[string]EnvironmentConfig{
			"local": {DatabaseURL: "postgres://local", Container: "sales"},
		},
	}

	env, err := ResolveEnvironmentWith(config, "", noEnv)
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.Name != defaultEnvironmentName {
		t.Errorf("Expected default environment name %q, got %q", defaultEnvironmentName, env.Name)
	}
	if env.DatabaseURL != "postgres://local" || env.Container != "sales" {
		t.Errorf("Unexpected environment %+v", env)
	}
	if !env.FromConfig || env.FromDotenv {
		t.Errorf("Expected config-only environment, got %+v", env)
	}
	if env.ResultSinkURL != filepath.Join(tempDir, DefaultResultSinkURL) {
		t.Errorf("Expected default sink beside config, got %q", env.ResultSinkURL)
	}
}

func TestResolveEnvironmentNoDatabaseURL(t *testing.T) {
	t.Parallel()

	_, err := ResolveEnvironmentWith(&Config{configDir: t.TempDir()}, "", noEnv)
	if !errors.Is(err, ErrNoDatabaseURL) {
		t.Fatalf("Expected ErrNoDatabaseURL, got %v", err)
	}
}

func TestResolveEnvironmentFromDotenv(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeDotenv(t, tempDir, "staging", "DATABASE_URL=postgres://staging\nRESULT_SINK_URL=postgres://audit\nMAINTENANCE_CONTAINER=reporting\n")

	config := &Config{
		DefaultEnvironment: "staging",
		configDir:          tempDir,
		Environments: map[string]EnvironmentConfig{
			"staging": {DatabaseURL: "postgres://overridden", Container: "public"},
		},
	}

	env, err := ResolveEnvironmentWith(config, "", noEnv)
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.Name != "staging" {
		t.Errorf("Expected staging, got %q", env.Name)
	}
	if env.DatabaseURL != "postgres://staging" {
		t.Errorf("Expected dotenv database URL, got %q", env.DatabaseURL)
	}
	if env.ResultSinkURL != "postgres://audit" {
		t.Errorf("Expected dotenv sink URL, got %q", env.ResultSinkURL)
	}
	if env.Container != "reporting" {
		t.Errorf("Expected dotenv container, got %q", env.Container)
	}
	if !env.FromDotenv {
		t.Error("Expected FromDotenv")
	}
}

func TestResolveEnvironmentProcessEnvWins(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeDotenv(t, tempDir, "local", "DATABASE_URL=postgres://dotenv\nMAINTENANCE_CONTAINER=dotenv\n")

	config := &Config{
		configDir: tempDir,
		Environments: map[string]EnvironmentConfig{
			"local": {DatabaseURL: "postgres://config"},
		},
	}

	env, err := ResolveEnvironmentWith(config, "local", lookupFrom(map[string]string{
		EnvDatabaseURL: "postgres://process",
		EnvContainer:   "",
	}))
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.DatabaseURL != "postgres://process" {
		t.Errorf("Expected process env database URL, got %q", env.DatabaseURL)
	}
	// empty process values do not erase lower layers
	if env.Container != "dotenv" {
		t.Errorf("Expected dotenv container, got %q", env.Container)
	}
}

func TestResolveEnvironmentLibSQLToken(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeDotenv(t, tempDir, "edge", "LIBSQL_URL=libsql://db.turso.io\nLIBSQL_AUTH_TOKEN=secret\n")

	env, err := ResolveEnvironmentWith(&Config{configDir: tempDir}, "edge", noEnv)
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.DatabaseURL != "libsql://db.turso.io?authToken=secret" {
		t.Errorf("Unexpected libSQL URL %q", env.DatabaseURL)
	}
}

func TestResolveEnvironmentMissingDefinition(t *testing.T) {
	t.Parallel()

	config := &Config{
		Environments: map[string]EnvironmentConfig{
			"local": {DatabaseURL: "postgres://local"},
		},
		configDir: t.TempDir(),
	}

	if _, err := ResolveEnvironmentWith(config, "production", noEnv); err == nil {
		t.Fatal("Expected error resolving undefined environment, got nil")
	}
}

func TestResolveFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{"log.db", filepath.Join("/srv/app", "log.db")},
		{"/var/lib/idxmaint/log.db", "/var/lib/idxmaint/log.db"},
		{":memory:", ":memory:"},
		{"file:log.db?cache=shared", "file:log.db?cache=shared"},
		{"postgres://audit/db", "postgres://audit/db"},
		{"libsql://db.turso.io", "libsql://db.turso.io"},
	}

	for _, tt := range tests {
		if got := resolveFilePath(tt.target, "/srv/app"); got != tt.want {
			t.Errorf("resolveFilePath(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
