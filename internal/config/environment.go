package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnvironmentName = "local"

	// DefaultResultSinkURL is a SQLite file beside idxmaint.toml
	DefaultResultSinkURL = "idxmaint-log.db"
)

// Environment variable names read from .env.<environment> and the process environment
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvResultSink  = "RESULT_SINK_URL"
	EnvContainer   = "MAINTENANCE_CONTAINER"
	EnvLibSQLURL   = "LIBSQL_URL"
	EnvLibSQLToken = "LIBSQL_AUTH_TOKEN"
)

var ErrNoDatabaseURL = errors.New("no database URL configured")

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name          string
	DatabaseURL   string
	Container     string
	ResultSinkURL string
	DotenvPath    string
	FromConfig    bool
	FromDotenv    bool
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ResolveEnvironment resolves a named environment, letting the process
// environment override idxmaint.toml and .env.<name>.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	return ResolveEnvironmentWith(config, name, os.LookupEnv)
}

// ResolveEnvironmentWith is ResolveEnvironment with an explicit environment lookup
func ResolveEnvironmentWith(config *Config, name string, lookup LookupFunc) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		envConfig, envExists = config.Environments[envName]
	}

	resolved := &ResolvedEnvironment{
		Name:          envName,
		DatabaseURL:   envConfig.DatabaseURL,
		Container:     envConfig.Container,
		ResultSinkURL: envConfig.ResultSinkURL,
		FromConfig:    envExists,
	}

	baseDir := config.ConfigDir()
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+envName)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		applyValues(resolved, func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		})
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
	}

	if lookup != nil {
		applyValues(resolved, lookup)
	}

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found", envName, FileName, resolved.DotenvPath)
	}

	if resolved.DatabaseURL == "" {
		return nil, fmt.Errorf("%w for environment %q: set database_url in %s or %s", ErrNoDatabaseURL, envName, FileName, EnvDatabaseURL)
	}

	if resolved.ResultSinkURL == "" {
		resolved.ResultSinkURL = DefaultResultSinkURL
	}
	resolved.ResultSinkURL = resolveFilePath(resolved.ResultSinkURL, baseDir)

	return resolved, nil
}

// applyValues overlays non-empty values onto an environment
func applyValues(resolved *ResolvedEnvironment, lookup LookupFunc) {
	if value, ok := lookup(EnvDatabaseURL); ok && value != "" {
		resolved.DatabaseURL = value
	} else if value, ok := lookup(EnvLibSQLURL); ok && value != "" {
		// Construct libSQL connection string with auth token if available
		if token, ok := lookup(EnvLibSQLToken); ok && token != "" {
			resolved.DatabaseURL = fmt.Sprintf("%s?authToken=%s", value, token)
		} else {
			resolved.DatabaseURL = value
		}
	}
	if value, ok := lookup(EnvResultSink); ok && value != "" {
		resolved.ResultSinkURL = value
	}
	if value, ok := lookup(EnvContainer); ok && value != "" {
		resolved.Container = value
	}
}

// resolveFilePath makes a relative SQLite file path relative to baseDir.
// URLs and :memory: are returned unchanged.
func resolveFilePath(target, baseDir string) string {
	if target == ":memory:" || strings.Contains(target, "://") || strings.HasPrefix(target, "file:") {
		return target
	}
	if filepath.IsAbs(target) || baseDir == "" {
		return target
	}
	return filepath.Join(baseDir, target)
}
