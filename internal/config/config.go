package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/lockplane/idxmaint/internal/planner"
	"github.com/lockplane/idxmaint/internal/window"
)

// FileName is the config file looked up from the working directory upward
const FileName = "idxmaint.toml"

// EnvironmentConfig describes a single named environment from idxmaint.toml.
type EnvironmentConfig struct {
	DatabaseURL   string `toml:"database_url,omitempty"`
	Container     string `toml:"container,omitempty"`
	ResultSinkURL string `toml:"result_sink_url,omitempty"`
}

type LoggingConfig struct {
	Level string `toml:"level,omitempty"`
	File  string `toml:"file,omitempty"`
}

type Config struct {
	DefaultEnvironment string                       `toml:"default_environment,omitempty"`
	Environments       map[string]EnvironmentConfig `toml:"environments,omitempty"`
	Budget             planner.RunBudget            `toml:"budget"`
	Window             window.Config                `toml:"window,omitempty"`
	Logging            LoggingConfig                `toml:"logging,omitempty"`

	ConfigFilePath string `toml:"-"`
	configDir      string
}

// Default returns the configuration used when no idxmaint.toml is found
func Default() *Config {
	return &Config{Budget: planner.DefaultBudget()}
}

// ConfigDir is the directory holding idxmaint.toml, or "" when none was found
func (c *Config) ConfigDir() string {
	if c == nil {
		return ""
	}
	if c.configDir != "" {
		return c.configDir
	}
	if c.ConfigFilePath != "" {
		return filepath.Dir(c.ConfigFilePath)
	}
	return ""
}

// LoadConfig finds idxmaint.toml in the working directory or its parents,
// stopping at the first project root.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return LoadFile(configPath)
		}

		// Check if we've reached a project boundary
		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return Default(), nil
}

// LoadFile reads, validates and decodes one config file. Budget fields absent
// from the file keep their defaults.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	if err := config.Budget.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}
	if _, err := window.Parse(config.Window); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	config.ConfigFilePath = configPath
	return config, nil
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod", "package.json"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}
