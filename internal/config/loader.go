package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/stackctl"
	projectConfigDir = ".stackctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the stackctl configuration by layering built-in defaults,
// user settings, and project settings. Later layers only override the fields
// they set.
func LoadConfig() (StackConfig, error) {
	wd, err := osGetwd()
	if err != nil {
		return StackConfig{}, fmt.Errorf("determining working directory: %w", err)
	}

	config := DefaultConfig(wd)

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional; the home directory may be unset in CI.
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if _, statErr := os.Stat(userConfigPath); statErr == nil {
		if err := applyConfigFile(userConfigPath, &config); err != nil {
			return StackConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	projectConfigPath := filepath.Join(wd, projectConfigDir, configFileName)
	if _, statErr := os.Stat(projectConfigPath); statErr == nil {
		if err := applyConfigFile(projectConfigPath, &config); err != nil {
			return StackConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
	}

	if err := config.Validate(); err != nil {
		return StackConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadConfigFromFile loads a single explicit config file over the defaults,
// used when --config is passed.
func LoadConfigFromFile(path string) (StackConfig, error) {
	wd, err := osGetwd()
	if err != nil {
		return StackConfig{}, fmt.Errorf("determining working directory: %w", err)
	}
	config := DefaultConfig(wd)
	if err := applyConfigFile(path, &config); err != nil {
		return StackConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return StackConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// applyConfigFile unmarshals a YAML file over an existing config, so only
// the fields present in the file are overridden.
func applyConfigFile(filePath string, config *StackConfig) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return nil
}
