package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName      = "calendart"
	configFileName     = "config.yaml"
	serviceAccountFile = "service-account.json"
	tokenFile          = "token.json"
)

// GetConfigDir returns the configuration directory path (~/.config/calendart)
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return configDir, nil
}

// GetConfigPath returns the path to the default configuration file
func GetConfigPath() (string, error) {
	return inConfigDir(configFileName)
}

// GetServiceAccountPath returns the path to the default service account key file
func GetServiceAccountPath() (string, error) {
	return inConfigDir(serviceAccountFile)
}

// GetTokenPath returns the path to the default OAuth token file
func GetTokenPath() (string, error) {
	return inConfigDir(tokenFile)
}

func inConfigDir(name string) (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, name), nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
