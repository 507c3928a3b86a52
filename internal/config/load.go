package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvAPIURL = "MEDIVOICE_API_URL"
	EnvToken  = "MEDIVOICE_TOKEN"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "medivoice"), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadEnv reads .env from the working directory and the config directory.
// Variables already set in the environment win. Missing files are ignored.
func LoadEnv() {
	candidates := []string{".env"}
	if dir, err := GetConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("Config: failed to load %s: %v", path, err)
			continue
		}
		log.Printf("Config: loaded environment from %s", path)
	}
}

// Load reads the config file, or the defaults when there is none, and
// applies environment overrides.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("Config: no config file at %s, using defaults", configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	} else {
		log.Printf("Config: loading configuration from %s", configPath)
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	config.applyEnv()
	config.applyFinalizeDefaults()
	if config.Results.Paste == "" {
		config.Results.Paste = "off"
	}

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.Backend.BaseURL = v
	}
}

// applyFinalizeDefaults keeps a file that only sets interval consistent.
func (c *Config) applyFinalizeDefaults() {
	if c.Finalize.Multiplier == 0 {
		c.Finalize.Multiplier = 1
	}
	if c.Finalize.MaxInterval == 0 || c.Finalize.MaxInterval < c.Finalize.Interval {
		c.Finalize.MaxInterval = c.Finalize.Interval
	}
}
