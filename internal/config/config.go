// Package config loads Warden's connection descriptor: where the two
// backends live and how to authenticate against them. The core treats this as
// opaque input constructed once at startup.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields Warden needs to reach the manager API and the
// alert indexer.
type Config struct {
	ManagerURL      string
	Username        string
	Password        string
	IndexerURL      string
	IndexerUsername string
	IndexerPassword string
	InsecureTLS     bool
}

const defaultConfigPath = "~/.config/warden/config.toml"

// Load locates and parses the config file. Unlike preferences there is no
// useful default: without backend addresses and credentials there is nothing
// to display, so a missing or incomplete file is an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config not found at %s; create it with manager url and credentials", resolved)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ManagerURL      string `toml:"manager_url"`
		Username        string `toml:"username"`
		Password        string `toml:"password"`
		IndexerURL      string `toml:"indexer_url"`
		IndexerUsername string `toml:"indexer_username"`
		IndexerPassword string `toml:"indexer_password"`
		InsecureTLS     bool   `toml:"insecure_tls"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		ManagerURL:      strings.TrimSpace(raw.ManagerURL),
		Username:        strings.TrimSpace(raw.Username),
		Password:        raw.Password,
		IndexerURL:      strings.TrimSpace(raw.IndexerURL),
		IndexerUsername: strings.TrimSpace(raw.IndexerUsername),
		IndexerPassword: raw.IndexerPassword,
		InsecureTLS:     raw.InsecureTLS,
	}
	if cfg.ManagerURL == "" {
		return Config{}, fmt.Errorf("config %s: manager_url is required", resolved)
	}
	if cfg.Username == "" {
		return Config{}, fmt.Errorf("config %s: username is required", resolved)
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
