package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sdpower/copilot-usage/internal/types"
	"gopkg.in/yaml.v3"
)

const DefaultQuota = 300

// Config holds the credential and the monthly premium request quota.
type Config struct {
	Path  string
	Token string
	Quota int
}

// fileConfig is the YAML form of the config file.
type fileConfig struct {
	GitHubToken  string `yaml:"github_token"`
	CopilotQuota *int   `yaml:"copilot_quota"`
}

// DefaultPath returns the config location under XDG_CONFIG_HOME, or
// ~/.config when that is unset.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "waybar-ai-usage", "copilot.conf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "waybar-ai-usage", "copilot.conf")
	}
	return filepath.Join(home, ".config", "waybar-ai-usage", "copilot.conf")
}

// Load reads path. A missing file yields the defaults and an empty
// token; callers decide whether a missing token is fatal.
func Load(path string) (Config, error) {
	cfg := Config{Path: path, Quota: DefaultQuota}

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w: %w", path, types.ErrInvalidConfig, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = cfg.parseYAML(data)
	default:
		cfg.parseKeyValue(data)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w: %w", path, types.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c *Config) parseYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	c.Token = strings.TrimSpace(fc.GitHubToken)
	if fc.CopilotQuota != nil && *fc.CopilotQuota > 0 {
		c.Quota = *fc.CopilotQuota
	}
	return nil
}

// parseKeyValue reads GITHUB_TOKEN=... / COPILOT_QUOTA=... lines.
// Unknown keys, comments and malformed lines are skipped, as is a quota
// that is not a positive integer.
func (c *Config) parseKeyValue(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "GITHUB_TOKEN":
			c.Token = value
		case "COPILOT_QUOTA":
			if q, err := strconv.Atoi(value); err == nil && q > 0 {
				c.Quota = q
			}
		}
	}
}
