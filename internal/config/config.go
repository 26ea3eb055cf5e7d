package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Countries map[string]string `yaml:"countries"`
	Sources   Sources           `yaml:"sources"`
	Scoring   Scoring           `yaml:"scoring"`
	Output    Output            `yaml:"output"`
	Server    Server            `yaml:"server"`
	History   History           `yaml:"history"`
}

type Sources struct {
	Proxy ProxyConfig `yaml:"proxy"`
	News  NewsConfig  `yaml:"news"`
}

// ProxyConfig points at the backend search proxy. The proxy holds the
// bearer token; this layer never sees it.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

type NewsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Query   string `yaml:"query"`
}

type Scoring struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type History struct {
	Max int `yaml:"max"`
}

// ConfigDir returns the XDG config directory for opennarrative.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "opennarrative")
}

// DataDir returns the XDG data directory for opennarrative.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "opennarrative")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/opennarrative/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'opennarrative init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Countries: map[string]string{
			"United States":  "US",
			"United Kingdom": "GB",
			"Canada":         "CA",
			"Moldova":        "MD",
			"Ukraine":        "UA",
			"Russia":         "RU",
		},
		Sources: Sources{
			Proxy: ProxyConfig{
				Enabled: true,
				BaseURL: "http://localhost:8000",
			},
			News: NewsConfig{
				Enabled: true,
				Query:   "top stories",
			},
		},
		Scoring: Scoring{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Server:  Server{Port: 8000},
		History: History{Max: 20},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// CountryCode resolves a country display name to its two-letter code.
// Unknown countries fall back to "US".
func (c *Config) CountryCode(country string) string {
	if code, ok := c.Countries[country]; ok && code != "" {
		return code
	}
	return "US"
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
