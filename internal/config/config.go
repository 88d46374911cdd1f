package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// ErrNoConfig is returned by ResolveConfigPath when no config file exists in
// any of the searched locations.
var ErrNoConfig = errors.New("no config file found")

type Config struct {
	Database Database `yaml:"database"`
	Server   Server   `yaml:"server"`
	Search   Search   `yaml:"search"`
	LLM      LLM      `yaml:"llm"`
	Jordi    Jordi    `yaml:"jordi"`
	Logging  Logging  `yaml:"logging"`
}

type Database struct {
	DataDir  string `yaml:"data_dir"`
	Filename string `yaml:"filename"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CacheTTLSeconds bounds how long read-only endpoint responses are reused.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	// GenerationRate is the sustained number of /jordi generations per second.
	GenerationRate  float64 `yaml:"generation_rate"`
	GenerationBurst int     `yaml:"generation_burst"`
}

type Search struct {
	DefaultLimit  int `yaml:"default_limit"`
	MaxLimit      int `yaml:"max_limit"`
	SnippetLength int `yaml:"snippet_length"`
}

type LLM struct {
	Provider       string  `yaml:"provider"`
	OpenAIModel    string  `yaml:"openai_model"`
	OllamaModel    string  `yaml:"ollama_model"`
	OllamaURL      string  `yaml:"ollama_url"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
}

type Jordi struct {
	MaxStories int `yaml:"max_stories"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storyatlas.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storyatlas")
}

// DataDir returns the XDG data directory for storyatlas.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storyatlas")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storyatlas/config.yaml > ./config.yaml
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

	return "", fmt.Errorf("%w; searched:\n  %s\n  ./config.yaml", ErrNoConfig, xdgConfig)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Database: Database{Filename: "storyatlas.db"},
		Server: Server{
			Host:            "127.0.0.1",
			Port:            8000,
			CacheTTLSeconds: 300,
			GenerationRate:  0.5,
			GenerationBurst: 3,
		},
		Search: Search{
			DefaultLimit:  10,
			MaxLimit:      100,
			SnippetLength: 200,
		},
		LLM: LLM{
			Provider:       "openai",
			OpenAIModel:    "gpt-4o",
			OllamaModel:    "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 60,
			MaxTokens:      1500,
			Temperature:    0.7,
		},
		Jordi:   Jordi{MaxStories: 100},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyOverrides copies values set through viper (STORYATLAS_* environment
// variables or bound command-line flags) over the file configuration.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v.IsSet("database.data_dir") {
		c.Database.DataDir = v.GetString("database.data_dir")
	}
	if v.IsSet("database.filename") {
		c.Database.Filename = v.GetString("database.filename")
	}
	if v.IsSet("server.host") {
		c.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		c.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("llm.provider") {
		c.LLM.Provider = v.GetString("llm.provider")
	}
	if v.IsSet("llm.openai_model") {
		c.LLM.OpenAIModel = v.GetString("llm.openai_model")
	}
	if v.IsSet("llm.base_url") {
		c.LLM.BaseURL = v.GetString("llm.base_url")
	}
	if v.IsSet("logging.level") {
		c.Logging.Level = v.GetString("logging.level")
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Database.DataDir != "" {
		return c.Database.DataDir
	}
	return DataDir()
}

// DatabasePath returns the path of the story archive database.
func (c *Config) DatabasePath() string {
	name := c.Database.Filename
	if name == "" {
		name = "storyatlas.db"
	}
	return filepath.Join(c.GetDataDir(), name)
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CacheTTL returns the read-endpoint cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSeconds) * time.Second
}

// GenerationTimeout returns the bound on a single text-generation call.
func (c *Config) GenerationTimeout() time.Duration {
	if c.LLM.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
