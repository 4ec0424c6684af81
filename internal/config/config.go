package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Advisor Advisor `yaml:"advisor"`
	Cache   Cache   `yaml:"cache"`
	Server  Server  `yaml:"server"`
	Output  Output  `yaml:"output"`
	Logging Logging `yaml:"logging"`
}

// Advisor configures the text-generation provider behind the benchmark and
// suggestion features. API keys are read from the named environment
// variables and never leave the server.
type Advisor struct {
	Provider        string        `yaml:"provider"`
	GeminiModel     string        `yaml:"gemini_model"`
	GeminiAPIKeyEnv string        `yaml:"gemini_api_key_env"`
	OpenAIModel     string        `yaml:"openai_model"`
	OpenAIAPIKeyEnv string        `yaml:"openai_api_key_env"`
	OllamaModel     string        `yaml:"ollama_model"`
	OllamaURL       string        `yaml:"ollama_url"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

type Cache struct {
	BenchmarkTTL time.Duration `yaml:"benchmark_ttl"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// ConfigDir returns the XDG config directory for cubo.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "cubo")
}

// DataDir returns the XDG data directory for cubo.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "cubo")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/cubo/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'cubo init' to create a default config",
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

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Advisor: Advisor{
			Provider:        "gemini",
			GeminiModel:     "gemini-1.5-flash",
			GeminiAPIKeyEnv: "GEMINI_API_KEY",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIAPIKeyEnv: "OPENAI_API_KEY",
			OllamaModel:     "qwen2.5:7b",
			OllamaURL:       "http://localhost:11434",
			MaxTokens:       1024,
			Timeout:         45 * time.Second,
		},
		Cache:   Cache{BenchmarkTTL: 30 * time.Minute},
		Server:  Server{Host: "127.0.0.1", Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Advisor.Provider {
	case "gemini", "openai", "ollama", "none":
	default:
		return fmt.Errorf("invalid advisor provider %q (want gemini, openai, ollama or none)", c.Advisor.Provider)
	}
	if c.Advisor.Timeout <= 0 {
		return fmt.Errorf("advisor timeout must be positive")
	}
	if c.Cache.BenchmarkTTL <= 0 {
		return fmt.Errorf("cache benchmark_ttl must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "cubo.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
