package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	YouTube        YouTube        `yaml:"youtube"`
	Classification Classification `yaml:"classification"`
	Output         Output         `yaml:"output"`
	Server         Server         `yaml:"server"`
	Logging        Logging        `yaml:"logging"`
}

type YouTube struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	FeedURL        string `yaml:"feed_url"`
	PageSize       int    `yaml:"page_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Classification struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	GeminiURL         string `yaml:"gemini_url"`
	OllamaURL         string `yaml:"ollama_url"`
	OpenAIModel       string `yaml:"openai_model"`
	OpenAIKeyEnv      string `yaml:"openai_api_key_env"`
	AnthropicModel    string `yaml:"anthropic_model"`
	AnthropicKeyEnv   string `yaml:"anthropic_api_key_env"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	RoundBudget       int    `yaml:"round_budget"`
	ChunkSize         int    `yaml:"chunk_size"`
	MaxAuthors        int    `yaml:"max_authors"`
}

type Output struct {
	Dir string `yaml:"dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for commentgender.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "commentgender")
}

// LoadEnv loads API credentials from a .env file in the working directory, if any.
// Variables already set in the environment win.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/commentgender/config.yaml > ./config.yaml.
// An empty path with a nil error means no file exists and defaults apply.
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

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the embedded defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(DefaultConfigYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		YouTube: YouTube{
			APIKeyEnv:      "YOUTUBE_API_KEY",
			BaseURL:        "https://www.googleapis.com/youtube/v3",
			FeedURL:        "https://www.youtube.com/feeds/videos.xml",
			PageSize:       100,
			TimeoutSeconds: 30,
		},
		Classification: Classification{
			Provider:        "gemini",
			Model:           "gemini-2.0-pro-exp-02-05",
			APIKeyEnv:       "GEMINI_API_KEY",
			GeminiURL:       "https://generativelanguage.googleapis.com",
			OllamaURL:       "http://localhost:11434",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIKeyEnv:    "OPENAI_API_KEY",
			AnthropicModel:  "claude-3-5-haiku-latest",
			AnthropicKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens:       8192,
			RoundBudget:     5,
			ChunkSize:       500,
			MaxAuthors:      15000,
		},
		Output:  Output{Dir: "."},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
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
	cl := c.Classification
	if cl.RoundBudget < 1 {
		return fmt.Errorf("classification.round_budget must be at least 1, got %d", cl.RoundBudget)
	}
	if cl.ChunkSize < 1 {
		return fmt.Errorf("classification.chunk_size must be at least 1, got %d", cl.ChunkSize)
	}
	if cl.MaxAuthors < 1 {
		return fmt.Errorf("classification.max_authors must be at least 1, got %d", cl.MaxAuthors)
	}
	if c.YouTube.PageSize < 1 || c.YouTube.PageSize > 100 {
		return fmt.Errorf("youtube.page_size must be between 1 and 100, got %d", c.YouTube.PageSize)
	}
	return nil
}

// YouTubeAPIKey returns the YouTube Data API key from the configured environment variable.
func (c *Config) YouTubeAPIKey() string {
	return os.Getenv(c.YouTube.APIKeyEnv)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
