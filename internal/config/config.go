package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Memo-Gateway
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Bot      BotConfig      `yaml:"bot"`
	Voice    VoiceConfig    `yaml:"voice"`
}

// ServerConfig defines the liveness HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// TelegramConfig defines Telegram transport settings
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// GeminiConfig defines generative backend settings
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the backend timeout as a time.Duration
func (g *GeminiConfig) GetTimeout() time.Duration {
	if g.Timeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// BotConfig defines conversation behavior settings
type BotConfig struct {
	Persona string `yaml:"persona"`
	// MaxTurns caps turns kept per scope key; 0 keeps histories unbounded.
	MaxTurns int `yaml:"max_turns"`
}

// VoiceConfig defines text-to-speech settings
type VoiceConfig struct {
	Workers      int    `yaml:"workers"`
	DefaultLang  string `yaml:"default_lang"`
	MaxTextChars int    `yaml:"max_text_chars"`
}

const defaultPersona = "Твоя личность — **Помощник Мемо**. Ты — друг и второй мозг.\n" +
	"**КОНТЕКСТ:** Учитывай украинские реалии.\n" +
	"**НАВЫКИ:** Текст, Фото (вижу детали), Аудио.\n" +
	"**СТИЛЬ:** Отвечай живо, но лаконично."

// Default returns a config with all optional fields at their defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Gemini: GeminiConfig{
			Model:   "gemini-1.5-flash-latest",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		Bot: BotConfig{
			Persona: defaultPersona,
		},
		Voice: VoiceConfig{
			Workers:      2,
			DefaultLang:  "ru",
			MaxTextChars: 800,
		},
	}
}

// Load loads configuration from a YAML file with environment variable
// overrides. A missing file is not an error: the bot can run from
// environment variables alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Gemini.Model = model
	}
}

// applyDefaults restores defaults dropped by partial yaml files
func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = d.Gemini.Model
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = d.Gemini.BaseURL
	}
	if c.Bot.Persona == "" {
		c.Bot.Persona = d.Bot.Persona
	}
	if c.Voice.Workers <= 0 {
		c.Voice.Workers = d.Voice.Workers
	}
	if c.Voice.DefaultLang == "" {
		c.Voice.DefaultLang = d.Voice.DefaultLang
	}
	if c.Voice.MaxTextChars <= 0 {
		c.Voice.MaxTextChars = d.Voice.MaxTextChars
	}
}

// Validate validates the configuration. The two secrets are required
// before any handler is registered.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram bot token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is required (GEMINI_API_KEY)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}
