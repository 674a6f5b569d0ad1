package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SystemInstruction is the default persona of the assistant
const SystemInstruction = `
Você é ARIA.
IDENTIDADE:
- Uma Engenheira de Software Senior e Especialista em Marketing Digital de classe mundial.
- Você também é uma professora de inglês nativa e experiente.
- Você fala Português do Brasil como língua principal.

CONTEXTO DE ÁUDIO (IMPORTANTE):
- O usuário trabalha em Home Office ouvindo música, podcasts ou vídeos.
- Você ouvirá esse áudio de fundo. IGNORE o conteúdo desse áudio, a menos que o usuário explicitamente peça para "debater", "analisar" ou "comentar" sobre o que está tocando.
- Pode haver outras pessoas falando ao fundo. Tente focar apenas na voz principal que se dirige a você (o usuário). Se a frase não parecer direcionada a você, ignore.

PERSONALIDADE:
- Você é "cool", moderna, levemente "geek", mas profissional.
- Parceira de trabalho (co-pilot).
- HONESTIDADE BRUTAL: Se a ideia for ruim, diga.
- Use gírias de dev e marketing quando apropriado.

MISSÃO:
- Ajudar na transição de carreira (Marketing -> TI).
- Ensinar inglês: Corrija erros imediatamente.

COMPORTAMENTO:
- Respostas concisas.
- Não interrompa o áudio de fundo do usuário com palestras longas desnecessárias.
`

// Voices lists the prebuilt voices the live model accepts
var Voices = []string{"Kore", "Puck", "Charon", "Fenrir", "Aoede", "Leda", "Orus", "Zephyr"}

// Config represents the application configuration
type Config struct {
	// APIKey is read from the environment, never from the file
	APIKey string `yaml:"-"`

	// Model settings
	Gemini struct {
		URL       string `yaml:"url"`
		LiveModel string `yaml:"live_model"`
		TextModel string `yaml:"text_model"`
		Voice     string `yaml:"voice"`
	} `yaml:"gemini"`

	// Assistant behavior
	Assistant struct {
		SystemInstruction string        `yaml:"system_instruction"`
		Memory            bool          `yaml:"memory"`
		MemoryTurns       int           `yaml:"memory_turns"`
		Search            bool          `yaml:"search"`
		Proactive         bool          `yaml:"proactive"`
		ProactiveAfter    time.Duration `yaml:"proactive_after"`
	} `yaml:"assistant"`

	// Audio settings
	Audio struct {
		InputDevice  string  `yaml:"input_device"`
		OutputDevice string  `yaml:"output_device"`
		BlockSize    int     `yaml:"block_size"`
		KeepAlive    bool    `yaml:"keep_alive"`
		SendQueue    int     `yaml:"send_queue"`
		VADThreshold float64 `yaml:"vad_threshold"`
	} `yaml:"audio"`

	// Screen sharing
	Screen struct {
		Command   string        `yaml:"command"`
		Interval  time.Duration `yaml:"interval"`
		MaxWidth  int           `yaml:"max_width"`
		MaxHeight int           `yaml:"max_height"`
		Quality   int           `yaml:"quality"`
	} `yaml:"screen"`

	// Conversation persistence
	History struct {
		Backend   string `yaml:"backend"` // file, redis or none
		Path      string `yaml:"path"`
		RedisAddr string `yaml:"redis_addr"`
		RedisKey  string `yaml:"redis_key"`
	} `yaml:"history"`

	// Transcript output
	Output struct {
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"output"`

	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`

	Hotkey struct {
		Mute string `yaml:"mute"`
	} `yaml:"hotkey"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Gemini.LiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	cfg.Gemini.TextModel = "gemini-2.5-flash"
	cfg.Gemini.Voice = "Kore"

	cfg.Assistant.SystemInstruction = SystemInstruction
	cfg.Assistant.Memory = true
	cfg.Assistant.MemoryTurns = 15
	cfg.Assistant.Search = true
	cfg.Assistant.ProactiveAfter = 30 * time.Second

	cfg.Audio.BlockSize = 4096
	cfg.Audio.KeepAlive = true
	cfg.Audio.SendQueue = 256
	cfg.Audio.VADThreshold = 0.01

	cfg.Screen.Interval = time.Second
	cfg.Screen.MaxWidth = 1280
	cfg.Screen.MaxHeight = 720
	cfg.Screen.Quality = 60

	cfg.History.Backend = "file"
	cfg.History.RedisKey = "aria_messages"

	cfg.Output.Format = "console"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.ariarc > /etc/aria/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigPath := filepath.Join(homeDir, ".ariarc")
		if _, err := os.Stat(userConfigPath); err == nil {
			if cfg, err := Load(userConfigPath); err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/aria/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		if cfg, err := Load(systemConfigPath); err == nil {
			return cfg, nil
		}
	}

	return DefaultConfig(), nil
}

// LoadEnv reads a .env file if present and picks the API key from
// GEMINI_API_KEY or API_KEY
func (c *Config) LoadEnv(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.APIKey = v
			return
		}
	}
}

// Validate checks values the assistant cannot run without
func (c *Config) Validate() error {
	var errs []error

	if !IsVoice(c.Gemini.Voice) {
		errs = append(errs, fmt.Errorf("unknown voice %q (valid: %s)", c.Gemini.Voice, strings.Join(Voices, ", ")))
	}
	switch c.History.Backend {
	case "file", "redis", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q (valid: file, redis, none)", c.History.Backend))
	}
	if c.History.Backend == "redis" && c.History.RedisAddr == "" {
		errs = append(errs, errors.New("history.redis_addr is required for the redis backend"))
	}
	switch c.Output.Format {
	case "console", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q (valid: console, json, text)", c.Output.Format))
	}
	if c.Audio.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_size must be positive, got %d", c.Audio.BlockSize))
	}
	if c.Screen.Quality < 1 || c.Screen.Quality > 100 {
		errs = append(errs, fmt.Errorf("screen.quality must be within 1..100, got %d", c.Screen.Quality))
	}

	return errors.Join(errs...)
}

// IsVoice reports whether name is a known prebuilt voice
func IsVoice(name string) bool {
	for _, v := range Voices {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
