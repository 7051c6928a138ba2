package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/proactive"
	"github.com/moorebrett0/hatchling/internal/sink"
	"github.com/moorebrett0/hatchling/internal/species"
	"github.com/moorebrett0/hatchling/internal/telemetry"
)

type Config struct {
	Device    DeviceConfig     `yaml:"device"`
	Game      GameConfig       `yaml:"game"`
	Pet       PetConfig        `yaml:"pet"`
	Animation sink.Durations   `yaml:"animation"`
	Scene     SceneConfig      `yaml:"scene"`
	Keyboard  KeyboardConfig   `yaml:"keyboard"`
	Discord   DiscordConfig    `yaml:"discord"`
	AI        AIConfig         `yaml:"ai"`
	Claude    ClaudeConfig     `yaml:"claude"`
	Gemini    GeminiConfig     `yaml:"gemini"`
	Monitor   MonitorConfig    `yaml:"monitor"`
	Nudge     NudgeConfig      `yaml:"nudge"`
	Startup   StartupConfig    `yaml:"startup"`
	Journal   JournalConfig    `yaml:"journal"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Log       LogConfig        `yaml:"log"`
}

type DeviceConfig struct {
	Address     string        `yaml:"address" env:"HATCHLING_DEVICE"`
	Baud        int           `yaml:"baud" env:"HATCHLING_BAUD"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	ReopenAfter int           `yaml:"reopen_after"`
}

type GameConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxPending   int           `yaml:"max_pending"` // 0 = unbounded
}

type PetConfig struct {
	Species string `yaml:"species" env:"HATCHLING_SPECIES"`

	pet.Tuning `yaml:",inline"`
}

type SceneConfig struct {
	Transition time.Duration `yaml:"transition"`
}

type KeyboardConfig struct {
	// Fallback starts keyboard input when the device is missing or lost.
	Fallback bool `yaml:"fallback"`
}

type DiscordConfig struct {
	BotToken        string   `yaml:"bot_token" env:"DISCORD_BOT_TOKEN"`
	ChannelID       string   `yaml:"channel_id" env:"DISCORD_CHANNEL_ID"`
	OwnerIDs        []string `yaml:"owner_ids" env:"DISCORD_OWNER_IDS" envSeparator:","`
	AllowSpectators bool     `yaml:"allow_spectators"`
}

type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER"` // "claude", "gemini", or "" (auto-detect)
}

type ClaudeConfig struct {
	APIKey    string `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	// Sliding window rate limiter
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_API_KEY"`
	Model  string `yaml:"model"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type NudgeConfig struct {
	Enabled bool `yaml:"enabled"`

	proactive.Config `yaml:",inline"`
}

type StartupConfig struct {
	Checklist bool          `yaml:"checklist"`
	Delay     time.Duration `yaml:"delay"` // per-character pacing of the intro text
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" env:"HATCHLING_JOURNAL"`
	Buffer  int    `yaml:"buffer"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"HATCHLING_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"HATCHLING_LOG_FORMAT"` // text or json
}

// Load builds the config from defaults, then the YAML file at path (if it
// exists), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load .env file first (working dir); real env vars win over it
	loadDotEnv(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No file: defaults + env vars
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	// Env vars override config file (secrets live in .env or environment)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Discord.OwnerIDs = cleanIDs(cfg.Discord.OwnerIDs)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DiscordEnabled reports whether a bot token is configured.
func (c *Config) DiscordEnabled() bool {
	return c.Discord.BotToken != ""
}

// NarratorEnabled reports whether any AI provider key is configured.
func (c *Config) NarratorEnabled() bool {
	return c.Claude.APIKey != "" || c.Gemini.APIKey != ""
}

// Species returns the configured species.
func (c *Config) Species() *species.Species {
	if sp, ok := species.Lookup(c.Pet.Species); ok {
		return sp
	}
	return species.Default()
}

func cleanIDs(ids []string) []string {
	var cleaned []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return cleaned
}

// loadDotEnv reads a .env file and sets env vars that aren't already set.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // no .env, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		// Strip surrounding quotes
		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') ||
				(val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" && val != "" {
			os.Setenv(key, val)
		}
	}
}

func defaults() *Config {
	return &Config{
		Device: DeviceConfig{
			Address:     "COM3",
			Baud:        9600,
			ReadTimeout: 100 * time.Millisecond,
			RetryDelay:  500 * time.Millisecond,
			ReopenAfter: 5,
		},
		Game: GameConfig{
			TickInterval: 33 * time.Millisecond,
		},
		Pet: PetConfig{
			Species: species.DefaultID,
			Tuning:  pet.DefaultTuning(),
		},
		Animation: sink.DefaultDurations(),
		Scene: SceneConfig{
			Transition: time.Second,
		},
		Keyboard: KeyboardConfig{
			Fallback: true,
		},
		Discord: DiscordConfig{
			AllowSpectators: true,
		},
		Claude: ClaudeConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  256,
			RateLimit:  10,
			RateWindow: time.Minute,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Monitor: MonitorConfig{
			Interval: 2 * time.Second,
		},
		Nudge: NudgeConfig{
			Enabled: true,
			Config:  proactive.DefaultConfig(),
		},
		Startup: StartupConfig{
			Checklist: true,
			Delay:     30 * time.Millisecond,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "hatchling.db",
			Buffer:  1024,
		},
		Telemetry: telemetry.Config{
			ServiceName: "hatchling",
			SampleRatio: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Device.Baud <= 0 {
		errs = append(errs, fmt.Errorf("device baud must be positive (got %d)", cfg.Device.Baud))
	}
	if cfg.Device.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("device read_timeout must be positive"))
	}
	if cfg.Game.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("game tick_interval must be positive"))
	}
	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, fmt.Errorf("monitor interval must be positive"))
	}
	if cfg.Game.MaxPending < 0 {
		errs = append(errs, fmt.Errorf("game max_pending must not be negative"))
	}
	if _, ok := species.Lookup(cfg.Pet.Species); !ok {
		errs = append(errs, fmt.Errorf("unknown species %q (have %s)", cfg.Pet.Species, strings.Join(species.OrderedIDs, ", ")))
	}
	if err := cfg.Pet.Tuning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pet tuning: %w", err))
	}
	if cfg.DiscordEnabled() {
		if cfg.Discord.ChannelID == "" {
			errs = append(errs, fmt.Errorf("missing DISCORD_CHANNEL_ID (required when DISCORD_BOT_TOKEN is set)"))
		}
		if len(cfg.Discord.OwnerIDs) == 0 {
			errs = append(errs, fmt.Errorf("missing DISCORD_OWNER_IDS (required when DISCORD_BOT_TOKEN is set)"))
		}
	}
	switch cfg.AI.Provider {
	case "", "claude", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider))
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", cfg.Log.Format))
	}
	if cfg.Nudge.Enabled {
		n := cfg.Nudge.Config
		if n.CheckInterval <= 0 || n.BoredAfter <= 0 || n.ChokeReminder <= 0 {
			errs = append(errs, fmt.Errorf("nudge check_interval, bored_after and choke_reminder must be positive"))
		}
	}
	if cfg.Startup.Delay < 0 {
		errs = append(errs, fmt.Errorf("startup delay must not be negative"))
	}
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.Path) == "" {
		errs = append(errs, fmt.Errorf("journal path is required when the journal is enabled"))
	}

	return errors.Join(errs...)
}
