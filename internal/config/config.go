package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"naturedex/internal/game"
)

type BotConfig struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	Prefix       string `env:"NATUREDEX_PREFIX" envDefault:"!"`

	Store       string `env:"NATUREDEX_STORE"       envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"NATUREDEX_SQLITE_PATH" envDefault:"naturedex.db"`

	RedisAddr string        `env:"REDIS_ADDR"`
	LockTTL   time.Duration `env:"NATUREDEX_LOCK_TTL" envDefault:"15m"`

	Port     string `env:"PORT"`
	Addr     string `env:"NATUREDEX_API_ADDR"  envDefault:":8080"`
	APIToken string `env:"NATUREDEX_API_TOKEN"`

	MaxLevel          int           `env:"NATUREDEX_MAX_LEVEL"          envDefault:"15"`
	StartingHP        int           `env:"NATUREDEX_STARTING_HP"        envDefault:"25"`
	StartingEP        int           `env:"NATUREDEX_STARTING_EP"        envDefault:"15"`
	RegisterTimeout   time.Duration `env:"NATUREDEX_REGISTER_TIMEOUT"   envDefault:"60s"`
	DistributeTimeout time.Duration `env:"NATUREDEX_DISTRIBUTE_TIMEOUT" envDefault:"120s"`
	BoostTimeout      time.Duration `env:"NATUREDEX_BOOST_TIMEOUT"      envDefault:"60s"`
}

type CLIConfig struct {
	APIBaseURL string        `env:"NDX_API_BASE_URL" envDefault:"http://localhost:8080"`
	Owner      string        `env:"NDX_OWNER"`
	Timeout    time.Duration `env:"NDX_TIMEOUT"      envDefault:"30s"`
}

// LoadBotFromEnv reads the bot and admin API settings. A Discord token is
// only required when requireDiscord is set, so migrations and local console
// play can run without one.
func LoadBotFromEnv(requireDiscord bool) (BotConfig, error) {
	cfg, err := ParseBotEnv()
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate(requireDiscord)
}

// ParseBotEnv reads the environment without validating it, so callers can
// apply flag overrides first.
func ParseBotEnv() (BotConfig, error) {
	var cfg BotConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.DiscordToken = strings.TrimSpace(cfg.DiscordToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)

	if port := strings.TrimSpace(cfg.Port); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	return cfg, nil
}

func (c BotConfig) Validate(requireDiscord bool) error {
	if requireDiscord && c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Store)) {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when NATUREDEX_STORE=postgres")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("NATUREDEX_SQLITE_PATH is required when NATUREDEX_STORE=sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("NATUREDEX_STORE must be postgres, sqlite or memory, got %q", c.Store)
	}
	if c.MaxLevel < game.StartingLevel {
		return fmt.Errorf("NATUREDEX_MAX_LEVEL must be at least %d", game.StartingLevel)
	}
	if c.StartingHP < 0 || c.StartingEP < 0 {
		return fmt.Errorf("starting HP and EP must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"NATUREDEX_REGISTER_TIMEOUT":   c.RegisterTimeout,
		"NATUREDEX_DISTRIBUTE_TIMEOUT": c.DistributeTimeout,
		"NATUREDEX_BOOST_TIMEOUT":      c.BoostTimeout,
		"NATUREDEX_LOCK_TTL":           c.LockTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c BotConfig) Game() game.Config {
	return game.Config{
		MaxLevel:          c.MaxLevel,
		StartingHP:        c.StartingHP,
		StartingEP:        c.StartingEP,
		RegisterTimeout:   c.RegisterTimeout,
		DistributeTimeout: c.DistributeTimeout,
		BoostTimeout:      c.BoostTimeout,
	}
}

func LoadCLIFromEnv() (CLIConfig, error) {
	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080"
	}
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("NDX_TIMEOUT must be positive")
	}
	return cfg, nil
}
