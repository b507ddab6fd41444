package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadBotFromEnvDefaults(t *testing.T) {
	t.Setenv("NATUREDEX_STORE", "memory")
	t.Setenv("PORT", "")

	cfg, err := LoadBotFromEnv(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Prefix != "!" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	g := cfg.Game()
	if g.MaxLevel != 15 || g.StartingHP != 25 || g.StartingEP != 15 {
		t.Fatalf("unexpected game config %+v", g)
	}
	if g.RegisterTimeout != time.Minute || g.DistributeTimeout != 2*time.Minute || g.BoostTimeout != time.Minute {
		t.Fatalf("unexpected timeouts %+v", g)
	}
	if cfg.LockTTL != 15*time.Minute {
		t.Fatalf("unexpected lock ttl %s", cfg.LockTTL)
	}
}

func TestLoadBotFromEnvPortOverridesAddr(t *testing.T) {
	t.Setenv("NATUREDEX_STORE", "memory")
	t.Setenv("NATUREDEX_API_ADDR", ":9000")
	t.Setenv("PORT", "7070")

	cfg, err := LoadBotFromEnv(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("got addr %q", cfg.Addr)
	}
}

func TestLoadBotFromEnvValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		discord bool
		wantErr string
	}{
		{name: "postgres needs url", env: map[string]string{"NATUREDEX_STORE": "postgres", "DATABASE_URL": ""}, wantErr: "DATABASE_URL"},
		{name: "unknown store", env: map[string]string{"NATUREDEX_STORE": "mongo"}, wantErr: "NATUREDEX_STORE"},
		{name: "discord token", env: map[string]string{"NATUREDEX_STORE": "memory", "DISCORD_TOKEN": ""}, discord: true, wantErr: "DISCORD_TOKEN"},
		{name: "max level below start", env: map[string]string{"NATUREDEX_STORE": "memory", "NATUREDEX_MAX_LEVEL": "3"}, wantErr: "NATUREDEX_MAX_LEVEL"},
		{name: "zero timeout", env: map[string]string{"NATUREDEX_STORE": "memory", "NATUREDEX_BOOST_TIMEOUT": "0s"}, wantErr: "NATUREDEX_BOOST_TIMEOUT"},
		{name: "bad duration", env: map[string]string{"NATUREDEX_STORE": "memory", "NATUREDEX_LOCK_TTL": "soon"}, wantErr: "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadBotFromEnv(tt.discord)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("NDX_API_BASE_URL", "https://dex.example.com/")
	t.Setenv("NDX_OWNER", " 1234 ")

	cfg, err := LoadCLIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://dex.example.com" || cfg.Owner != "1234" || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected cli config %+v", cfg)
	}
}

func TestLoadCLIFromEnvErrors(t *testing.T) {
	tests := []struct {
		timeout string
		wantErr string
	}{
		{timeout: "soon", wantErr: "parse env"},
		{timeout: "0s", wantErr: "NDX_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Setenv("NDX_TIMEOUT", tt.timeout)
		if _, err := LoadCLIFromEnv(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Fatalf("timeout=%q: expected error mentioning %s, got %v", tt.timeout, tt.wantErr, err)
		}
	}
}

func TestParseBotEnvAllowsOverridesBeforeValidate(t *testing.T) {
	t.Setenv("NATUREDEX_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := ParseBotEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(false); err == nil {
		t.Fatalf("expected postgres without url to fail")
	}
	cfg.Store = "sqlite"
	cfg.SQLitePath = "local.db"
	if err := cfg.Validate(false); err != nil {
		t.Fatalf("validate after override: %v", err)
	}
}
