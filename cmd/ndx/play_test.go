package main

import (
	"testing"

	"naturedex/internal/config"
	"naturedex/internal/db"
)

func TestPlayFlagsApply(t *testing.T) {
	base := config.BotConfig{Store: db.KindPostgres, SQLitePath: "naturedex.db"}
	tests := []struct {
		name      string
		flags     playFlags
		envStore  string
		wantStore string
		wantPath  string
	}{
		{name: "no env defaults to sqlite", wantStore: db.KindSQLite, wantPath: "naturedex.db"},
		{name: "env store kept", envStore: "postgres", wantStore: db.KindPostgres, wantPath: "naturedex.db"},
		{name: "flag beats env", flags: playFlags{store: " Memory ", storeSet: true}, envStore: "postgres", wantStore: db.KindMemory, wantPath: "naturedex.db"},
		{name: "sqlite path flag", flags: playFlags{sqlitePath: "/tmp/me.db", pathSet: true}, wantStore: db.KindSQLite, wantPath: "/tmp/me.db"},
	}
	for _, tt := range tests {
		got := tt.flags.apply(base, tt.envStore)
		if got.Store != tt.wantStore || got.SQLitePath != tt.wantPath {
			t.Fatalf("%s: got store=%q path=%q want %q %q", tt.name, got.Store, got.SQLitePath, tt.wantStore, tt.wantPath)
		}
	}
	if base.Store != db.KindPostgres {
		t.Fatalf("apply mutated its input")
	}
}

func TestPlayFlagsValidateAfterOverride(t *testing.T) {
	t.Setenv("NATUREDEX_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.ParseBotEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg = playFlags{store: "memory", storeSet: true}.apply(cfg, "postgres")
	if err := cfg.Validate(false); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
