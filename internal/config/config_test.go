package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"WHARTON_DB_PATH", "WHARTON_LOG_LEVEL", "WHARTON_OUTPUT_DIR", "WHARTON_ADDR",
	"WHARTON_EV_FLOOR", "WHARTON_KELLY_MULTIPLIER", "WHARTON_MAX_STAKE_FRACTION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Staking != def.Staking {
		t.Errorf("Staking = %+v, want %+v", cfg.Staking, def.Staking)
	}
	if cfg.Allocation.PartialMinFraction != 0.01 {
		t.Errorf("PartialMinFraction = %f, want 0.01", cfg.Allocation.PartialMinFraction)
	}
	if cfg.Commission.DefaultPlatform != "Robinhood" || cfg.Commission.DefaultRate != 0.02 {
		t.Errorf("Commission = %+v, want Robinhood 0.02", cfg.Commission)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "wharton.toml")
	data := `
[general]
db_path = "/tmp/w.db"
log_level = "debug"

[staking]
ev_floor_percent = 5.0
max_stake_fraction = 0.25

[server]
addr = ":9000"
request_timeout = "5s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.DBPath != "/tmp/w.db" {
		t.Errorf("DBPath = %q, want /tmp/w.db", cfg.General.DBPath)
	}
	if cfg.Staking.EVFloorPercent != 5.0 {
		t.Errorf("EVFloorPercent = %f, want 5", cfg.Staking.EVFloorPercent)
	}
	if cfg.Staking.MaxStakeFraction != 0.25 {
		t.Errorf("MaxStakeFraction = %f, want 0.25", cfg.Staking.MaxStakeFraction)
	}
	// Untouched keys keep their defaults.
	if cfg.Staking.KellyMultiplier != 0.5 {
		t.Errorf("KellyMultiplier = %f, want 0.5", cfg.Staking.KellyMultiplier)
	}
	if cfg.Server.RequestTimeout.Duration != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout.Duration)
	}
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[staking\nev_floor_percent = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WHARTON_EV_FLOOR", "12.5")
	t.Setenv("WHARTON_KELLY_MULTIPLIER", "0.25")
	t.Setenv("WHARTON_ADDR", ":7000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Staking.EVFloorPercent != 12.5 {
		t.Errorf("EVFloorPercent = %f, want 12.5", cfg.Staking.EVFloorPercent)
	}
	if cfg.Staking.KellyMultiplier != 0.25 {
		t.Errorf("KellyMultiplier = %f, want 0.25", cfg.Staking.KellyMultiplier)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}
}

func TestLoad_BadEnvFloat(t *testing.T) {
	clearEnv(t)
	t.Setenv("WHARTON_MAX_STAKE_FRACTION", "lots")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for unparsable env override")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative EV floor", func(c *Config) { c.Staking.EVFloorPercent = -1 }},
		{"zero Kelly", func(c *Config) { c.Staking.KellyMultiplier = 0 }},
		{"Kelly > 1", func(c *Config) { c.Staking.KellyMultiplier = 1.5 }},
		{"zero max stake", func(c *Config) { c.Staking.MaxStakeFraction = 0 }},
		{"partial > 1", func(c *Config) { c.Allocation.PartialMinFraction = 2 }},
		{"negative rate", func(c *Config) { c.Commission.DefaultRate = -0.01 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = Duration{} }},
		{"bad log level", func(c *Config) { c.General.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			if err := Validate(c); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStakingConfig_Params(t *testing.T) {
	p := DefaultConfig().Staking.Params()
	if p.EVFloorPercent != 10 || p.KellyMultiplier != 0.5 || p.MaxStakeFraction != 0.15 {
		t.Errorf("Params = %+v, want 10 / 0.5 / 0.15", p)
	}
}
