package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"wharton/internal/staking"
)

type Config struct {
	General    GeneralConfig    `toml:"general"`
	Staking    StakingConfig    `toml:"staking"`
	Allocation AllocationConfig `toml:"allocation"`
	Commission CommissionConfig `toml:"commission"`
	Batch      BatchConfig      `toml:"batch"`
	Server     ServerConfig     `toml:"server"`
}

type GeneralConfig struct {
	DBPath    string `toml:"db_path"`
	LogLevel  string `toml:"log_level"`
	OutputDir string `toml:"output_dir"`
}

type StakingConfig struct {
	EVFloorPercent   float64 `toml:"ev_floor_percent"`
	KellyMultiplier  float64 `toml:"kelly_multiplier"`
	MaxStakeFraction float64 `toml:"max_stake_fraction"`
}

// Params converts the section into engine parameters.
func (s StakingConfig) Params() staking.Params {
	return staking.Params{
		EVFloorPercent:   s.EVFloorPercent,
		KellyMultiplier:  s.KellyMultiplier,
		MaxStakeFraction: s.MaxStakeFraction,
	}
}

type AllocationConfig struct {
	PartialMinFraction float64 `toml:"partial_min_fraction"`
}

type CommissionConfig struct {
	DefaultPlatform string  `toml:"default_platform"`
	DefaultRate     float64 `toml:"default_rate"`
}

type BatchConfig struct {
	Workers   int    `toml:"workers"`
	SheetName string `toml:"sheet_name"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides (a .env file is honoured if present). A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	_ = godotenv.Load() // .env is optional

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("WHARTON_DB_PATH"); v != "" {
		cfg.General.DBPath = v
	}
	if v := os.Getenv("WHARTON_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v := os.Getenv("WHARTON_OUTPUT_DIR"); v != "" {
		cfg.General.OutputDir = v
	}
	if v := os.Getenv("WHARTON_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"WHARTON_EV_FLOOR", &cfg.Staking.EVFloorPercent},
		{"WHARTON_KELLY_MULTIPLIER", &cfg.Staking.KellyMultiplier},
		{"WHARTON_MAX_STAKE_FRACTION", &cfg.Staking.MaxStakeFraction},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f.key, err)
		}
		*f.dst = parsed
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:    "./data/wharton.db",
			LogLevel:  "info",
			OutputDir: "./data/output",
		},
		Staking: StakingConfig{
			EVFloorPercent:   staking.DefaultEVFloorPercent,
			KellyMultiplier:  staking.DefaultKellyMultiplier,
			MaxStakeFraction: staking.DefaultMaxStakeFraction,
		},
		Allocation: AllocationConfig{
			PartialMinFraction: 0.01,
		},
		Commission: CommissionConfig{
			DefaultPlatform: "Robinhood",
			DefaultRate:     staking.DefaultFeePerUnit,
		},
		Batch: BatchConfig{
			Workers:   runtime.NumCPU(),
			SheetName: "Games",
		},
		Server: ServerConfig{
			Addr:           ":8084",
			AllowedOrigins: []string{"http://localhost:3000"},
			RequestTimeout: Duration{30 * time.Second},
		},
	}
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg *Config) error {
	if cfg.Staking.EVFloorPercent < 0 {
		return fmt.Errorf("staking.ev_floor_percent must be non-negative, got %f", cfg.Staking.EVFloorPercent)
	}
	if cfg.Staking.KellyMultiplier <= 0 || cfg.Staking.KellyMultiplier > 1 {
		return fmt.Errorf("staking.kelly_multiplier must be between 0 and 1, got %f", cfg.Staking.KellyMultiplier)
	}
	if cfg.Staking.MaxStakeFraction <= 0 || cfg.Staking.MaxStakeFraction > 1 {
		return fmt.Errorf("staking.max_stake_fraction must be between 0 and 1, got %f", cfg.Staking.MaxStakeFraction)
	}
	if cfg.Allocation.PartialMinFraction < 0 || cfg.Allocation.PartialMinFraction > 1 {
		return fmt.Errorf("allocation.partial_min_fraction must be between 0 and 1, got %f", cfg.Allocation.PartialMinFraction)
	}
	if cfg.Commission.DefaultRate < 0 || cfg.Commission.DefaultRate > 1 {
		return fmt.Errorf("commission.default_rate must be between 0 and 1, got %f", cfg.Commission.DefaultRate)
	}
	if cfg.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", cfg.Batch.Workers)
	}
	if cfg.Server.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", cfg.Server.RequestTimeout.Duration)
	}
	if _, err := ParseLevel(cfg.General.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps general.log_level to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("general.log_level %q is not one of debug, info, warn, error", s)
	}
}
