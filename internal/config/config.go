// Package config loads lockstep's runtime configuration.
//
// Configuration is layered:
//  1. defaults and constraints from the embedded CUE schema
//  2. an optional CUE file, unified with the schema
//  3. LOCKSTEP_* environment variables
//
// Command-line flags are applied on top by the CLI.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/lockstep/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Config is the runtime configuration.
type Config struct {
	TickRate         uint64 `json:"tick_rate"`
	FrameRate        uint64 `json:"frame_rate"`
	MaxTicksPerFrame int    `json:"max_ticks_per_frame"`
	Journal          string `json:"journal"`
	LogLevel         string `json:"log_level"`
	Audio            bool   `json:"audio"`
	Seed             uint64 `json:"seed"`
	Arena            Arena  `json:"arena"`
}

// Arena is the size of the demo play field in world units.
type Arena struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// envOverrides holds LOCKSTEP_* variables. Nil means unset.
type envOverrides struct {
	TickRate  *uint64 `env:"LOCKSTEP_TICK_RATE"`
	FrameRate *uint64 `env:"LOCKSTEP_FRAME_RATE"`
	MaxTicks  *int    `env:"LOCKSTEP_MAX_TICKS_PER_FRAME"`
	Journal   *string `env:"LOCKSTEP_JOURNAL"`
	LogLevel  *string `env:"LOCKSTEP_LOG_LEVEL"`
	Audio     *bool   `env:"LOCKSTEP_AUDIO"`
	Seed      *uint64 `env:"LOCKSTEP_SEED"`
}

// Default returns the schema defaults.
// Panics if the embedded schema is broken.
func Default() Config {
	cfg, err := decode(cuecontext.New(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads a CUE configuration file and applies environment overrides.
// An empty path loads only defaults and environment.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := LoadBytes(data, path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadBytes parses CUE configuration source without consulting the
// environment. filename is used in error positions.
func LoadBytes(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	var file *cue.Value
	if len(data) > 0 {
		v := ctx.CompileBytes(data, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return Config{}, formatCUEError(err)
		}
		file = &v
	}
	return decode(ctx, file)
}

// ApplyEnv overrides fields from LOCKSTEP_* variables and re-validates.
func (c *Config) ApplyEnv() error {
	var raw envOverrides
	if err := ParseEnv(&raw); err != nil {
		return err
	}

	if raw.TickRate != nil {
		c.TickRate = *raw.TickRate
	}
	if raw.FrameRate != nil {
		c.FrameRate = *raw.FrameRate
	}
	if raw.MaxTicks != nil {
		c.MaxTicksPerFrame = *raw.MaxTicks
	}
	if raw.Journal != nil {
		c.Journal = *raw.Journal
	}
	if raw.LogLevel != nil {
		c.LogLevel = *raw.LogLevel
	}
	if raw.Audio != nil {
		c.Audio = *raw.Audio
	}
	if raw.Seed != nil {
		c.Seed = *raw.Seed
	}

	return c.Validate()
}

// Validate checks c against the schema constraints.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if _, err := decode(ctx, &v); err != nil {
		return err
	}
	return nil
}

// Engine projects the scheduler configuration.
func (c Config) Engine() engine.Config {
	return engine.Config{TickRate: c.TickRate}
}

// EngineOptions returns scheduler options derived from c.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{engine.WithMaxTicksPerFrame(c.MaxTicksPerFrame)}
}

// FrameInterval is the wall-clock pacing between frames.
func (c Config) FrameInterval() time.Duration {
	if c.FrameRate == 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameRate)
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// decode unifies file (if any) with the schema, requires every field to
// be concrete and decodes the result.
func decode(ctx *cue.Context, file *cue.Value) (Config, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config"))
	if file != nil {
		v = v.Unify(*file)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// formatCUEError reports the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return fmt.Errorf("invalid config: %s:%d:%d: %w", pos.Filename(), pos.Line(), pos.Column(), first)
	}
	return fmt.Errorf("invalid config: %w", first)
}
