// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/kakite/internal/validate"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice   PracticeConfig   `toml:"practice"`
	Validation ValidationConfig `toml:"validation"`
	Strokes    StrokesConfig    `toml:"strokes"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Chars          *string  `toml:"chars"`
	WordsFile      *string  `toml:"words-file"`
	FocusWeak      *bool    `toml:"focus-weak"`
	WeakTop        *int     `toml:"weak-top"`
	WeakFactor     *float64 `toml:"weak-factor"`
	WeakWindow     *int     `toml:"weak-window"`
	CorrectDelay   *string  `toml:"correct-delay"`
	IncorrectDelay *string  `toml:"incorrect-delay"`
}

// ValidationConfig maps validator tolerances. Unset values keep defaults.
type ValidationConfig struct {
	StartTolerance     *float64       `toml:"start-tolerance"`
	EndTolerance       *float64       `toml:"end-tolerance"`
	DirectionTolerance *float64       `toml:"direction-tolerance"`
	ShapeTolerance     *float64       `toml:"shape-tolerance"`
	MinPointCount      *int           `toml:"min-points"`
	ValidThreshold     *float64       `toml:"valid-threshold"`
	LengthScale        *float64       `toml:"length-scale"`
	Weights            *WeightsConfig `toml:"weights"`
}

// WeightsConfig maps the composite score weights.
type WeightsConfig struct {
	Start     *float64 `toml:"start"`
	End       *float64 `toml:"end"`
	Direction *float64 `toml:"direction"`
	Length    *float64 `toml:"length"`
}

// StrokesConfig maps stroke data sources.
type StrokesConfig struct {
	Dir       *string `toml:"dir"`
	RemoteURL *string `toml:"remote-url"`
	Offline   *bool   `toml:"offline"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Apply overlays the set fields onto base.
func (v ValidationConfig) Apply(base validate.Config) validate.Config {
	if v.StartTolerance != nil {
		base.StartTolerance = *v.StartTolerance
	}
	if v.EndTolerance != nil {
		base.EndTolerance = *v.EndTolerance
	}
	if v.DirectionTolerance != nil {
		base.DirectionToleranceDegrees = *v.DirectionTolerance
	}
	if v.ShapeTolerance != nil {
		base.ShapeTolerance = *v.ShapeTolerance
	}
	if v.MinPointCount != nil {
		base.MinPointCount = *v.MinPointCount
	}
	if v.ValidThreshold != nil {
		base.ValidThreshold = *v.ValidThreshold
	}
	if v.LengthScale != nil {
		base.LengthScale = *v.LengthScale
	}
	if w := v.Weights; w != nil {
		if base.Weights == (validate.Weights{}) {
			base.Weights = validate.DefaultWeights()
		}
		if w.Start != nil {
			base.Weights.Start = *w.Start
		}
		if w.End != nil {
			base.Weights.End = *w.End
		}
		if w.Direction != nil {
			base.Weights.Direction = *w.Direction
		}
		if w.Length != nil {
			base.Weights.Length = *w.Length
		}
	}
	return base
}

// ParseDelay parses a feedback delay such as "200ms". Empty or nil keeps fallback.
func ParseDelay(value *string, fallback time.Duration) (time.Duration, error) {
	if value == nil || *value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", *value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("delay %q must be > 0", *value)
	}
	return d, nil
}
