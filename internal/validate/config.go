// Package validate scores freehand strokes against reference strokes.
package validate

import "fmt"

// Weights are the composite-score contributions of each sub-score.
type Weights struct {
	Start     float64
	End       float64
	Direction float64
	Length    float64
}

// Config holds the tolerances of the validator. Zero fields take the
// touch-tuned defaults, so callers only set what they override.
type Config struct {
	StartTolerance            float64
	EndTolerance              float64
	DirectionToleranceDegrees float64
	ShapeTolerance            float64
	MinPointCount             int
	ValidThreshold            float64
	LengthScale               float64
	Weights                   Weights
}

const (
	defaultStartTolerance     = 0.25
	defaultEndTolerance       = 0.35
	defaultDirectionTolerance = 45
	defaultShapeTolerance     = 0.35
	defaultMinPointCount      = 3
	defaultValidThreshold     = 0.4
	defaultLengthScale        = 5

	weightSlack = 1e-9
)

// DefaultWeights returns the composite weights 0.30/0.25/0.30/0.15.
func DefaultWeights() Weights {
	return Weights{Start: 0.30, End: 0.25, Direction: 0.30, Length: 0.15}
}

// DefaultConfig returns the finger-touch defaults.
func DefaultConfig() Config {
	return Config{
		StartTolerance:            defaultStartTolerance,
		EndTolerance:              defaultEndTolerance,
		DirectionToleranceDegrees: defaultDirectionTolerance,
		ShapeTolerance:            defaultShapeTolerance,
		MinPointCount:             defaultMinPointCount,
		ValidThreshold:            defaultValidThreshold,
		LengthScale:               defaultLengthScale,
		Weights:                   DefaultWeights(),
	}
}

// WithDefaults fills every zero field from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.StartTolerance == 0 {
		c.StartTolerance = d.StartTolerance
	}
	if c.EndTolerance == 0 {
		c.EndTolerance = d.EndTolerance
	}
	if c.DirectionToleranceDegrees == 0 {
		c.DirectionToleranceDegrees = d.DirectionToleranceDegrees
	}
	if c.ShapeTolerance == 0 {
		c.ShapeTolerance = d.ShapeTolerance
	}
	if c.MinPointCount == 0 {
		c.MinPointCount = d.MinPointCount
	}
	if c.ValidThreshold == 0 {
		c.ValidThreshold = d.ValidThreshold
	}
	if c.LengthScale == 0 {
		c.LengthScale = d.LengthScale
	}
	if c.Weights == (Weights{}) {
		c.Weights = d.Weights
	}
	return c
}

// Check reports the first out-of-range field after defaults are applied.
// Zero fields take defaults, so a zero tolerance is accepted.
func (c Config) Check() error {
	c = c.WithDefaults()
	if c.StartTolerance < 0 {
		return fmt.Errorf("start tolerance must be >= 0")
	}
	if c.EndTolerance < 0 {
		return fmt.Errorf("end tolerance must be >= 0")
	}
	if c.DirectionToleranceDegrees < 0 || c.DirectionToleranceDegrees > 180 {
		return fmt.Errorf("direction tolerance must be between 0 and 180 degrees")
	}
	if c.ShapeTolerance < 0 {
		return fmt.Errorf("shape tolerance must be >= 0")
	}
	if c.MinPointCount < 1 {
		return fmt.Errorf("min point count must be >= 1")
	}
	if c.ValidThreshold < 0 || c.ValidThreshold > 1 {
		return fmt.Errorf("valid threshold must be between 0 and 1")
	}
	if c.LengthScale < 0 {
		return fmt.Errorf("length scale must be >= 0")
	}
	w := c.Weights
	if w.Start < 0 || w.End < 0 || w.Direction < 0 || w.Length < 0 {
		return fmt.Errorf("weights must be >= 0")
	}
	if sum := w.Start + w.End + w.Direction + w.Length; sum > 1+weightSlack {
		return fmt.Errorf("weights must sum to at most 1, got %.2f", sum)
	}
	return nil
}
