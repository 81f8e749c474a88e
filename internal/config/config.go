// Package config handles tool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/SaladDais/sl-creation-utils/internal/bake"
	"github.com/SaladDais/sl-creation-utils/internal/logger"
	"github.com/SaladDais/sl-creation-utils/internal/meshio"
	"github.com/SaladDais/sl-creation-utils/pkg/depth"
	"github.com/SaladDais/sl-creation-utils/pkg/formats"
	"github.com/SaladDais/sl-creation-utils/pkg/morph"
	"github.com/SaladDais/sl-creation-utils/pkg/morphanim"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Rig       RigConfig       `yaml:"rig"`
	Weights   WeightsConfig   `yaml:"weights"`
	Animation AnimationConfig `yaml:"animation"`
	Bake      BakeConfig      `yaml:"bake"`
	Depth     DepthConfig     `yaml:"depth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RigConfig describes the control rig shared by the solver and the driving
// animation.
type RigConfig struct {
	// ReferenceDistance is the displacement, in mesh units, that maps to
	// full weight. It is also how far the animation moves each control joint.
	ReferenceDistance float32 `yaml:"reference_distance"`
	// UpAxis is the vertical axis of input meshes: y for glTF, z for files
	// already in the SL frame.
	UpAxis string `yaml:"up_axis"`
}

// WeightsConfig holds weight solving settings.
type WeightsConfig struct {
	NullPolicy string `yaml:"null_policy"` // none, zero or remainder
	Strict     bool   `yaml:"strict"`      // reject displacements past the reference distance
}

// AnimationConfig holds settings for the driving animation.
type AnimationConfig struct {
	Priority    int32   `yaml:"priority"`
	Duration    float32 `yaml:"duration"`
	InterFrames int     `yaml:"inter_frames"`
	AxisSlop    int     `yaml:"axis_slop"`
	EaseIn      float32 `yaml:"ease_in"`
	EaseOut     float32 `yaml:"ease_out"`
	HandPose    string  `yaml:"hand_pose"` // spread or relaxed
}

// BakeConfig holds texture baking settings.
type BakeConfig struct {
	SampleRadius int      `yaml:"sample_radius"`
	Circle       bool     `yaml:"circle"`
	Bands        int      `yaml:"bands"`
	Invert       bool     `yaml:"invert"`
	GroupNames   []string `yaml:"group_names"`
}

// DepthConfig holds the default depth window as fractions of the full
// 24-bit range.
type DepthConfig struct {
	RangeLower float64 `yaml:"range_lower"`
	RangeUpper float64 `yaml:"range_upper"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	anim := morphanim.DefaultOptions()
	return &Config{
		Rig: RigConfig{
			ReferenceDistance: morph.DefaultReferenceDistance,
			UpAxis:            meshio.UpY.String(),
		},
		Weights: WeightsConfig{
			NullPolicy: morph.NullRemainder.String(),
		},
		Animation: AnimationConfig{
			Priority:    anim.Priority,
			Duration:    anim.Duration,
			InterFrames: anim.InterFrames,
			AxisSlop:    anim.AxisSlop,
			EaseIn:      anim.EaseIn,
			EaseOut:     anim.EaseOut,
			HandPose:    "relaxed",
		},
		Bake: BakeConfig{
			SampleRadius: 1,
			Bands:        1,
		},
		Depth: DepthConfig{
			RangeLower: 0,
			RangeUpper: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the config for values no command can run with.
func (c *Config) Validate() error {
	if !(c.Rig.ReferenceDistance > 0) {
		return fmt.Errorf("%w: rig.reference_distance must be positive, got %v", ErrInvalidConfig, c.Rig.ReferenceDistance)
	}
	if _, err := meshio.ParseUpAxis(c.Rig.UpAxis); err != nil {
		return fmt.Errorf("%w: rig.up_axis: %w", ErrInvalidConfig, err)
	}
	if _, err := morph.ParseNullPolicy(c.Weights.NullPolicy); err != nil {
		return fmt.Errorf("%w: weights.null_policy: %w", ErrInvalidConfig, err)
	}
	if _, err := parseHandPose(c.Animation.HandPose); err != nil {
		return fmt.Errorf("%w: animation.hand_pose: %w", ErrInvalidConfig, err)
	}
	if c.Animation.InterFrames < 0 || c.Animation.AxisSlop < 0 {
		return fmt.Errorf("%w: animation.inter_frames and animation.axis_slop must not be negative", ErrInvalidConfig)
	}
	if c.Bake.SampleRadius < 1 {
		return fmt.Errorf("%w: bake.sample_radius must be at least 1, got %d", ErrInvalidConfig, c.Bake.SampleRadius)
	}
	if c.Bake.Bands < 1 {
		return fmt.Errorf("%w: bake.bands must be at least 1, got %d", ErrInvalidConfig, c.Bake.Bands)
	}
	if c.Depth.RangeLower < 0 || c.Depth.RangeUpper > 1 || c.Depth.RangeUpper <= c.Depth.RangeLower {
		return fmt.Errorf("%w: depth range [%v, %v] must be an increasing window within [0, 1]", ErrInvalidConfig, c.Depth.RangeLower, c.Depth.RangeUpper)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// MorphOptions returns the solver options. Call Validate first.
func (c *Config) MorphOptions() morph.Options {
	policy, _ := morph.ParseNullPolicy(c.Weights.NullPolicy)
	return morph.Options{
		ReferenceDistance: c.Rig.ReferenceDistance,
		NullPolicy:        policy,
		Strict:            c.Weights.Strict,
	}
}

// Up returns the vertical axis of input meshes. Call Validate first.
func (c *Config) Up() meshio.UpAxis {
	up, _ := meshio.ParseUpAxis(c.Rig.UpAxis)
	return up
}

// AnimOptions returns the driving animation options. The control joints
// travel exactly the reference distance.
func (c *Config) AnimOptions() morphanim.Options {
	opts := morphanim.DefaultOptions()
	opts.Priority = c.Animation.Priority
	opts.Duration = c.Animation.Duration
	opts.Travel = c.Rig.ReferenceDistance
	opts.InterFrames = c.Animation.InterFrames
	opts.AxisSlop = c.Animation.AxisSlop
	opts.EaseIn = c.Animation.EaseIn
	opts.EaseOut = c.Animation.EaseOut
	opts.HandPose, _ = parseHandPose(c.Animation.HandPose)
	return opts
}

// BakeOptions returns the texture baking options.
func (c *Config) BakeOptions() bake.Options {
	return bake.Options{
		Sampler:    bake.Sampler{Radius: c.Bake.SampleRadius, Circle: c.Bake.Circle},
		Bands:      c.Bake.Bands,
		Invert:     c.Bake.Invert,
		GroupNames: c.Bake.GroupNames,
	}
}

// DepthWindow returns the default depth window.
func (c *Config) DepthWindow() depth.Window {
	return depth.Window{Lower: c.Depth.RangeLower, Upper: c.Depth.RangeUpper}
}

func parseHandPose(name string) (uint32, error) {
	switch name {
	case "", "relaxed":
		return formats.HandPoseRelaxed, nil
	case "spread":
		return formats.HandPoseSpread, nil
	}
	return 0, fmt.Errorf("unknown hand pose %q", name)
}
