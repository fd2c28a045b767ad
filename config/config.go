// Package config holds the tunable simulation and render parameters,
// loadable from a YAML file on top of sensible defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGravityY    = -9.81
	DefaultSubsteps    = 1
	DefaultIterations  = 10
	DefaultSlop        = 0.005
	DefaultBaumgarte   = 0.2
	DefaultRestitution = 0.3
	DefaultFriction    = 0.5
	DefaultWidth       = 1920
	DefaultHeight      = 1080
	DefaultFOVDegrees  = 45.0
)

// Config is the full tuning surface.
type Config struct {
	GravityY float64      `yaml:"gravity_y"`
	Substeps int          `yaml:"substeps"`
	Solver   SolverConfig `yaml:"solver"`
	Material Material     `yaml:"material"`
	Render   RenderConfig `yaml:"render"`
	Colors   Colors       `yaml:"colors"`
}

// SolverConfig tunes the contact solver.
type SolverConfig struct {
	Iterations int     `yaml:"iterations"`
	Slop       float64 `yaml:"slop"`
	Baumgarte  float64 `yaml:"baumgarte"`
}

// Material holds the scene-wide default coefficients, applied to bodies
// that do not override them.
type Material struct {
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
}

// RenderConfig sizes the output frame.
type RenderConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FOVDegrees float64 `yaml:"fov_degrees"`
}

// Colors are the default body tints per shape kind, RGB in [0,1].
type Colors struct {
	Cube   [3]float32 `yaml:"cube"`
	Sphere [3]float32 `yaml:"sphere"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GravityY: DefaultGravityY,
		Substeps: DefaultSubsteps,
		Solver: SolverConfig{
			Iterations: DefaultIterations,
			Slop:       DefaultSlop,
			Baumgarte:  DefaultBaumgarte,
		},
		Material: Material{
			Restitution: DefaultRestitution,
			Friction:    DefaultFriction,
		},
		Render: RenderConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			FOVDegrees: DefaultFOVDegrees,
		},
		Colors: Colors{
			Cube:   [3]float32{0.78, 0.33, 0.21},
			Sphere: [3]float32{0.25, 0.52, 0.88},
		},
	}
}

// Load reads a YAML file over the defaults, so partial files only
// override what they mention.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Substeps < 1 {
		return fmt.Errorf("substeps %d must be >= 1", c.Substeps)
	}
	if c.Solver.Iterations < 1 {
		return fmt.Errorf("solver iterations %d must be >= 1", c.Solver.Iterations)
	}
	if c.Solver.Slop < 0 {
		return fmt.Errorf("solver slop %v must be >= 0", c.Solver.Slop)
	}
	if c.Solver.Baumgarte < 0 || c.Solver.Baumgarte > 1 {
		return fmt.Errorf("solver baumgarte %v must be in [0,1]", c.Solver.Baumgarte)
	}
	if c.Render.Width < 1 || c.Render.Height < 1 {
		return fmt.Errorf("render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	}
	if c.Render.FOVDegrees <= 0 || c.Render.FOVDegrees >= 180 {
		return fmt.Errorf("fov %v degrees must be in (0,180)", c.Render.FOVDegrees)
	}
	return nil
}
