// Package scene loads declarative world descriptions and builds populated
// spaces from them. Scene files are YAML, checked against a JSON Schema
// before decoding, and terrain placement is driven by deterministic
// simplex noise so a seed fully decides the result.
package scene

import (
	"fmt"
	"os"
	"strings"

	"github.com/ojrac/opensimplex-go"
	"gopkg.in/yaml.v3"

	"cubespace.dev/internal/block"
	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/mathx"
	"cubespace.dev/internal/space"
)

type Config struct {
	Name string `yaml:"name"`

	Lower [3]int `yaml:"lower"`
	Size  [3]int `yaml:"size"`

	Seed     int64      `yaml:"seed"`
	SkyColor [3]float64 `yaml:"sky_color"`

	MaxRayDistance int `yaml:"max_ray_distance"`

	Terrain TerrainConfig `yaml:"terrain"`

	// Blocks maps the roles the terrain builder knows (ground, rock,
	// glow) to block definitions.
	Blocks map[string]BlockConfig `yaml:"blocks"`
}

type TerrainConfig struct {
	// Kind is "flat" or "hills".
	Kind string `yaml:"kind"`

	BaseHeight int `yaml:"base_height"`

	// Hills only.
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`

	// GlowPermille sprinkles glow blocks into the top terrain layer.
	GlowPermille int `yaml:"glow_permille"`
}

type BlockConfig struct {
	Color    [4]float64 `yaml:"color"`
	Emission [3]float64 `yaml:"emission,omitempty"`
}

// Load reads, schema-validates and decodes a scene file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse decodes scene YAML from memory.
func Parse(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("scene: %w", err)
	}
	if err := sceneSchema.Validate(doc); err != nil {
		return Config{}, fmt.Errorf("scene: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("scene: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("scene: %w", err)
	}
	return cfg, nil
}

// Default is the built-in demo scene used when no file is given.
func Default() Config {
	cfg := Config{
		Name:     "demo-hills",
		Size:     [3]int{48, 24, 48},
		Seed:     1337,
		SkyColor: [3]float64{0.79, 0.87, 1.0},
		Terrain: TerrainConfig{
			Kind:         "hills",
			BaseHeight:   6,
			Frequency:    0.07,
			Amplitude:    5,
			GlowPermille: 12,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "scene"
	}
	if c.SkyColor == ([3]float64{}) {
		c.SkyColor = [3]float64{0.79, 0.87, 1.0}
	}
	if c.Terrain.Kind == "" {
		c.Terrain.Kind = "flat"
	}
	if c.Terrain.BaseHeight == 0 {
		c.Terrain.BaseHeight = c.Size[1] / 3
	}
	if c.Blocks == nil {
		c.Blocks = map[string]BlockConfig{}
	}
	if _, ok := c.Blocks["ground"]; !ok {
		c.Blocks["ground"] = BlockConfig{Color: [4]float64{0.31, 0.54, 0.25, 1}}
	}
	if _, ok := c.Blocks["rock"]; !ok {
		c.Blocks["rock"] = BlockConfig{Color: [4]float64{0.45, 0.43, 0.42, 1}}
	}
	if _, ok := c.Blocks["glow"]; !ok {
		c.Blocks["glow"] = BlockConfig{
			Color:    [4]float64{0.95, 0.82, 0.42, 1},
			Emission: [3]float64{1.4, 1.1, 0.5},
		}
	}
}

func (c *Config) Validate() error {
	for i, s := range c.Size {
		if s <= 0 {
			return fmt.Errorf("size[%d] must be positive, got %d", i, s)
		}
	}
	switch c.Terrain.Kind {
	case "flat", "hills":
	default:
		return fmt.Errorf("unknown terrain kind %q", c.Terrain.Kind)
	}
	if c.Terrain.GlowPermille < 0 || c.Terrain.GlowPermille > 1000 {
		return fmt.Errorf("glow_permille out of range: %d", c.Terrain.GlowPermille)
	}
	return nil
}

// Build constructs and populates a space from the scene description.
func Build(cfg Config) (*space.Space, error) {
	grid, err := geom.NewGrid(
		geom.Vec3i{X: cfg.Lower[0], Y: cfg.Lower[1], Z: cfg.Lower[2]},
		geom.Vec3i{X: cfg.Size[0], Y: cfg.Size[1], Z: cfg.Size[2]},
	)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", cfg.Name, err)
	}

	sp := space.New(grid, space.Physics{
		SkyColor: geom.Rgb{
			R: float32(cfg.SkyColor[0]),
			G: float32(cfg.SkyColor[1]),
			B: float32(cfg.SkyColor[2]),
		},
		MaxRayDistance: cfg.MaxRayDistance,
	})

	ground := cfg.block("ground")
	rock := cfg.block("rock")
	glow := cfg.block("glow")

	noise := opensimplex.NewNormalized(cfg.Seed)
	heightAt := func(x, z int) int {
		h := cfg.Terrain.BaseHeight
		if cfg.Terrain.Kind == "hills" {
			n := noise.Eval2(float64(x)*cfg.Terrain.Frequency, float64(z)*cfg.Terrain.Frequency)
			h += int(n * cfg.Terrain.Amplitude)
		}
		return h
	}

	err = sp.Fill(grid, func(p geom.Vec3i) block.Block {
		h := grid.Lower().Y + heightAt(p.X, p.Z)
		switch {
		case p.Y >= h:
			return nil // leave as air
		case p.Y == h-1:
			roll := mathx.Hash3(cfg.Seed, p.X, p.Y, p.Z) % 1000
			if int(roll) < cfg.Terrain.GlowPermille {
				return glow
			}
			return ground
		default:
			return rock
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", cfg.Name, err)
	}
	return sp, nil
}

func (c *Config) block(role string) block.Block {
	bc := c.Blocks[role]
	return block.Atom{
		Name: strings.ToUpper(role),
		Color: geom.Rgba{
			R: float32(bc.Color[0]),
			G: float32(bc.Color[1]),
			B: float32(bc.Color[2]),
			A: float32(bc.Color[3]),
		},
		Emission: geom.Rgb{
			R: float32(bc.Emission[0]),
			G: float32(bc.Emission[1]),
			B: float32(bc.Emission[2]),
		},
	}
}
