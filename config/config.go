// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sandfall/movement"
	"github.com/pthm-cable/sandfall/spatial"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Scene      SceneConfig      `yaml:"scene"`
	Particles  []ParticleConfig `yaml:"particles"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the grid dimensions. Both values must be powers of two.
type WorldConfig struct {
	Size      int `yaml:"size"`       // side length in cells
	ChunkSize int `yaml:"chunk_size"` // side length of a chunk in cells
}

// SimulationConfig holds tick scheduling parameters.
type SimulationConfig struct {
	Seed             int64   `yaml:"seed"`
	MaxTicks         int     `yaml:"max_ticks"`          // 0 = run until interrupted
	ActivityMode     string  `yaml:"activity_mode"`      // dirty_rect | hibernation
	RandomWakeChance float64 `yaml:"random_wake_chance"` // chance an idle particle is considered anyway
	Parallel         bool    `yaml:"parallel"`           // resolve chunk parity groups on a worker pool
	Workers          int     `yaml:"workers"`            // 0 = GOMAXPROCS
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"`          // ticks per aggregated window
	PerfCollectorWindow int `yaml:"perf_collector_window"` // ticks in the rolling perf average
}

// SceneConfig controls the generated starting layout.
type SceneConfig struct {
	Floor            int            `yaml:"floor"`             // rows of wall along the bottom edge
	TerrainType      string         `yaml:"terrain_type"`      // particle type used for the noise terrain
	TerrainHeight    float64        `yaml:"terrain_height"`    // terrain amplitude as a fraction of the world height
	NoiseScale       float64        `yaml:"noise_scale"`       // noise frequency per cell
	CaveThreshold    float64        `yaml:"cave_threshold"`    // noise values above this carve caves out of the terrain
	Pockets          []PocketConfig `yaml:"pockets"`           // blobs of loose material dropped above the terrain
	PocketMinSpacing int            `yaml:"pocket_min_spacing"` // minimum distance between pocket centres
}

// PocketConfig describes one kind of material blob placed by the scene generator.
type PocketConfig struct {
	Type   string  `yaml:"type"`
	Count  int     `yaml:"count"`
	Radius int     `yaml:"radius"`
	Fill   float64 `yaml:"fill"` // fraction of cells inside the radius that are filled
}

// ParticleConfig defines a particle type.
type ParticleConfig struct {
	Name        string `yaml:"name"`
	Material    string `yaml:"material"`     // wall | solid | movable_solid | liquid | gas
	Fluidity    int    `yaml:"fluidity"`     // extra horizontal reach tiers for liquids and gases
	Density     uint32 `yaml:"density"`      // heavier particles sink through lighter ones
	MaxVelocity uint8  `yaml:"max_velocity"` // substeps per tick at full speed
	Momentum    bool   `yaml:"momentum"`     // keeps moving in its last direction
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ActivityMode  spatial.ActivityMode
	Materials     []movement.Material // parallel to Particles
	ParticleIndex map[string]int      // name -> index into Particles
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A particles list in the file replaces
// the default list wholesale.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if !isPowerOfTwo(c.World.Size) {
		errs = append(errs, fmt.Errorf("world.size %d: %w", c.World.Size, spatial.ErrNotPowerOfTwo))
	}
	if !isPowerOfTwo(c.World.ChunkSize) {
		errs = append(errs, fmt.Errorf("world.chunk_size %d: %w", c.World.ChunkSize, spatial.ErrNotPowerOfTwo))
	} else if c.World.ChunkSize > c.World.Size {
		errs = append(errs, fmt.Errorf("world.chunk_size %d: %w", c.World.ChunkSize, spatial.ErrChunkLargerThanWorld))
	}
	if _, err := spatial.ParseActivityMode(c.Simulation.ActivityMode); err != nil {
		errs = append(errs, fmt.Errorf("simulation.activity_mode: %w", err))
	}
	if c.Simulation.RandomWakeChance < 0 || c.Simulation.RandomWakeChance > 1 {
		errs = append(errs, fmt.Errorf("simulation.random_wake_chance %v: must be within [0, 1]", c.Simulation.RandomWakeChance))
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers %d: must not be negative", c.Simulation.Workers))
	}
	if c.Telemetry.StatsWindow <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.stats_window %d: must be positive", c.Telemetry.StatsWindow))
	}

	if len(c.Particles) == 0 {
		errs = append(errs, errors.New("particles: at least one particle type is required"))
	}
	if len(c.Particles) > 1<<16 {
		errs = append(errs, fmt.Errorf("particles: %d types exceeds the id space", len(c.Particles)))
	}
	seen := make(map[string]bool, len(c.Particles))
	for i, p := range c.Particles {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("particles[%d]: name is required", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("particles[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true

		m, err := movement.ParseMaterial(p.Material)
		if err != nil {
			errs = append(errs, fmt.Errorf("particles[%d] %q: %w", i, p.Name, err))
			continue
		}
		if m != movement.Wall && p.MaxVelocity == 0 {
			errs = append(errs, fmt.Errorf("particles[%d] %q: max_velocity must be at least 1", i, p.Name))
		}
		if p.Fluidity < 0 {
			errs = append(errs, fmt.Errorf("particles[%d] %q: fluidity must not be negative", i, p.Name))
		}
	}

	for i, pocket := range c.Scene.Pockets {
		if !seen[pocket.Type] {
			errs = append(errs, fmt.Errorf("scene.pockets[%d]: unknown particle type %q", i, pocket.Type))
		}
	}
	if c.Scene.TerrainType != "" && !seen[c.Scene.TerrainType] {
		errs = append(errs, fmt.Errorf("scene.terrain_type: unknown particle type %q", c.Scene.TerrainType))
	}
	return errors.Join(errs...)
}

// Refresh validates c again and recomputes derived values. Call it after changing fields in code,
// for example from command-line overrides.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.computeDerived()
	return nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// computeDerived calculates values derived from loaded config. Validate must have passed.
func (c *Config) computeDerived() {
	c.Derived.ActivityMode, _ = spatial.ParseActivityMode(c.Simulation.ActivityMode)
	if c.Telemetry.PerfCollectorWindow <= 0 {
		c.Telemetry.PerfCollectorWindow = 120
	}

	c.Derived.Materials = make([]movement.Material, len(c.Particles))
	c.Derived.ParticleIndex = make(map[string]int, len(c.Particles))
	for i, p := range c.Particles {
		c.Derived.Materials[i], _ = movement.ParseMaterial(p.Material)
		c.Derived.ParticleIndex[p.Name] = i
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
