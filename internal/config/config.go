package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

const (
	// BoxScale sets the grid step: step = BoxScale / (points/16).
	BoxScale = 1.6

	DefaultThreads    = 1
	DefaultPoints     = 32
	DefaultParticles  = 1.0
	DefaultTau        = 0.05
	DefaultThreshold  = 1e-4
	DefaultIterations = 1000
	DefaultMass       = 1.0
	DefaultLogEvery   = 100
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Threads     int              `yaml:"threads"`
	Seed        int64            `yaml:"seed"`
	Solver      SolverConfig     `yaml:"solver"`
	Grid        GridConfig       `yaml:"grid"`
	Interaction potential.Params `yaml:"interaction"`
	Potential   PotentialConfig  `yaml:"potential"`
	Output      OutputConfig     `yaml:"output"`
}

type SolverConfig struct {
	States     int     `yaml:"states"`
	Virtuals   int     `yaml:"virtuals"`
	Tau        float64 `yaml:"tau"`
	Threshold  float64 `yaml:"threshold"`
	Iterations int     `yaml:"iterations"`
	Propagator string  `yaml:"propagator"`
	Order      string  `yaml:"order"`
}

type GridConfig struct {
	Points   int     `yaml:"points"`
	Mass     float64 `yaml:"mass"`
	Boundary string  `yaml:"boundary"`
}

type PotentialConfig struct {
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type OutputConfig struct {
	Save     bool   `yaml:"save"`
	DataDir  string `yaml:"data_dir"`
	LogEvery int    `yaml:"log_every"`
	Live     bool   `yaml:"live"`
}

func DefaultConfig() *Config {
	return &Config{
		Threads: DefaultThreads,
		Solver: SolverConfig{
			States:     1,
			Tau:        DefaultTau,
			Threshold:  DefaultThreshold,
			Iterations: DefaultIterations,
			Propagator: "split",
			Order:      "2nd",
		},
		Grid: GridConfig{
			Points:   DefaultPoints,
			Mass:     DefaultMass,
			Boundary: "periodic",
		},
		Interaction: potential.Params{
			Particles: DefaultParticles,
		},
		Potential: PotentialConfig{Kind: "harmonic"},
		Output: OutputConfig{
			DataDir:  "./data",
			LogEvery: DefaultLogEvery,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GridStep is the spacing implied by the number of points per axis.
func (c *Config) GridStep() float64 {
	return BoxScale / (float64(c.Grid.Points) / 16)
}

func (c *Config) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("%w: threads must be at least 1, got %d", ErrInvalid, c.Threads)
	case c.Grid.Points < 2:
		return fmt.Errorf("%w: points per axis must be at least 2, got %d", ErrInvalid, c.Grid.Points)
	case !(c.Grid.Mass > 0):
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalid, c.Grid.Mass)
	case c.Solver.States < 1:
		return fmt.Errorf("%w: states must be at least 1, got %d", ErrInvalid, c.Solver.States)
	case c.Solver.Virtuals < 0:
		return fmt.Errorf("%w: virtuals must be non-negative, got %d", ErrInvalid, c.Solver.Virtuals)
	case !(c.Solver.Tau > 0):
		return fmt.Errorf("%w: tau must be positive, got %g", ErrInvalid, c.Solver.Tau)
	case !(c.Solver.Threshold > 0):
		return fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalid, c.Solver.Threshold)
	case c.Solver.Iterations < 1:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalid, c.Solver.Iterations)
	}
	b, err := grid.ParseBoundary(c.Grid.Boundary)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if b != grid.Periodic && (c.Solver.Propagator == "split" || c.Solver.Propagator == "") {
		return fmt.Errorf("%w: split propagator needs periodic boundaries", ErrInvalid)
	}
	if _, err := wavefunc.ParseOrder(c.Solver.Order); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := propagate.New(c.Solver.Propagator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := potential.NewExternal(c.Potential.Kind, c.Potential.Params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
