package config

import "sort"

// Presets are keyed by external potential, then by preset name. Each entry
// adjusts a DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"harmonic": {
		"ground": func(c *Config) {},
		"excited": func(c *Config) {
			c.Solver.States = 3
			c.Solver.Virtuals = 1
			c.Solver.Iterations = 3000
		},
		"condensate": func(c *Config) {
			c.Interaction.Lambda = 1
			c.Interaction.Particles = 50
			c.Solver.Tau = 0.02
			c.Solver.Iterations = 5000
		},
		"fd": func(c *Config) {
			c.Grid.Boundary = "dirichlet"
			c.Solver.Propagator = "euler"
			c.Solver.Tau = 0.005
			c.Solver.Iterations = 20000
		},
	},
	"dip": {
		"lattice": func(c *Config) {
			c.Potential.Params = map[string]float64{"kx": 4, "ky": 4, "delta": 5}
			c.Grid.Points = 64
		},
		"shallow": func(c *Config) {
			c.Potential.Params = map[string]float64{"kx": 4, "ky": 4, "delta": 0.5}
			c.Grid.Points = 64
			c.Solver.Iterations = 5000
		},
	},
}

// GetPreset returns a fresh configuration or nil when either name is unknown.
func GetPreset(kind, name string) *Config {
	group, ok := Presets[kind]
	if !ok {
		return nil
	}
	apply, ok := group[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Potential.Kind = kind
	apply(cfg)
	return cfg
}

func ListPresets(kind string) []string {
	group, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPotentials() []string {
	kinds := make([]string, 0, len(Presets))
	for k := range Presets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
