package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/gpsolve/internal/config"
	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/itp"
	"github.com/san-kum/gpsolve/internal/metrics"
	"github.com/san-kum/gpsolve/internal/monitor"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/storage"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

func runSolve(cmd *cobra.Command, args []string) error {
	if len(args) < 6 {
		fmt.Fprintf(cmd.ErrOrStderr(), "usage: %s\n", usage)
		return nil
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	meta, res, err := solve(ctx, cfg)
	if res != nil {
		report(res, meta.Metrics)
	}
	if cfg.Output.Save && res != nil {
		st := storage.New(cfg.Output.DataDir)
		if ierr := st.Init(); ierr != nil {
			return ierr
		}
		id, serr := st.Save(meta, res.History)
		if serr != nil {
			return serr
		}
		logger.Info("run saved", zap.String("id", id), zap.String("dir", cfg.Output.DataDir))
	}

	var de *itp.DivergedError
	if errors.As(err, &de) {
		logger.Error("solver diverged",
			zap.Int("iteration", de.Iteration),
			zap.Int("state", de.State),
			zap.Float64("best_erms", de.BestErms))
	}
	return err
}

// buildConfig layers defaults, preset, config file, positional arguments and
// explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(potKind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(potKind))
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	var err error
	if cfg.Threads, err = strconv.Atoi(args[0]); err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	if cfg.Grid.Points, err = strconv.Atoi(args[1]); err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	if cfg.Interaction.Particles, err = strconv.ParseFloat(args[2], 64); err != nil {
		return nil, fmt.Errorf("particles: %w", err)
	}
	if cfg.Solver.Tau, err = strconv.ParseFloat(args[3], 64); err != nil {
		return nil, fmt.Errorf("tau: %w", err)
	}
	if cfg.Solver.Threshold, err = strconv.ParseFloat(args[4], 64); err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}
	if cfg.Solver.Iterations, err = strconv.Atoi(args[5]); err != nil {
		return nil, fmt.Errorf("iterations: %w", err)
	}

	fl := cmd.Flags()
	if fl.Changed("states") {
		cfg.Solver.States = states
	}
	if fl.Changed("virtuals") {
		cfg.Solver.Virtuals = virtuals
	}
	if fl.Changed("mass") {
		cfg.Grid.Mass = mass
	}
	if fl.Changed("mu") {
		cfg.Interaction.Mu = mu
	}
	if fl.Changed("lambda") {
		cfg.Interaction.Lambda = lambda
	}
	if fl.Changed("potential") && preset == "" {
		cfg.Potential.Kind = potKind
	}
	if fl.Changed("param") {
		if cfg.Potential.Params == nil {
			cfg.Potential.Params = map[string]float64{}
		}
		for k, v := range potParams {
			cfg.Potential.Params[k] = v
		}
	}
	if fl.Changed("propagator") {
		cfg.Solver.Propagator = propagator
	}
	if fl.Changed("order") {
		cfg.Solver.Order = order
	}
	if fl.Changed("boundary") {
		cfg.Grid.Boundary = boundary
	}
	if fl.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if fl.Changed("save") {
		cfg.Output.Save = save
	}
	if fl.Changed("live") {
		cfg.Output.Live = live
	}
	if fl.Changed("log-every") {
		cfg.Output.LogEvery = logEvery
	}
	if cmd.Flags().Changed("data") || cfg.Output.DataDir == "" {
		cfg.Output.DataDir = dataDir
	}
	return cfg, nil
}

func solve(ctx context.Context, cfg *config.Config) (storage.RunMetadata, *itp.Result, error) {
	b, _ := grid.ParseBoundary(cfg.Grid.Boundary)
	ord, _ := wavefunc.ParseOrder(cfg.Solver.Order)
	step := cfg.GridStep()
	n := cfg.Grid.Points

	params := itp.Params{
		States:     cfg.Solver.States,
		Virtuals:   cfg.Solver.Virtuals,
		Tau:        cfg.Solver.Tau,
		Threshold:  cfg.Solver.Threshold,
		Iterations: cfg.Solver.Iterations,
	}
	meta := storage.RunMetadata{
		Seed:       cfg.Seed,
		Threads:    cfg.Threads,
		Points:     n,
		Step:       step,
		Mass:       cfg.Grid.Mass,
		Boundary:   b.String(),
		Propagator: cfg.Solver.Propagator,
		Order:      ord.String(),
		Potential:  cfg.Potential.Kind,
		Params:     cfg.Potential.Params,
		Mu:         cfg.Interaction.Mu,
		Lambda:     cfg.Interaction.Lambda,
		Particles:  cfg.Interaction.Particles,
		Solver:     params,
	}

	fmt.Fprintf(os.Stderr, "Grid (%dx%d)\n", n, n)

	exec := parallel.New(cfg.Threads)
	prop, err := propagate.New(cfg.Solver.Propagator)
	if err != nil {
		return meta, nil, err
	}
	ext, err := potential.NewExternal(cfg.Potential.Kind, cfg.Potential.Params)
	if err != nil {
		return meta, nil, err
	}
	eval := potential.NewEvaluator(cfg.Interaction, ext, exec)

	psi := make([]*wavefunc.State, params.Total())
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := range psi {
		s, err := wavefunc.Allocate(n, n, step, cfg.Grid.Mass, b, ord)
		if err != nil {
			return meta, nil, err
		}
		initialGuess(s, rng)
		psi[i] = s
	}

	ctlLogger := logger
	if cfg.Output.Live {
		ctlLogger = zap.NewNop()
	}
	ctl := itp.NewController(exec, prop, ctlLogger)
	ctl.SetLogEvery(cfg.Output.LogEvery)
	ms := metrics.Default()
	ctl.AddObserver(ms)

	var res *itp.Result
	if cfg.Output.Live {
		title := fmt.Sprintf("gpsolve  %dx%d  %s  %s", n, n, cfg.Potential.Kind, prop.Name())
		res, err = monitor.Run(ctx, title, params, func(ctx context.Context, obs itp.Observer) (*itp.Result, error) {
			ctl.AddObserver(obs)
			return ctl.Solve(ctx, psi, eval, params)
		})
	} else {
		res, err = ctl.Solve(ctx, psi, eval, params)
	}

	if res != nil {
		meta.Status = res.Status.String()
		meta.Erms = res.Erms
		meta.BestErms = res.BestErms
		meta.Tau = res.Tau
		meta.Iterations = res.Iterations
		meta.Energies = res.Energies
		meta.ElapsedMS = res.Elapsed.Milliseconds()
		meta.Metrics = ms.Values()
	}
	return meta, res, err
}

// initialGuess seeds a state with random amplitudes under a wide Gaussian
// envelope so that every low-lying mode is represented.
func initialGuess(s *wavefunc.State, rng *rand.Rand) {
	g := s.Grid
	w := float64(g.NX) * g.Step / 4
	s.Map(func(x, y float64) complex128 {
		env := math.Exp(-(x*x + y*y) / (2 * w * w))
		return complex(env*rng.Float64(), env*rng.Float64())
	})
}

func report(res *itp.Result, values map[string]float64) {
	fmt.Fprintf(os.Stderr, "RMS of error = %e\n", res.Erms)
	if res.BestErms < res.Erms {
		fmt.Fprintf(os.Stderr, "Best RMS of error = %e\n", res.BestErms)
	}
	fmt.Fprintf(os.Stderr, "Status = %s after %d iterations (tau = %g)\n", res.Status, res.Iterations, res.Tau)
	for i, e := range res.Energies {
		fmt.Fprintf(os.Stderr, "Energy of state %d = %.10f\n", i, e)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s: %.6g\n", name, values[name])
	}
}
