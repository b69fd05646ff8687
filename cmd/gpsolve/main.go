package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const usage = `gpsolve <threads> <points_per_axis> <particles> <tau> <threshold> <iterations>`

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	states     int
	virtuals   int
	mass       float64
	mu         float64
	lambda     float64
	potKind    string
	potParams  map[string]float64
	propagator string
	order      string
	boundary   string
	seed       int64
	configFile string
	preset     string
	save       bool
	live       bool
	logEvery   int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   usage,
		Short: "imaginary-time eigensolver for the 2D Gross–Pitaevskii equation",
		Long: `Propagates trial wavefunctions in imaginary time until the lowest
eigenstates of the nonlinear Schrödinger equation are reached.

With fewer than six positional arguments the usage is printed.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewDevelopmentConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: runSolve,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gpsolve", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	f := rootCmd.Flags()
	f.IntVar(&states, "states", 1, "number of requested eigenstates")
	f.IntVar(&virtuals, "virtuals", 0, "extra states propagated but excluded from the convergence test")
	f.Float64Var(&mass, "mass", 1.0, "particle mass")
	f.Float64Var(&mu, "mu", 0.0, "chemical potential")
	f.Float64Var(&lambda, "lambda", 0.0, "interaction strength")
	f.StringVar(&potKind, "potential", "harmonic", "external potential (harmonic, dip)")
	f.StringToFloat64Var(&potParams, "param", nil, "external potential parameters, e.g. kx=1,delta=2")
	f.StringVar(&propagator, "propagator", "split", "propagation scheme (split, euler)")
	f.StringVar(&order, "order", "2nd", "propagator order (1st, 2nd)")
	f.StringVar(&boundary, "boundary", "periodic", "boundary condition (periodic, dirichlet)")
	f.Int64Var(&seed, "seed", 1234, "random seed for the initial guess")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration for --potential")
	f.BoolVar(&save, "save", false, "record the run under --data")
	f.BoolVar(&live, "live", false, "show a live convergence monitor")
	f.IntVar(&logEvery, "log-every", 100, "debug log interval in iterations")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the convergence history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and history as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [potential]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	invertCmd := &cobra.Command{
		Use:   "invert [values...]",
		Short: "invert a square matrix given row-major (default 1 2 3 4)",
		RunE:  invertMatrix,
	}

	powerCmd := &cobra.Command{
		Use:   "power",
		Short: "power iteration on a random matrix",
		RunE:  powerMethod,
	}
	powerCmd.Flags().IntVar(&powerN, "n", 4, "matrix dimension")
	powerCmd.Flags().Int64Var(&powerSeed, "seed", 1234, "random seed")
	powerCmd.Flags().IntVar(&powerIter, "iterations", 1000, "iteration cap")
	powerCmd.Flags().Float64Var(&powerTol, "tol", 1e-10, "convergence tolerance")

	rootCmd.AddCommand(listCmd, plotCmd, exportCmd, presetsCmd, invertCmd, powerCmd, newTuneCmd())
	return rootCmd
}
