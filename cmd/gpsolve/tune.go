package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/gpsolve/internal/config"
	"github.com/san-kum/gpsolve/internal/itp"
	"github.com/san-kum/gpsolve/internal/optim"
)

var (
	tunePoints     int
	tuneThreads    int
	tuneThreshold  float64
	tuneIterations int
	tuneTaus       []float64
	tuneOrders     []int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "sweep tau and propagator order for the fewest iterations to converge",
		RunE:  tuneRun,
	}
	cmd.Flags().IntVar(&tunePoints, "points", 32, "points per axis")
	cmd.Flags().IntVar(&tuneThreads, "threads", 1, "worker threads")
	cmd.Flags().Float64Var(&tuneThreshold, "threshold", 1e-4, "convergence threshold")
	cmd.Flags().IntVar(&tuneIterations, "iterations", 2000, "iteration cap per trial")
	cmd.Flags().Float64SliceVar(&tuneTaus, "taus", []float64{0.01, 0.02, 0.05, 0.1, 0.2}, "tau values")
	cmd.Flags().IntSliceVar(&tuneOrders, "orders", []int{1, 2}, "propagator orders")
	cmd.Flags().StringVar(&potKind, "potential", "harmonic", "external potential")
	cmd.Flags().StringVar(&preset, "preset", "", "base preset for --potential")
	return cmd
}

func tuneRun(cmd *cobra.Command, args []string) error {
	base := config.DefaultConfig()
	base.Potential.Kind = potKind
	if preset != "" {
		base = config.GetPreset(potKind, preset)
		if base == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(potKind))
		}
	}
	base.Threads = tuneThreads
	base.Grid.Points = tunePoints
	base.Solver.Threshold = tuneThreshold
	base.Solver.Iterations = tuneIterations

	orders := make([]float64, len(tuneOrders))
	for i, o := range tuneOrders {
		orders[i] = float64(o)
	}
	search := optim.NewGridSearch([]string{"tau", "order"}, [][]float64{tuneTaus, orders})

	objective := func(ctx context.Context, p map[string]float64) (float64, error) {
		cfg := *base
		cfg.Solver.Tau = p["tau"]
		cfg.Solver.Order = orderName(int(p["order"]))
		if err := cfg.Validate(); err != nil {
			return 0, err
		}
		_, res, err := solve(ctx, &cfg)
		if err != nil {
			return 0, err
		}
		logger.Debug("tune trial", zap.Float64("tau", cfg.Solver.Tau), zap.String("order", cfg.Solver.Order),
			zap.Stringer("status", res.Status), zap.Int("iterations", res.Iterations))
		if res.Status != itp.StatusConverged {
			return math.Inf(1), nil
		}
		return float64(res.Iterations), nil
	}

	best, score, trials, err := search.Search(cmd.Context(), objective)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAU\tORDER\tITERATIONS\tNOTE")
	for _, t := range optim.Rank(trials) {
		note := ""
		iters := fmt.Sprintf("%.0f", t.Score)
		switch {
		case t.Err != nil:
			iters, note = "-", t.Err.Error()
		case math.IsInf(t.Score, 1):
			iters, note = "-", "not converged"
		}
		fmt.Fprintf(w, "%g\t%s\t%s\t%s\n", t.Params["tau"], orderName(int(t.Params["order"])), iters, note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best == nil || math.IsInf(score, 1) {
		fmt.Println("\nno combination converged")
		return nil
	}
	fmt.Printf("\nbest: tau=%g order=%s (%.0f iterations)\n", best["tau"], orderName(int(best["order"])), score)
	return nil
}

func orderName(o int) string {
	if o == 1 {
		return "1st"
	}
	return "2nd"
}
