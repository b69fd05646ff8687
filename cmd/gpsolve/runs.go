package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/gpsolve/internal/config"
	"github.com/san-kum/gpsolve/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tGRID\tPOTENTIAL\tSTATES\tSTATUS\tITER\tERMS\tE0")

	for _, run := range runs {
		e0 := "-"
		if len(run.Energies) > 0 {
			e0 = fmt.Sprintf("%.8f", run.Energies[0])
		}
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%d+%d\t%s\t%d\t%.3e\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Points, run.Points,
			run.Potential,
			run.Solver.States, run.Solver.Virtuals,
			run.Status,
			run.Iterations,
			run.Erms,
			e0,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	history, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("status: %s after %d iterations\n", meta.Status, meta.Iterations)
	fmt.Printf("samples: %d\n\n", len(history))

	erms := make([]float64, 0, len(history))
	tau := make([]float64, 0, len(history))
	for _, h := range history {
		if h.Erms > 0 {
			erms = append(erms, math.Log10(h.Erms))
		}
		tau = append(tau, h.Tau)
	}

	fmt.Println(asciigraph.Plot(erms,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("log10(erms) vs iteration"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(tau,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("tau vs iteration"),
	))
	fmt.Println()

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.WriteJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	kinds := config.ListPotentials()
	if len(args) > 0 {
		kinds = args
	}
	for _, kind := range kinds {
		presets := config.ListPresets(kind)
		if len(presets) == 0 {
			fmt.Printf("no presets for potential: %s\n", kind)
			continue
		}
		fmt.Printf("presets for %s:\n", kind)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
