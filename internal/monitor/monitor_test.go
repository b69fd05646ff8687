package monitor

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gpsolve/internal/itp"
)

func TestModelTracksProgress(t *testing.T) {
	params := itp.DefaultParams()
	var m tea.Model = New("harmonic", params)

	for i, e := range []float64{1, 0.1, 0.01} {
		m, _ = m.Update(ProgressMsg{Iteration: i + 1, Erms: e, Tau: 0.05, Reduced: i == 2})
	}
	mm := m.(Model)
	if len(mm.history) != 3 {
		t.Fatalf("expected 3 history points, got %d", len(mm.history))
	}
	if math.Abs(mm.history[2]+2) > 1e-12 {
		t.Errorf("expected log10 erms -2, got %f", mm.history[2])
	}
	if mm.reduced != 1 {
		t.Errorf("expected 1 reduction, got %d", mm.reduced)
	}

	view := mm.View()
	for _, want := range []string{"RUNNING", "3 / 1000", "log10(erms)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelHistoryCap(t *testing.T) {
	var m tea.Model = New("cap", itp.DefaultParams())
	for i := 0; i < historyCap+10; i++ {
		m, _ = m.Update(ProgressMsg{Iteration: i + 1, Erms: 1})
	}
	if n := len(m.(Model).history); n != historyCap {
		t.Errorf("expected %d points, got %d", historyCap, n)
	}
}

func TestModelDone(t *testing.T) {
	var m tea.Model = New("done", itp.DefaultParams())
	res := &itp.Result{Status: itp.StatusConverged, Energies: []float64{1.0000001}}
	m, cmd := m.Update(DoneMsg{Result: res})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	view := m.View()
	if !strings.Contains(view, "CONVERGED") || !strings.Contains(view, "E[0]") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestRun(t *testing.T) {
	params := itp.DefaultParams()
	boom := errors.New("boom")
	solve := func(ctx context.Context, obs itp.Observer) (*itp.Result, error) {
		for i := 1; i <= 3; i++ {
			obs.Observe(itp.Progress{Iteration: i, Erms: 1 / float64(i), Tau: 0.05})
		}
		return &itp.Result{Status: itp.StatusDiverged, Iterations: 3}, boom
	}

	res, err := Run(context.Background(), "run", params, solve,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())
	if !errors.Is(err, boom) {
		t.Errorf("expected solve error, got %v", err)
	}
	if res == nil || res.Iterations != 3 {
		t.Errorf("unexpected result %+v", res)
	}
}
