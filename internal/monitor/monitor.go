// Package monitor is a terminal view of a running solve: current erms, tau
// and iteration, with a plot of log10(erms) over the run.
package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gpsolve/internal/itp"
)

// historyCap bounds the plotted window.
const historyCap = 240

// ProgressMsg carries one finished iteration into the program.
type ProgressMsg itp.Progress

// DoneMsg ends the run.
type DoneMsg struct {
	Result *itp.Result
	Err    error
}

type Model struct {
	title     string
	threshold float64
	maxIter   int

	last    itp.Progress
	history []float64
	reduced int

	done   bool
	result *itp.Result
	err    error

	width  int
	height int
}

func New(title string, params itp.Params) Model {
	return Model{
		title:     title,
		threshold: params.Threshold,
		maxIter:   params.Iterations,
		history:   make([]float64, 0, historyCap),
		width:     80,
		height:    24,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ProgressMsg:
		m.last = itp.Progress(msg)
		if msg.Reduced {
			m.reduced++
		}
		if msg.Erms > 0 && !math.IsInf(msg.Erms, 0) {
			if len(m.history) == historyCap {
				m.history = append(m.history[:0], m.history[1:]...)
			}
			m.history = append(m.history, math.Log10(msg.Erms))
		}
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) status() string {
	if !m.done {
		return "RUNNING"
	}
	if m.result != nil {
		return m.result.Status.String()
	}
	return "FAILED"
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(header.Render(m.title))
	b.WriteString("\n\n")

	st := m.status()
	fmt.Fprintf(&b, "%s %s\n", label.Render("status     "), statusStyle(st).Render(st))
	fmt.Fprintf(&b, "%s %s\n", label.Render("iteration  "), value.Render(fmt.Sprintf("%d / %d", m.last.Iteration, m.maxIter)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("erms       "), value.Render(fmt.Sprintf("%e", m.last.Erms)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("threshold  "), value.Render(fmt.Sprintf("%e", m.threshold)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("tau        "), value.Render(fmt.Sprintf("%g", m.last.Tau)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("reductions "), value.Render(fmt.Sprintf("%d", m.reduced)))

	if len(m.history) > 1 {
		w := max(m.width-20, 20)
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(max(m.height-16, 6)),
			asciigraph.Width(w),
			asciigraph.Caption("log10(erms)"),
			asciigraph.Precision(2),
		)
		b.WriteString("\n")
		b.WriteString(panel.Render(graph))
		b.WriteString("\n")
	}

	if m.done && m.result != nil && len(m.result.Energies) > 0 {
		b.WriteString("\n")
		for i, e := range m.result.Energies {
			fmt.Fprintf(&b, "%s %s\n", label.Render(fmt.Sprintf("E[%d]       ", i)), value.Render(fmt.Sprintf("%.10f", e)))
		}
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(failed.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hint.Render("q: stop"))
	b.WriteString("\n")
	return b.String()
}

// SolveFunc runs a solve, reporting every iteration to obs.
type SolveFunc func(ctx context.Context, obs itp.Observer) (*itp.Result, error)

// Run shows the monitor while solve runs on its own goroutine. Quitting the
// monitor cancels the solve's context; Run always waits for solve to return.
func Run(ctx context.Context, title string, params itp.Params, solve SolveFunc, opts ...tea.ProgramOption) (*itp.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title, params), opts...)

	type outcome struct {
		res *itp.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		obs := itp.ObserverFunc(func(pr itp.Progress) { p.Send(ProgressMsg(pr)) })
		res, err := solve(ctx, obs)
		done <- outcome{res, err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	out := <-done
	if out.err == nil && uiErr != nil {
		return out.res, fmt.Errorf("monitor: %w", uiErr)
	}
	return out.res, out.err
}
