package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/gpsolve/internal/itp"
)

// DecayRate fits ln(erms) against imaginary time over the trailing window.
// Once the slowest mode dominates, the negated slope estimates the gap
// between the converging state and the next one above it.
type DecayRate struct {
	name   string
	window int
	t      float64
	times  []float64
	logs   []float64
}

func NewDecayRate(window int) *DecayRate {
	if window < 2 {
		window = 2
	}
	return &DecayRate{
		name:   "decay_rate",
		window: window,
		times:  make([]float64, 0, window),
		logs:   make([]float64, 0, window),
	}
}

func (m *DecayRate) Name() string { return m.name }

func (m *DecayRate) Observe(p itp.Progress) {
	m.t += stepTau(p)
	if !(p.Erms > 0) || math.IsInf(p.Erms, 0) {
		return
	}
	if len(m.times) == m.window {
		copy(m.times, m.times[1:])
		copy(m.logs, m.logs[1:])
		m.times = m.times[:m.window-1]
		m.logs = m.logs[:m.window-1]
	}
	m.times = append(m.times, m.t)
	m.logs = append(m.logs, math.Log(p.Erms))
}

func (m *DecayRate) Value() float64 {
	if len(m.times) < 2 {
		return 0
	}
	_, beta := stat.LinearRegression(m.times, m.logs, nil, false)
	return -beta
}

func (m *DecayRate) Reset() {
	m.t = 0
	m.times = m.times[:0]
	m.logs = m.logs[:0]
}
