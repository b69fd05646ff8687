package metrics

import "github.com/san-kum/gpsolve/internal/itp"

// ImaginaryTime is the total propagated imaginary time.
type ImaginaryTime struct {
	name string
	t    float64
}

func NewImaginaryTime() *ImaginaryTime {
	return &ImaginaryTime{name: "imaginary_time"}
}

func (m *ImaginaryTime) Name() string { return m.name }

func (m *ImaginaryTime) Observe(p itp.Progress) {
	m.t += stepTau(p)
}

func (m *ImaginaryTime) Value() float64 { return m.t }

func (m *ImaginaryTime) Reset() { m.t = 0 }

// Reductions counts tau halvings.
type Reductions struct {
	name  string
	count int
}

func NewReductions() *Reductions {
	return &Reductions{name: "tau_reductions"}
}

func (m *Reductions) Name() string { return m.name }

func (m *Reductions) Observe(p itp.Progress) {
	if p.Reduced {
		m.count++
	}
}

func (m *Reductions) Value() float64 { return float64(m.count) }

func (m *Reductions) Reset() { m.count = 0 }
