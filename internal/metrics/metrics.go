package metrics

import "github.com/san-kum/gpsolve/internal/itp"

// Metric accumulates a scalar over the iterations of one run.
type Metric interface {
	Name() string
	Observe(p itp.Progress)
	Value() float64
	Reset()
}

// Set fans iterations out to several metrics.
type Set []Metric

func Default() Set {
	return Set{NewImaginaryTime(), NewReductions(), NewDecayRate(50)}
}

func (s Set) Observe(p itp.Progress) {
	for _, m := range s {
		m.Observe(p)
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// stepTau is the tau the iteration was taken with; a reported reduction
// applies to the next iteration.
func stepTau(p itp.Progress) float64 {
	if p.Reduced {
		return 2 * p.Tau
	}
	return p.Tau
}
