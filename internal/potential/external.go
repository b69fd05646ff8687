package potential

import (
	"fmt"
	"math"
)

// External is a static external potential V_ext(x, y).
type External interface {
	Value(x, y float64) float64
}

// ExternalFunc adapts a plain function to External.
type ExternalFunc func(x, y float64) float64

func (f ExternalFunc) Value(x, y float64) float64 { return f(x, y) }

// Configurable potentials expose named parameters for presets and sweeps.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Harmonic is 0.5·Delta·(Kx²x² + Ky²y²).
type Harmonic struct {
	Kx, Ky, Delta float64
}

func NewHarmonic() *Harmonic {
	return &Harmonic{Kx: 1, Ky: 1, Delta: 1}
}

func (h *Harmonic) Value(x, y float64) float64 {
	return 0.5 * h.Delta * (h.Kx*h.Kx*x*x + h.Ky*h.Ky*y*y)
}

func (h *Harmonic) GetParams() map[string]float64 {
	return map[string]float64{"kx": h.Kx, "ky": h.Ky, "delta": h.Delta}
}

func (h *Harmonic) SetParam(name string, v float64) error {
	switch name {
	case "kx":
		h.Kx = v
	case "ky":
		h.Ky = v
	case "delta":
		h.Delta = v
	default:
		return fmt.Errorf("harmonic: unknown parameter %q", name)
	}
	return nil
}

// Dip is a periodic well lattice Delta·(1 − cos²(πx/Kx)·cos²(πy/Ky)) with a
// minimum at the origin and period Kx, Ky.
type Dip struct {
	Kx, Ky, Delta float64
}

func NewDip(period float64) *Dip {
	return &Dip{Kx: period, Ky: period, Delta: 1}
}

func (d *Dip) Value(x, y float64) float64 {
	cx := math.Cos(math.Pi * x / d.Kx)
	cy := math.Cos(math.Pi * y / d.Ky)
	return d.Delta * (1 - cx*cx*cy*cy)
}

func (d *Dip) GetParams() map[string]float64 {
	return map[string]float64{"kx": d.Kx, "ky": d.Ky, "delta": d.Delta}
}

func (d *Dip) SetParam(name string, v float64) error {
	switch name {
	case "kx":
		d.Kx = v
	case "ky":
		d.Ky = v
	case "delta":
		d.Delta = v
	default:
		return fmt.Errorf("dip: unknown parameter %q", name)
	}
	return nil
}

// NewExternal builds a named external potential; unset parameters keep the
// potential's defaults.
func NewExternal(kind string, params map[string]float64) (External, error) {
	var ext interface {
		External
		Configurable
	}
	switch kind {
	case "harmonic", "":
		ext = NewHarmonic()
	case "dip":
		ext = NewDip(1)
	default:
		return nil, fmt.Errorf("unknown potential: %s", kind)
	}
	for k, v := range params {
		if err := ext.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return ext, nil
}
