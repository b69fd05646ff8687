// Package potential evaluates the effective potential every state feels.
//
// For state i the nonlinear Gross–Pitaevskii potential is
//
//	V_i(x, y) = Lambda·Particles·|ψ_i(x, y)|² − Mu + V_ext(x, y)
//
// The solver consumes the [Function] interface; [Evaluator] is the standard
// implementation, combining [Params] with a static [External] potential such
// as [Harmonic] or [Dip].
package potential
