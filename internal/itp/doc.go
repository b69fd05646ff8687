// Package itp solves for ground and low-lying excited states of a nonlinear
// Schrödinger / Gross–Pitaevskii equation by imaginary-time propagation.
//
// The package has two layers:
//
//   - [Engine]: one iteration at a time. Potentials are recomputed from the
//     current densities, every state is propagated by τ, excited states are
//     Gram–Schmidt orthogonalized against lower ones and renormalized, and the
//     convergence residual erms is reduced across states.
//   - [Controller]: drives an Engine to a definite outcome (Converged,
//     MaxIterReached or Diverged), reports progress and computes the final
//     per-state energies.
//
// # Convergence metric
//
// erms = sqrt(mean over requested states of ‖ψ_new − ψ_old‖²) / τ. Dividing by
// τ makes erms a residual of the imaginary-time flow, ‖(H − E)ψ‖ to first
// order, so halving τ does not shift the threshold test.
//
// # Example
//
//	ctl := itp.NewController(parallel.New(4), propagate.NewSplitOperator(), logger)
//	res, err := ctl.Solve(ctx, states, evaluator, itp.Params{
//	    States: 1, Tau: 0.05, Threshold: 1e-4, Iterations: 1000,
//	})
package itp
