// Package timing composes pulse arrival time models from pluggable
// components and differentiates them with respect to their parameters.
//
// The package defines the composition and calculus machinery:
//
//   - [Component]: a physics module owning parameters and contributing
//     delay or phase terms plus their derivatives
//   - [Base]: the bookkeeping every component embeds
//   - [Model]: ordered per-kind registry, flat parameter namespace, total
//     delay and total phase
//   - [Eval]: one evaluation of a model over a [toa.Batch], carrying the
//     optional [Cache] scope
//   - [DesignMatrix]: the least-squares design matrix built from analytic
//     (or numeric) phase derivatives
//
// # Example
//
//	m := timing.NewModel("J1744-1134")
//	_ = m.AddComponent(components.NewDispersion())
//	_ = m.AddComponent(components.NewSpindown())
//	if err := m.ReadParfile(f); err != nil {
//	    return err
//	}
//	dm, err := m.DesignMatrix(batch, timing.DefaultDesignOptions())
//
// # Derivatives
//
// A parameter either enters the phase directly, in which case a phase
// component registers its derivative, or only through the total delay, in
// which case the engine applies the chain rule
//
//	dφ/dp = (Σ dφ/dτ) · dτ/dp
//
// The two paths are never summed.
//
// # Thread Safety
//
// Models are NOT safe for concurrent mutation. Read-only evaluation may run
// concurrently only when each goroutine has its own [Cache];
// [Model.DesignMatrixParallel] does this.
package timing
