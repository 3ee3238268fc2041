// Package components provides reference timing model components.
//
// Each component embeds [timing.Base] and registers its contributions and
// analytic derivatives at construction:
//
//   - [Spindown]: spin phase from F0, F1 and PEPOCH
//   - [Dispersion]: cold plasma delay from DM and the DMX range family
//   - [BinaryCircular]: circular orbit Roemer delay (BINARY CIRC)
//   - [SolarShapiro]: Shapiro delay of the Sun in a toy annual geometry
//   - [ConstantDelay]: fixed delay offset
//   - [PhaseOffset]: constant phase offset
//
// The formulas are deliberately simple. They exercise the engine and are
// not suitable for real timing work.
//
// # Example
//
//	m := timing.NewModel("J1744-1134")
//	_ = m.AddComponent(components.NewDispersion())
//	_ = m.AddComponent(components.NewSpindown())
//	d, err := m.TotalDelay(batch)
package components
