// Package viz renders timing model reports for the terminal.
//
//   - [ResidualPlot]: asciigraph plot of timing residuals in microseconds
//   - [ParamTable]: aligned parameter listing with owner and fit state
//   - [DesignSummary]: per-column magnitude sparkline of a design matrix
//
// Styles are lipgloss definitions shared by the command line tool.
package viz
