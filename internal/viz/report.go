package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/timing"
)

// ResidualPlot plots residuals given in seconds as microseconds.
func ResidualPlot(residuals []float64, width, height int) string {
	if len(residuals) == 0 {
		return Subtle.Render("no residuals")
	}
	us := make([]float64, len(residuals))
	var ss float64
	for i, r := range residuals {
		us[i] = r * 1e6
		ss += us[i] * us[i]
	}
	rms := math.Sqrt(ss / float64(len(us)))
	return asciigraph.Plot(us,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(3),
		asciigraph.Caption(fmt.Sprintf("residuals (us), rms %.3f", rms)),
	)
}

// ParamTable lists params with their owning component. Free parameters
// are highlighted.
func ParamTable(params []*param.Param, owners map[string]string) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-14s %-24s %-12s %-10s %s", "NAME", "VALUE", "UNCERTAINTY", "UNITS", "COMPONENT")))
	b.WriteString("\n")
	for _, p := range params {
		value := "-"
		if p.IsSet() {
			value = fmt.Sprint(p.Value())
		}
		unc := ""
		if p.Uncertainty != 0 {
			unc = fmt.Sprintf("%.3g", p.Uncertainty)
		}
		name := fmt.Sprintf("%-14s", p.Name)
		if !p.Frozen && p.Kind().Numeric() {
			name = Free.Render(name)
		} else {
			name = Label.Render(name)
		}
		fmt.Fprintf(&b, "%s %-24s %-12s %-10s %s\n", name, value, unc, p.Units, Subtle.Render(owners[p.Name]))
	}
	return b.String()
}

// DesignSummary prints one line per design matrix column: name, units,
// RMS, and a sparkline over the TOAs.
func DesignSummary(dm *timing.DesignMatrix) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d TOAs x %d columns", Title.Render("design matrix"), dm.Rows(), dm.Cols())
	if dm.Scaled {
		b.WriteString(Subtle.Render(" (seconds per unit)"))
	}
	b.WriteString("\n")
	for _, name := range dm.Params {
		col, _ := dm.Column(name)
		var ss float64
		for _, v := range col {
			ss += v * v
		}
		rms := 0.0
		if len(col) > 0 {
			rms = math.Sqrt(ss / float64(len(col)))
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			Label.Render(fmt.Sprintf("%-14s", name)),
			Value.Render(fmt.Sprintf("%-12.4g", rms)),
			Sparkline(col))
	}
	return b.String()
}
