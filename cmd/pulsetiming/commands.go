package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/san-kum/pulsetiming/internal/catalog"
	"github.com/san-kum/pulsetiming/internal/config"
	"github.com/san-kum/pulsetiming/internal/fitter"
	"github.com/san-kum/pulsetiming/internal/storage"
	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
	"github.com/san-kum/pulsetiming/internal/viz"
)

var simFreqs = []float64{430, 820, 1400, 2300}

// loadModel builds a model from the par file argument or --preset.
func loadModel(args []string) (*timing.Model, error) {
	reg := catalog.NewRegistry()
	opts := cfg.ModelOptions()

	switch {
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return reg.BuildModel(f, opts...)
	case preset != "":
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		return reg.BuildModel(strings.NewReader(p.Par), opts...)
	}
	return nil, errors.New("need a par file or --preset")
}

// loadTOAs reads --toas, or simulates a grid starting at PEPOCH.
func loadTOAs(m *timing.Model) (*toa.Batch, error) {
	if toaFile != "" {
		return toa.LoadCSV(toaFile)
	}
	if numTOAs < 1 {
		return nil, fmt.Errorf("need at least one TOA, got %d", numTOAs)
	}
	start := 55000.0
	if p, err := m.Param("PEPOCH"); err == nil && p.IsSet() {
		start = p.Float()
	}
	toas := make([]toa.TOA, numTOAs)
	for i := range toas {
		mjd := start + span*float64(i)/float64(max(numTOAs-1, 1))
		toas[i] = toa.TOA{Time: mjd * toa.SecondsPerDay, Freq: simFreqs[i%len(simFreqs)], Error: 1, Site: "sim"}
	}
	return toa.NewBatch(toas), nil
}

func loadBoth(args []string) (*timing.Model, *toa.Batch, error) {
	m, err := loadModel(args)
	if err != nil {
		return nil, nil, err
	}
	b, err := loadTOAs(m)
	if err != nil {
		return nil, nil, err
	}
	return m, b, nil
}

func listComponents(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tORDER\tNAME\tCATEGORY\tPARAMS")
	for _, kind := range m.Kinds() {
		for _, c := range m.ComponentsOf(kind) {
			_, order, err := m.ComponentOrder(c)
			if err != nil {
				return err
			}
			var names []string
			for _, p := range c.Params() {
				names = append(names, p.Name)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", kind, order, c.Name(), c.Category(), strings.Join(names, " "))
		}
	}
	return w.Flush()
}

func listParams(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args)
	if err != nil {
		return err
	}
	fmt.Print(viz.ParamTable(m.Params(), m.ParamOwnerMap()))
	for _, w := range m.Warnings() {
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("line %d not used: %s", w.Line, w.Record)))
	}
	return nil
}

func writePar(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args)
	if err != nil {
		return err
	}
	return writeTo(m, outFile)
}

func writeTo(m *timing.Model, path string) error {
	if path == "" {
		return m.WriteParfile(os.Stdout, cfg.WriteOrder())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.WriteParfile(f, cfg.WriteOrder())
}

func showDelay(cmd *cobra.Command, args []string) error {
	m, b, err := loadBoth(args)
	if err != nil {
		return err
	}
	delay, err := m.TotalDelay(b)
	if err != nil {
		return err
	}
	bary, err := m.BarycentricCorrection(b)
	if err != nil {
		return err
	}
	ph, err := m.TotalPhase(b)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MJD\tFREQ\tDELAY(s)\tBARY(s)\tPULSE\tFRAC")
	for i, t := range b.TOAs() {
		fmt.Fprintf(w, "%.6f\t%.1f\t%.9f\t%.9f\t%d\t%+.6f\n", t.MJD(), t.Freq, delay[i], bary[i], ph.Int[i], ph.Frac[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if c := m.Cache(); c != nil {
		hits, misses := c.Stats()
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("cache: %d hits, %d misses", hits, misses)))
	}
	return nil
}

// maxRelativeError is the analytic/numeric disagreement accepted by check.
const maxRelativeError = 1e-4

func checkDerivatives(cmd *cobra.Command, args []string) error {
	m, b, err := loadBoth(args)
	if err != nil {
		return err
	}
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	skip := color.New(color.FgYellow).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tMAX|ANALYTIC|\tREL ERROR\tRESULT")
	failed := 0
	for _, name := range m.FreeParams() {
		analytic, err := m.DPhaseDParam(b, nil, name)
		if errors.Is(err, timing.ErrNoDerivative) {
			fmt.Fprintf(w, "%s\t-\t-\t%s\n", name, skip("NO DERIVATIVE"))
			continue
		}
		if err != nil {
			return err
		}
		numeric, err := m.DPhaseDParamNumeric(b, name, cfg.NumericStep)
		if err != nil {
			return err
		}
		scale, worst := 0.0, 0.0
		for i := range analytic {
			scale = math.Max(scale, math.Abs(analytic[i]))
		}
		for i := range analytic {
			worst = math.Max(worst, math.Abs(analytic[i]-numeric[i])/math.Max(scale, math.SmallestNonzeroFloat64))
		}
		result := pass("PASS")
		if worst > maxRelativeError {
			result = fail("FAIL")
			failed++
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.2e\t%s\n", name, scale, worst, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d derivatives disagree", failed)
	}
	return nil
}

func buildDesign(cmd *cobra.Command, args []string) error {
	m, b, err := loadBoth(args)
	if err != nil {
		return err
	}
	var dm *timing.DesignMatrix
	if parallel {
		dm, err = m.DesignMatrixParallel(context.Background(), b, cfg.DesignOptions(), cfg.Workers)
	} else {
		dm, err = m.DesignMatrix(b, cfg.DesignOptions())
	}
	if err != nil {
		return err
	}
	fmt.Print(viz.DesignSummary(dm))

	if !save {
		return nil
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunInput{Command: "design", Model: m, Matrix: dm, NumTOAs: b.Len()})
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", runID)
	return nil
}

func plotResiduals(cmd *cobra.Command, args []string) error {
	m, b, err := loadBoth(args)
	if err != nil {
		return err
	}
	r, err := fitter.New(m, b, fitter.Options{Design: cfg.DesignOptions()}).Residuals()
	if err != nil {
		return err
	}
	fmt.Println(viz.ResidualPlot(r, cfg.Plot.Width, cfg.Plot.Height))
	return nil
}

func fitModel(cmd *cobra.Command, args []string) error {
	m, b, err := loadBoth(args)
	if err != nil {
		return err
	}
	f := fitter.New(m, b, fitter.Options{Design: cfg.DesignOptions(), Tolerance: cfg.Fit.Tolerance})
	res, err := f.Fit(cfg.Fit.MaxIter)
	if err != nil && !errors.Is(err, fitter.ErrNotConverged) {
		return err
	}
	if err != nil {
		fmt.Println(color.YellowString("warning: %v", err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tVALUE\tUPDATE\tUNCERTAINTY")
	for i, name := range res.Params {
		p, err := m.Param(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%v\t%+.4g\t%.4g\n", name, p.Value(), res.Updates[i], res.Uncertainties[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	post, err := f.Residuals()
	if err != nil {
		return err
	}
	fmt.Printf("iterations %d, chi2 %.4g, prefit rms %.4g us\n", res.Iterations, res.ChiSq, res.PrefitRMS*1e6)
	fmt.Println(viz.ResidualPlot(post, cfg.Plot.Width, cfg.Plot.Height))

	if outFile != "" {
		if err := writeTo(m, outFile); err != nil {
			return err
		}
	}
	if !save {
		return nil
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunInput{Command: "fit", Model: m, NumTOAs: b.Len(), ChiSq: res.ChiSq})
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPULSAR\tCOMMAND\tTIME\tTOAS\tCOLUMNS\tCHI2")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.4g\n",
			run.ID,
			run.Pulsar,
			run.Command,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumTOAs,
			len(run.Columns),
			run.ChiSq,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(meta.ID) + " " + viz.Subtle.Render(meta.Command+" "+meta.Timestamp.Format("2006-01-02 15:04:05")))
	fmt.Println(viz.BoxWithTitle(meta.Pulsar, strings.TrimRight(meta.Par, "\n"), cfg.Plot.Width))

	snap, err := st.LoadParams(meta.ID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tVALUE\tUNCERTAINTY\tUNITS\tFIT")
	for _, p := range snap {
		fit := ""
		if !p.Frozen {
			fit = "yes"
		}
		fmt.Fprintf(w, "%s\t%v\t%.4g\t%s\t%s\n", p.Name, p.Value, p.Uncertainty, p.Units, fit)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(meta.Columns) == 0 {
		return nil
	}
	dm, err := st.LoadMatrix(meta.ID)
	if err != nil {
		return err
	}
	fmt.Println(viz.Separator(cfg.Plot.Width))
	fmt.Print(viz.DesignSummary(dm))
	return nil
}
