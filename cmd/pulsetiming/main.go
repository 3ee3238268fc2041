package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/pulsetiming/internal/config"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	preset     string
	toaFile    string
	outFile    string
	save       bool
	parallel   bool
	span       float64
	numTOAs    int

	cfg = config.DefaultConfig()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulsetiming",
		Short: "pulsar timing model composition and differentiation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(); err != nil {
				return err
			}
			if configFile != "" {
				loaded, err := config.Load(configFile)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = loaded
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	modelFlags := func(c *cobra.Command) *cobra.Command {
		c.Flags().StringVar(&preset, "preset", "", "use a built-in par document instead of a file")
		c.Args = cobra.MaximumNArgs(1)
		return c
	}
	toaFlags := func(c *cobra.Command) *cobra.Command {
		modelFlags(c)
		c.Flags().StringVar(&toaFile, "toas", "", "TOA csv (mjd,freq,error[,site]); simulated when empty")
		c.Flags().Float64Var(&span, "span", 400, "simulated TOA span in days")
		c.Flags().IntVar(&numTOAs, "n", 48, "number of simulated TOAs")
		return c
	}

	componentsCmd := modelFlags(&cobra.Command{
		Use:   "components [par]",
		Short: "list model components by kind and order",
		RunE:  listComponents,
	})

	paramsCmd := modelFlags(&cobra.Command{
		Use:   "params [par]",
		Short: "list model parameters",
		RunE:  listParams,
	})

	writeCmd := modelFlags(&cobra.Command{
		Use:   "write [par]",
		Short: "write the model as a par file",
		RunE:  writePar,
	})
	writeCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	delayCmd := toaFlags(&cobra.Command{
		Use:   "delay [par]",
		Short: "print delay, barycentric correction and phase per TOA",
		RunE:  showDelay,
	})

	checkCmd := toaFlags(&cobra.Command{
		Use:   "check [par]",
		Short: "compare analytic and numeric phase derivatives",
		RunE:  checkDerivatives,
	})

	designCmd := toaFlags(&cobra.Command{
		Use:   "design [par]",
		Short: "build the design matrix",
		RunE:  buildDesign,
	})
	designCmd.Flags().BoolVar(&save, "save", false, "store the matrix as a run")
	designCmd.Flags().BoolVar(&parallel, "parallel", false, "compute columns concurrently")

	residualsCmd := toaFlags(&cobra.Command{
		Use:   "residuals [par]",
		Short: "plot timing residuals",
		RunE:  plotResiduals,
	})

	fitCmd := toaFlags(&cobra.Command{
		Use:   "fit [par]",
		Short: "fit free parameters by weighted least squares",
		RunE:  fitModel,
	})
	fitCmd.Flags().BoolVar(&save, "save", false, "store the fitted parameters as a run")
	fitCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the fitted par file here")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in par documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-10s %s\n", name, config.GetPreset(name).Description)
			}
			return nil
		},
	}

	rootCmd.AddCommand(componentsCmd, paramsCmd, writeCmd, delayCmd, checkCmd, designCmd, residualsCmd, fitCmd, runsCmd, showCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
