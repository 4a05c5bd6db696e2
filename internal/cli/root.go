// Package cli implements bikestats, the command-line view of the dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bikeshare/internal/config"
	"bikeshare/internal/dataprocessing"
	"bikeshare/internal/files"
	"bikeshare/internal/infrastructure"
	"bikeshare/internal/services"
	"bikeshare/internal/validation"
	"bikeshare/pkg/contracts"
	"bikeshare/pkg/contracts/domain"
)

// Output modes.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

// env carries what every subcommand needs.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *services.DashboardService
	output  string
}

type envKey struct{}

// globalFlags are bound to the root command's persistent flags.
type globalFlags struct {
	configFile string
	dataFile   string
	units      string
	start      string
	end        string
	output     string
	verbose    bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "bikestats",
		Short: "Bike sharing summaries from the command line",
		Long: `bikestats loads a daily bike-sharing dataset and prints the same
summaries the dashboard serves: holiday and weather effects, yearly and
monthly rollups, temperature effect and rider-total integrity.`,
		Version: contracts.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			e, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default: discovered config.yaml)")
	pf.StringVarP(&flags.dataFile, "data", "d", "", "data file (.csv or .xlsx)")
	pf.StringVar(&flags.units, "units", "", "units of the data file (normalized|physical)")
	pf.StringVar(&flags.start, "start", "", "first day of the range (YYYY-MM-DD)")
	pf.StringVar(&flags.end, "end", "", "last day of the range (YYYY-MM-DD)")
	pf.StringVarP(&flags.output, "output", "o", OutputTable, "output format (table|json|csv)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log progress to stderr")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputTable, OutputJSON, OutputCSV}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("units", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(domain.UnitsNormalized), string(domain.UnitsPhysical)}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRangeCommand())
	rootCmd.AddCommand(newSummaryCommand("holiday", "Rentals on holidays versus other days", withMode))
	rootCmd.AddCommand(newSummaryCommand("weather", "Rentals per weather situation"))
	rootCmd.AddCommand(newSummaryCommand("yearly", "Total rentals per year"))
	rootCmd.AddCommand(newSummaryCommand("monthly", "Registered and casual rentals per month", withYear))
	rootCmd.AddCommand(newSummaryCommand("temperature", "Rentals per temperature value", withDisplayUnits))
	rootCmd.AddCommand(newSummaryCommand("condition", "Rentals against a weather condition", withOption, withDisplayUnits))
	rootCmd.AddCommand(newSummaryCommand("integrity", "Rows where cnt differs from registered + casual"))
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newChartCommand())

	return rootCmd
}

// newEnv resolves configuration, applies flag overrides and loads the dataset.
func newEnv(cmd *cobra.Command, flags *globalFlags) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configFile != "" {
		cfg, err = config.LoadFrom(flags.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	root := cmd.Root().PersistentFlags()
	if changed(root, "data") {
		cfg.Data.File = flags.dataFile
	}
	if changed(root, "units") {
		units, err := domain.ParseUnits(flags.units)
		if err != nil {
			return nil, err
		}
		cfg.Data.Units = string(units)
	}

	switch flags.output {
	case OutputTable, OutputJSON, OutputCSV:
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or csv)", flags.output)
	}

	logCfg := cfg.Logging
	logCfg.Level = "warn"
	if flags.verbose {
		logCfg.Level = "debug"
	}
	logger := infrastructure.WithComponent(infrastructure.NewLogger(logCfg, cmd.ErrOrStderr()), "bikestats")

	dataFile, err := files.NewDiscovery("").ResolveDataFile(cfg.Data.File)
	if err != nil {
		return nil, err
	}
	if err := validation.NewFileValidator(logger, cfg.Data.MaxFileSize).ValidateDataFile(dataFile); err != nil {
		return nil, err
	}

	loader := dataprocessing.NewLoader(logger, dataprocessing.LoaderConfig{
		Units:      domain.Units(strings.ToLower(cfg.Data.Units)),
		BaseYear:   cfg.Data.BaseYear,
		Sheet:      cfg.Data.Sheet,
		DateLayout: cfg.Data.DateLayout,
	})
	scale := dataprocessing.UnitScale{Temp: cfg.Data.TempScale, Hum: cfg.Data.HumScale, Windspeed: cfg.Data.WindScale}

	session, err := services.LoadSession(cmd.Context(), loader, dataFile, scale)
	if err != nil {
		return nil, err
	}

	service := services.NewDashboardService(session, services.DashboardDefaults{
		Mode:  domain.AggregationMode(strings.ToLower(cfg.Data.HolidayMode)),
		Units: domain.Units(strings.ToLower(cfg.Data.DisplayUnits)),
	}, nil, logger)

	return &env{cfg: cfg, logger: logger, service: service, output: flags.output}, nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

func getEnv(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok {
		return nil, errors.New("dataset not loaded")
	}
	return e, nil
}

// baseQuery builds the range part of a query from the persistent flags.
func baseQuery(cmd *cobra.Command) (services.DashboardQuery, error) {
	var q services.DashboardQuery
	root := cmd.Root().PersistentFlags()

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		value, _ := root.GetString(bound.name)
		if value == "" {
			continue
		}
		day, err := time.Parse(domain.DateLayout, value)
		if err != nil {
			return q, fmt.Errorf("--%s must be a YYYY-MM-DD date, got %q", bound.name, value)
		}
		*bound.dst = &day
	}
	return q, nil
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
