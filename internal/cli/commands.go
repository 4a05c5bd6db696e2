package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bikeshare/internal/charts"
	"bikeshare/internal/exporter"
	"bikeshare/internal/services"
	"bikeshare/internal/validation"
	"bikeshare/pkg/contracts/domain"
)

// queryOption adds a flag to a summary command and folds it into the query.
type queryOption struct {
	register func(cmd *cobra.Command)
	apply    func(cmd *cobra.Command, q *services.DashboardQuery) error
}

var withMode = queryOption{
	register: func(cmd *cobra.Command) {
		cmd.Flags().StringP("mode", "m", "", "aggregation mode (sum|mean)")
	},
	apply: func(cmd *cobra.Command, q *services.DashboardQuery) error {
		value, _ := cmd.Flags().GetString("mode")
		if value == "" {
			return nil
		}
		mode, err := domain.ParseAggregationMode(value)
		q.Mode = mode
		return err
	},
}

var withYear = queryOption{
	register: func(cmd *cobra.Command) {
		cmd.Flags().IntP("year", "y", 0, "restrict the rollup to one year")
	},
	apply: func(cmd *cobra.Command, q *services.DashboardQuery) error {
		q.Year, _ = cmd.Flags().GetInt("year")
		return nil
	},
}

var withDisplayUnits = queryOption{
	register: func(cmd *cobra.Command) {
		cmd.Flags().String("display", "", "units to report measurements in (normalized|physical)")
	},
	apply: func(cmd *cobra.Command, q *services.DashboardQuery) error {
		value, _ := cmd.Flags().GetString("display")
		if value == "" {
			return nil
		}
		units, err := domain.ParseUnits(value)
		q.Units = units
		return err
	},
}

var withOption = queryOption{
	register: func(cmd *cobra.Command) {
		cmd.Flags().String("option", "", "condition to plot against (Weather|Temperature|Hum|Windspeed)")
	},
	apply: func(cmd *cobra.Command, q *services.DashboardQuery) error {
		value, _ := cmd.Flags().GetString("option")
		if value == "" {
			return nil
		}
		option, err := domain.ParseConditionOption(value)
		q.Option = option
		return err
	},
}

func buildQuery(cmd *cobra.Command, options []queryOption) (services.DashboardQuery, error) {
	q, err := baseQuery(cmd)
	if err != nil {
		return q, err
	}
	for _, opt := range options {
		if err := opt.apply(cmd, &q); err != nil {
			return q, err
		}
	}
	return q, nil
}

// newSummaryCommand prints one summary table.
func newSummaryCommand(table, short string, options ...queryOption) *cobra.Command {
	cmd := &cobra.Command{
		Use:   table,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := getEnv(cmd)
			if err != nil {
				return err
			}
			q, err := buildQuery(cmd, options)
			if err != nil {
				return err
			}
			t, err := e.service.SummaryTable(cmd.Context(), table, q)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), t, e.output)
		},
	}
	for _, opt := range options {
		opt.register(cmd)
	}
	return cmd
}

func newRangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "range",
		Short: "Show the date extent of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := getEnv(cmd)
			if err != nil {
				return err
			}
			bounds := e.service.DateBounds(cmd.Context())
			t := exporter.Table{
				Name:    "range",
				Headers: []string{"min", "max", "rows"},
				Rows:    [][]interface{}{{bounds.Min, bounds.Max, bounds.Rows}},
			}
			return render(cmd.OutOrStdout(), t, e.output)
		},
	}
}

func newExportCommand() *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:       "export <table>...",
		Short:     "Write summary tables to files",
		Long:      "Write summary tables to files. With --format xlsx every table becomes one sheet of a single workbook.",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: exporter.TableNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := getEnv(cmd)
			if err != nil {
				return err
			}
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			q, err := baseQuery(cmd)
			if err != nil {
				return err
			}
			if err := validation.NewFileValidator(e.logger, 0).ValidateOutputDirectory(outDir); err != nil {
				return err
			}

			tables := make([]exporter.Table, 0, len(args))
			for _, name := range args {
				t, err := e.service.SummaryTable(cmd.Context(), name, q)
				if err != nil {
					return err
				}
				tables = append(tables, t)
			}

			ex := exporter.New(e.logger)
			if f == exporter.FormatXLSX {
				path := filepath.Join(outDir, f.Filename(strings.Join(args, "_")))
				if err := writeFile(path, func(file *os.File) error { return ex.Export(file, f, tables...) }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			for _, t := range tables {
				path := filepath.Join(outDir, f.Filename(t.Name))
				if err := writeFile(path, func(file *os.File) error { return ex.Export(file, f, t) }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(exporter.FormatCSV), "file format (csv|xlsx)")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func newChartCommand() *cobra.Command {
	var (
		outPath string
		option  string
	)

	kinds := make([]string, 0, len(charts.Kinds()))
	for _, k := range charts.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       "chart <kind>",
		Short:     "Render a dashboard chart as PNG",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := getEnv(cmd)
			if err != nil {
				return err
			}
			kind, err := charts.ParseKind(args[0])
			if err != nil {
				return err
			}
			q, err := baseQuery(cmd)
			if err != nil {
				return err
			}
			if option != "" {
				if q.Option, err = domain.ParseConditionOption(option); err != nil {
					return err
				}
			}

			png, err := e.service.RenderChart(cmd.Context(), kind, q)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = string(kind) + ".png"
			}
			if err := validation.NewFileValidator(e.logger, 0).ValidateOutputDirectory(filepath.Dir(outPath)); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output file (default <kind>.png)")
	cmd.Flags().StringVar(&option, "option", "", "condition for the condition chart")
	return cmd
}

func writeFile(path string, write func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
