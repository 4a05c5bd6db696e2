package exporter

import (
	"fmt"
	"io"
	"log/slog"
)

// Exporter writes summary tables in any supported format.
type Exporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// New creates an exporter.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		csv:    NewCSVWriter(logger),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Export writes tables to w. CSV holds exactly one table; XLSX holds one
// sheet per table.
func (e *Exporter) Export(w io.Writer, format Format, tables ...Table) error {
	switch format {
	case FormatCSV:
		if len(tables) != 1 {
			return fmt.Errorf("%w: got %d", ErrMultipleTables, len(tables))
		}
		return e.csv.Write(w, tables[0], WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		return WriteXLSX(w, tables...)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
