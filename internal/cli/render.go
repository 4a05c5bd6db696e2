package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"bikeshare/internal/exporter"
)

func render(w io.Writer, t exporter.Table, output string) error {
	switch output {
	case OutputJSON:
		return renderJSON(w, t)
	case OutputCSV:
		return exporter.NewCSVWriter(nil).Write(w, t, exporter.WriteOptions{})
	default:
		return renderTable(w, t)
	}
}

func renderTable(w io.Writer, t exporter.Table) error {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(t.Name)

	header := make(table.Row, len(t.Headers))
	configs := make([]table.ColumnConfig, 0, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
		if isNumericColumn(t, i) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range t.Rows {
		row := make(table.Row, len(cells))
		for i, cell := range cells {
			row[i] = formatValue(cell)
		}
		tw.AppendRow(row)
	}

	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", t.Len())
	return nil
}

// renderJSON writes the table as an array of objects keyed by header.
func renderJSON(w io.Writer, t exporter.Table) error {
	records := make([]map[string]interface{}, 0, t.Len())
	for _, cells := range t.Rows {
		record := make(map[string]interface{}, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(cells) {
				record[h] = cells[i]
			}
		}
		records = append(records, record)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func isNumericColumn(t exporter.Table, col int) bool {
	for _, cells := range t.Rows {
		if col >= len(cells) {
			continue
		}
		switch cells[col].(type) {
		case int, int64, float64:
		default:
			return false
		}
	}
	return true
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
