// Package exporter flattens dashboard summary views into Tables and
// writes them as CSV (with a UTF-8 BOM for Excel) or as XLSX workbooks.
//
// Example usage:
//
//	t := exporter.MonthlyTable(rows)
//	err := exporter.New(logger).Export(w, exporter.FormatXLSX, t)
package exporter
