// Package charts renders dashboard summary tables as PNG images with
// gonum/plot: bar charts for the holiday and weather views, line charts
// for yearly and monthly trends, and scatter plots for the measurement
// options of the condition selector.
package charts
