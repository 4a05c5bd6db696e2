// Package dataprocessing turns the bike-sharing rental file into an
// immutable in-memory Table and derives the dashboard's summary views
// from it.
//
// # Components
//
//  1. Loader: reads CSV or XLSX input, maps header aliases, parses dates
//     and weather categories, and validates every record.
//  2. Table: a date-sorted, read-only sequence of records tagged with the
//     unit system of its measurement columns.
//  3. Unit converter: rescales temp, hum and windspeed from [0,1] to
//     physical units exactly once per table.
//  4. Filter stage: inclusive date-range restriction and partition.
//  5. Aggregators: weather effect, holiday effect (sum or mean), yearly
//     trend, monthly rollup and temperature effect.
//
// # Data Flow
//
//	File → Loader → Table → FilterByDateRange → Aggregator → summary rows
//
// Every aggregator is a pure function of its input table. An empty table
// yields an empty result, never an error.
//
// # Error Handling
//
// Load faults are returned as *errors.AppError values of type PARSING or
// SCHEMA carrying the row and column involved. Range and argument faults
// wrap the sentinels declared in errors.go so callers can use errors.Is.
package dataprocessing
