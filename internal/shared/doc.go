// Package shared holds helpers used across the bikeshare packages that do
// not belong to a single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting
// on log output and fixture builders for rental datasets (in-memory
// records and CSV files written to a test's temp dir).
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteRentalCSV(t, testutil.JanuaryFixture())
//	    ...
//	    assert.True(t, logs.ContainsMessage("table loaded"))
//	}
package shared
