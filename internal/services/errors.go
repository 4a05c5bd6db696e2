package services

import "errors"

// ErrNoData is returned when a session is created without a table.
var ErrNoData = errors.New("no data loaded")
