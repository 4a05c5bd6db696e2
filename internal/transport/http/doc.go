// Package http implements the HTTP handlers of the bike-sharing dashboard.
//
// Handlers stay thin. They parse and validate the query string, delegate to
// the service layer and format the result:
//
//	GET /api/dashboard/holiday?start=2011-01-01&end=2011-01-31&mode=sum
//	{"status":"success","data":[...],"count":2}
//
// Every failure is rendered as an RFC 7807 problem by the shared
// errors.ErrorHandler, so a malformed date answers 400 with a
// /errors/validation type and an inverted range answers 400 with
// /errors/dashboard/invalid-range.
//
// Binary views (exports and charts) bypass the JSON envelope and write
// their payload with a matching Content-Type.
package http
