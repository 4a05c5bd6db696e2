// Package app wires the dashboard server together.
//
// NewApplication loads configuration, validates and reads the rental
// dataset into a Session, initializes OpenTelemetry and builds the chi
// router. The dataset is loaded exactly once; every request reads the same
// immutable base table.
//
// Middleware runs in this order:
//
//	RequestID → RealIP → OTel → StructuredLogger → Recoverer →
//	SecureHeaders → CORS → RateLimiter → Timeout (API routes only)
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down within
// the configured shutdown timeout. Initialization errors are returned to
// the caller; the package never calls os.Exit.
package app
