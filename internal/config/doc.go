// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//	1. Defaults from Default()
//	2. A YAML file (BIKESHARE_CONFIG, or config.yaml / configs/config.yaml)
//	3. Environment variables prefixed with BIKESHARE_
//
// # Environment Variables
//
// Nested sections map to underscore-joined names:
//
//	BIKESHARE_SERVER_PORT=8080
//	BIKESHARE_DATA_FILE=data/all_data.csv
//	BIKESHARE_DATA_HOLIDAY_MODE=mean
//	BIKESHARE_LOGGING_LEVEL=debug
//	BIKESHARE_SECURITY_ALLOWED_ORIGINS=http://localhost:3000,http://localhost:8080
//
// Load validates the merged result and returns a *Config ready for wiring.
package config
