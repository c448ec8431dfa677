// Package config handles loading and validating Beestat bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with BEESTAT_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Beestat API key, MQTT password, InfluxDB token and JWT secret
//     should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Never log the API key; use RedactKey for diagnostics
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.GetUpdateInterval())
package config
