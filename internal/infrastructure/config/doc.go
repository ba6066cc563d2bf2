// Package config handles loading and validating the DTU bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with DTUBRIDGE_* environment variables
//   - Validation of required fields and cross-field rules
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token, JWT secret) should be set
// via environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.Namespace)
package config
