// Package config handles loading and validating the Alarm.com bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Alarm.com token, MQTT password and JWT secret should be set via
//     environment variables, not committed to the config file
//   - The config file should have restricted permissions (0600)
//   - The HTTP API refuses to start without a JWT secret of at least 32 characters
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.AlarmDotCom.BaseURL)
package config
