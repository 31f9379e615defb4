// Package config loads and validates the gateway configuration.
//
// This package manages:
//   - Loading configuration from a YAML file
//   - Overriding selected keys with APIWS_* environment variables
//   - Validation of required fields, project declarations and auth mode
//
// Security Considerations:
//   - Secrets (admin key, JWT secret, broker and Redis passwords) should be
//     supplied through the environment rather than the file
//   - Project keys are credentials; keep the file at 0600
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Security.Mode)
package config
