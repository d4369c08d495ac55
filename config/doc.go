// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and TUTORBOX_* environment variables. It
// covers server settings, submission execution limits, the tutor backend,
// session lifetime and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Submission timeout: %s\n", cfg.GetTimeout())
package config
