// Package config provides configuration management for calendart.
//
// It uses Viper to merge struct-tag defaults, an optional YAML file, a .env
// file and CALENDART_* environment variables. Command-line flags are applied
// on top by the CLI.
//
// # Configuration Structure
//
//   - endpoint: Calendar API base URL
//   - calendars: calendar identifiers synchronized by "calendart sync"
//   - concurrency, timeout_seconds: fan-out bound and per-command timeout
//   - auth: access_token, token_file or service_account_file
//   - log: level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Calendars)
package config
