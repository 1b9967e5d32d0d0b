// Package config loads and validates dikit host configuration.
//
// It uses Viper to load configuration from files and environment variables.
// A .env file, when found, is loaded through godotenv before binding.
//
// # Usage
//
//	var cfg config.RuntimeConfig
//	settings, err := config.Load("dikit", &cfg)
//	cfg.ApplyDefaults()
//	err = cfg.Validate()
//
// Environment variables override file values using underscore-separated
// paths (e.g., TRACKER_SWEEP_INTERVAL). The returned Settings is seeded into
// the domain container so registration callbacks can read host settings.
package config
