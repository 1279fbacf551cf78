// Package config provides configuration management for the mirror.
//
// It utilizes Viper for loading configuration from an optional config.yaml,
// a .env file and environment variables. Defaults come from the `default`
// struct tags of each section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Database: entity store driver and location
//   - Log: level, format and optional rotating log file
//   - Remote: task service URL and credentials
//   - Sync: data directory, lock, workers, batch size, staleness
//   - Server: local browse API settings
//   - Storage: S3/MinIO settings for snapshot export
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.DataDir)
package config
