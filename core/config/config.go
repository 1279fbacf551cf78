package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"task-mirror/core/database"
	"task-mirror/core/logger"
	"task-mirror/core/remote"
	"task-mirror/core/server"
	"task-mirror/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Database holds configuration for the entity store.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Remote holds configuration for the remote task service.
	Remote remote.Config `mapstructure:"remote"`
	// Sync holds configuration for the sync engine.
	Sync SyncConfig `mapstructure:"sync"`
	// Server holds configuration for the local browse API.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for snapshot export (S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
}

// LoadConfig loads configuration from an optional config.yaml in path,
// the .env file and environment variables, in increasing precedence.
// Relative file locations are resolved against the data directory.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (e.g. SYNC_WORKERS -> sync.workers)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.resolvePaths(); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolvePaths anchors relative file locations in the data directory.
func (c *Config) resolvePaths() error {
	if c.Sync.DataDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to locate user cache dir: %w", err)
		}
		c.Sync.DataDir = filepath.Join(cacheDir, "task-mirror")
	}

	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.Sync.DataDir, p)
	}

	c.Sync.LockFile = anchor(c.Sync.LockFile)
	c.Sync.StateFile = anchor(c.Sync.StateFile)
	c.Sync.PrefsFile = anchor(c.Sync.PrefsFile)
	if c.Database.Driver != database.DriverMySQL && c.Database.Name != ":memory:" {
		c.Database.Name = anchor(c.Database.Name)
	}
	if c.Log.File != "" {
		c.Log.File = anchor(c.Log.File)
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
