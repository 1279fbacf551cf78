package database

const (
	// DriverSQLite selects the embedded pure-Go SQLite store.
	DriverSQLite = "sqlite"
	// DriverMySQL selects a MySQL server, for mirrors kept on a shared host.
	DriverMySQL = "mysql"
)

// Config holds configuration for the database connection.
type Config struct {
	// Driver is the database driver (sqlite, mysql).
	Driver string `mapstructure:"driver" default:"sqlite"`
	// Name is the SQLite file path (or ":memory:"), or the MySQL database name.
	// Relative SQLite paths are resolved against the sync data directory.
	Name string `mapstructure:"name" default:"mirror.db"`
	// Host is the database host (mysql only).
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port (mysql only).
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user (mysql only).
	User string `mapstructure:"user" default:"root"`
	// Password is the database password (mysql only).
	Password string `mapstructure:"password" default:""`
	// TimeoutSeconds bounds connection setup and I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
