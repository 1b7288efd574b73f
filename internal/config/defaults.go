package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultDatabasePath = "$HOME/.local/share/okane/okane.db"
	DefaultCurrency     = "JPY"
	DefaultUserID       = "local"
)

// SetDefaults registers the application defaults with viper. Values can
// be overridden by the config file or OKANE_* environment variables.
func SetDefaults() {
	viper.SetDefault("database.path", DefaultDatabasePath)
	viper.SetDefault("currency.default", DefaultCurrency)
	viper.SetDefault("user.id", DefaultUserID)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// DatabasePath returns the configured database path with ~ and
// environment variables expanded.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}

// Currency returns the configured default currency code.
func Currency() string {
	return viper.GetString("currency.default")
}

// UserID returns the configured owner id for this installation. okane
// is a single-user tool; records are still stamped with an owner so the
// store model matches multi-user deployments.
func UserID() string {
	return viper.GetString("user.id")
}
