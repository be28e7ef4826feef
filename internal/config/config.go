// Package config resolves insertdb settings from defaults, an optional YAML
// file, INSERTDB_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. INSERTDB_DATABASE.
const EnvPrefix = "INSERTDB"

// Keys.
const (
	KeyDatabase    = "database"
	KeyBusyTimeout = "busy_timeout"
	KeyLogLevel    = "log_level"
)

const (
	appName        = "insertdb"
	dbFileName     = "insertions.sqlite3"
	configFileName = "config"
)

// Config is the resolved configuration.
type Config struct {
	Database    string        `mapstructure:"database"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	LogLevel    string        `mapstructure:"log_level"`
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	return lvl, nil
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%s must not be empty", KeyDatabase)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%s must not be negative, got %s", KeyBusyTimeout, c.BusyTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Loader wraps a private viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with defaults and environment lookup installed.
func NewLoader() *Loader {
	v := viper.New()
	v.SetDefault(KeyDatabase, DefaultDatabasePath())
	v.SetDefault(KeyBusyTimeout, 5*time.Second)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlag makes flag name in fs override key when it is set explicitly.
func (l *Loader) BindFlag(key string, fs *pflag.FlagSet, name string) error {
	f := fs.Lookup(name)
	if f == nil {
		return fmt.Errorf("bind %s: no flag --%s", key, name)
	}
	return l.v.BindPFlag(key, f)
}

// Load reads file, or the default config file when file is empty, and
// returns the merged configuration. A missing default file is not an error;
// a missing explicit file is.
func (l *Loader) Load(file string) (Config, error) {
	if file != "" {
		l.v.SetConfigFile(file)
	} else {
		l.v.SetConfigName(configFileName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(DefaultConfigDir())
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FileUsed returns the config file read by Load, or "".
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// DefaultDatabasePath is $XDG_STATE_HOME/insertdb/insertions.sqlite3,
// falling back to ~/.local/state.
func DefaultDatabasePath() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", ".local", "state"), appName, dbFileName)
}

// DefaultConfigDir is $XDG_CONFIG_HOME/insertdb, falling back to ~/.config.
func DefaultConfigDir() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName)
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(fallback...)
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}
