// Package config provides application configuration structures and helpers.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Config holds the settings of the telemetry daemon.
type Config struct {
	Addr            string          // Debug HTTP server address
	ApplicationID   string          // Application id reported with pings
	UploadEnabled   bool            // Initial upload-enabled state
	StoreInterval   int             // Interval for storing metrics to file (in seconds)
	FileStoragePath string          // Path to the file for metric storage
	Restore         bool            // Whether to restore metrics from file on startup
	DatabaseDsn     string          // Data Source Name for PostgreSQL
	LogLevel        string          // zap level name
	MetricsDisabled map[string]bool // Remote switches: full metric name -> disabled
	Logger          *zap.SugaredLogger
}

func defaults() *Config {
	return &Config{
		Addr:            "localhost:8080",
		ApplicationID:   "glean-metrics",
		UploadEnabled:   true,
		StoreInterval:   300,
		FileStoragePath: "./tmp/telemetry-db.json",
		Restore:         true,
		LogLevel:        "info",
	}
}

// NewConfig creates a Config from defaults, command-line flags, the optional
// JSON file and environment variables, then builds its logger.
// Precedence, lowest first: defaults, JSON file, flags, environment.
// Bad values are logged and never stop the process.
func NewConfig() *Config {
	return newConfig(flag.NewFlagSet(os.Args[0], flag.ContinueOnError), os.Args[1:])
}

func newConfig(fs *flag.FlagSet, args []string) *Config {
	cfg, warn := parse(fs, args)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		warn = errors.Join(warn, err)
		logger = zap.Must(zap.NewProduction())
	}
	cfg.Logger = logger.Sugar()

	if warn != nil {
		cfg.Logger.Warnw("configuration problems, falling back to defaults", "error", warn)
	}
	return cfg
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{"stdout"}
	return logCfg.Build()
}

func parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := defaults()

	addr, app, file, dsn, level, conf := stringFlag(), stringFlag(), stringFlag(), stringFlag(), stringFlag(), stringFlag()
	storeInterval := intFlag()
	upload, restore := boolFlag(), boolFlag()

	fs.Var(addr, "a", "debug HTTP server address")
	fs.Var(app, "app", "application id")
	fs.Var(upload, "u", "upload enabled")
	fs.Var(storeInterval, "i", "store interval (seconds)")
	fs.Var(file, "f", "path to metrics file")
	fs.Var(restore, "r", "restore from file")
	fs.Var(dsn, "d", "DB connection string")
	fs.Var(level, "log-level", "log level")
	fs.Var(conf, "c", "Path to JSON config file")
	fs.Var(conf, "config", "Path to JSON config file (alias)")

	var warn error
	if err := fs.Parse(args); err != nil {
		warn = errors.Join(warn, fmt.Errorf("parse flags: %w", err))
	}

	confPath := conf.v
	if confPath == "" {
		confPath = os.Getenv("CONFIG")
	}
	if confPath != "" {
		js, err := loadJSON(confPath)
		if err != nil {
			warn = errors.Join(warn, fmt.Errorf("load config file: %w", err))
		} else {
			warn = errors.Join(warn, js.apply(cfg))
		}
	}

	addr.apply(&cfg.Addr)
	app.apply(&cfg.ApplicationID)
	upload.apply(&cfg.UploadEnabled)
	storeInterval.apply(&cfg.StoreInterval)
	file.apply(&cfg.FileStoragePath)
	restore.apply(&cfg.Restore)
	dsn.apply(&cfg.DatabaseDsn)
	level.apply(&cfg.LogLevel)

	warn = errors.Join(warn, readEnvironment(cfg))
	return cfg, warn
}

func readEnvironment(cfg *Config) error {
	var errs []error

	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.Addr = addr
	}

	if app := os.Getenv("APPLICATION_ID"); app != "" {
		cfg.ApplicationID = app
	}

	if v := os.Getenv("UPLOAD_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.UploadEnabled = b
		} else {
			errs = append(errs, fmt.Errorf("invalid UPLOAD_ENABLED env var: %w", err))
		}
	}

	if v := os.Getenv("STORE_INTERVAL"); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			cfg.StoreInterval = i
		} else {
			errs = append(errs, fmt.Errorf("invalid STORE_INTERVAL env var: %w", err))
		}
	}

	if fsp := os.Getenv("FILE_STORAGE_PATH"); fsp != "" {
		cfg.FileStoragePath = fsp
	}

	if v := os.Getenv("RESTORE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.Restore = b
		} else {
			errs = append(errs, fmt.Errorf("invalid RESTORE env var: %w", err))
		}
	}

	if dbDsn := os.Getenv("DATABASE_DSN"); dbDsn != "" {
		cfg.DatabaseDsn = dbDsn
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	return errors.Join(errs...)
}
