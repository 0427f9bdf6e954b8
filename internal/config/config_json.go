package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type fileJSON struct {
	Address         *string         `json:"address"`
	ApplicationID   *string         `json:"application_id"`
	UploadEnabled   *bool           `json:"upload_enabled"`
	StoreInterval   *string         `json:"store_interval"` // "1s"
	StoreFile       *string         `json:"store_file"`
	Restore         *bool           `json:"restore"`
	DatabaseDSN     *string         `json:"database_dsn"`
	LogLevel        *string         `json:"log_level"`
	MetricsDisabled map[string]bool `json:"metrics_disabled"`
}

func loadJSON(path string) (*fileJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c fileJSON
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (js *fileJSON) apply(cfg *Config) error {
	var errs []error

	if js.Address != nil {
		cfg.Addr = *js.Address
	}
	if js.ApplicationID != nil {
		cfg.ApplicationID = *js.ApplicationID
	}
	if js.UploadEnabled != nil {
		cfg.UploadEnabled = *js.UploadEnabled
	}
	if js.StoreInterval != nil {
		sec, err := parseDurationSeconds(*js.StoreInterval)
		if err == nil {
			cfg.StoreInterval = sec
		} else {
			errs = append(errs, fmt.Errorf("invalid store_interval: %w", err))
		}
	}
	if js.StoreFile != nil {
		cfg.FileStoragePath = *js.StoreFile
	}
	if js.Restore != nil {
		cfg.Restore = *js.Restore
	}
	if js.DatabaseDSN != nil {
		cfg.DatabaseDsn = *js.DatabaseDSN
	}
	if js.LogLevel != nil {
		cfg.LogLevel = *js.LogLevel
	}
	if len(js.MetricsDisabled) > 0 {
		cfg.MetricsDisabled = js.MetricsDisabled
	}

	return errors.Join(errs...)
}

func parseDurationSeconds(s string) (int, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}
