// Package transit is the public entry point of the sdk. It wires the static
// schedule store, the realtime feed client, the arrival correlator, the payload
// cache and the subscription scheduler behind one service type.
package transit

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds everything needed to build a Service. The zero values of the
// optional fields are filled in from the defaults below.
type Config struct {
	// StaticDBPath locates the sqlite database holding the imported gtfs schedule
	StaticDBPath string `validate:"required"`

	// Realtime feed endpoints. Any may be empty when the agency does not
	// publish that feed.
	VehiclePositionsURL string `validate:"omitempty,url"`
	TripUpdatesURL      string `validate:"omitempty,url"`
	AlertsURL           string `validate:"omitempty,url"`

	// CacheDir enables the on-disk cache tier when set
	CacheDir string

	// Timezone is the agency's operating timezone
	Timezone string

	RequestTimeout time.Duration `validate:"min=0"`
	PollInterval   time.Duration `validate:"min=0"`
	ErrorBackoff   time.Duration `validate:"min=0"`

	// Cache lifetimes per feed kind
	VehiclePositionsTTL time.Duration `validate:"min=0"`
	TripUpdatesTTL      time.Duration `validate:"min=0"`
	AlertsTTL           time.Duration `validate:"min=0"`

	MaxMemoryEntries int `validate:"min=0"`
	MaxDiskFiles     int `validate:"min=0"`
}

const (
	defaultTimezone            = "Europe/Madrid"
	defaultRequestTimeout      = 15 * time.Second
	defaultPollInterval        = 30 * time.Second
	defaultErrorBackoff        = 5 * time.Second
	defaultVehiclePositionsTTL = 30 * time.Second
	defaultTripUpdatesTTL      = 60 * time.Second
	defaultAlertsTTL           = 5 * time.Minute
	defaultMaxMemoryEntries    = 64
	defaultMaxDiskFiles        = 128
)

// applyDefaults fills in the zero valued optional fields
func (cfg *Config) applyDefaults() {
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = defaultErrorBackoff
	}
	if cfg.VehiclePositionsTTL == 0 {
		cfg.VehiclePositionsTTL = defaultVehiclePositionsTTL
	}
	if cfg.TripUpdatesTTL == 0 {
		cfg.TripUpdatesTTL = defaultTripUpdatesTTL
	}
	if cfg.AlertsTTL == 0 {
		cfg.AlertsTTL = defaultAlertsTTL
	}
	if cfg.MaxMemoryEntries == 0 {
		cfg.MaxMemoryEntries = defaultMaxMemoryEntries
	}
	if cfg.MaxDiskFiles == 0 {
		cfg.MaxDiskFiles = defaultMaxDiskFiles
	}
}

// validate checks the config after defaults were applied
func (cfg Config) validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
