package config

import (
	"time"

	"github.com/kbukum/dikit/validation"
)

// Callback modes accepted by DomainConfig.CallbackMode.
const (
	CallbackModeBlocking    = "blocking"
	CallbackModeCooperative = "cooperative"
	CallbackModeAll         = "all"
)

// Defaults applied by RuntimeConfig.ApplyDefaults.
const (
	DefaultSampleRate     = 1.0
	DefaultMetricInterval = 15 * time.Second
	DefaultScanTimeout    = 30 * time.Second
)

// RuntimeConfig is the full configuration of a dikit host.
type RuntimeConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Tracker       TrackerConfig       `yaml:"tracker" mapstructure:"tracker"`
	Domain        DomainConfig        `yaml:"domain" mapstructure:"domain"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// TrackerConfig configures the resource tracker.
type TrackerConfig struct {
	// SweepInterval enables the background sweeper when positive.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"gte=0"`
	// CheckOnShutdown runs a leak check before the tracker stops.
	CheckOnShutdown bool `yaml:"check_on_shutdown" mapstructure:"check_on_shutdown"`
	// FailOnLeak turns leaks found on shutdown into a stop error.
	FailOnLeak bool `yaml:"fail_on_leak" mapstructure:"fail_on_leak"`
}

// DomainConfig configures the domain's unit scanning.
type DomainConfig struct {
	CallbackMode string        `yaml:"callback_mode" mapstructure:"callback_mode" validate:"omitempty,oneof=blocking cooperative all"`
	ScanTimeout  time.Duration `yaml:"scan_timeout" mapstructure:"scan_timeout" validate:"gte=0"`
}

// ObservabilityConfig configures OTLP export of traces and metrics.
type ObservabilityConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// GetRuntimeConfig returns the RuntimeConfig. When embedded in a larger
// config struct, this method is promoted.
func (c *RuntimeConfig) GetRuntimeConfig() *RuntimeConfig {
	return c
}

// ApplyDefaults applies defaults to every section.
func (c *RuntimeConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Domain.CallbackMode == "" {
		c.Domain.CallbackMode = CallbackModeAll
	}
	if c.Domain.ScanTimeout == 0 {
		c.Domain.ScanTimeout = DefaultScanTimeout
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = DefaultSampleRate
	}
	if c.Observability.MetricInterval == 0 {
		c.Observability.MetricInterval = DefaultMetricInterval
	}
}

// Validate runs struct tag validation, then the cross-field rules.
func (c *RuntimeConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}

	v := c.ServiceConfig.validator()
	v.Custom(!c.Observability.Enabled || c.Observability.Endpoint != "",
		"observability.endpoint", "is required when observability is enabled")
	v.Custom(!c.Tracker.FailOnLeak || c.Tracker.CheckOnShutdown,
		"tracker.fail_on_leak", "requires tracker.check_on_shutdown")
	return v.Err()
}
