// Package validation validates runtime configuration.
//
// Struct tag validation uses go-playground/validator. Field names in error
// messages come from mapstructure tags, so they match configuration keys.
//
//	type TrackerConfig struct {
//	    SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules that tags cannot express use the programmatic Validator:
//
//	v := validation.New()
//	v.Custom(!cfg.Enabled || cfg.Endpoint != "", "endpoint", "is required when enabled")
//	err := v.Err()
package validation
