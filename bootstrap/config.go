package bootstrap

import (
	"github.com/kbukum/dikit/config"
)

// Config constrains App's config type. Embedding config.RuntimeConfig by
// value, with mapstructure squash, promotes every method:
//
//	type GreeterConfig struct {
//	    config.RuntimeConfig `mapstructure:",squash"`
//	    Greeting string `mapstructure:"greeting"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
//
// A type that overrides ApplyDefaults or Validate should call the embedded
// RuntimeConfig's version first.
type Config interface {
	GetRuntimeConfig() *config.RuntimeConfig
	ApplyDefaults()
	Validate() error
}
