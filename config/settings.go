package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings is the read-only view of loaded configuration that hosts seed
// into the domain container. Keys are case-insensitive dotted paths.
//
// Settings must not be mutated after it is shared; concurrent reads are safe.
type Settings struct {
	v *viper.Viper
}

// NewSettings wraps a viper instance. A nil instance yields empty settings.
func NewSettings(v *viper.Viper) *Settings {
	if v == nil {
		v = viper.New()
	}
	return &Settings{v: v}
}

// NewSettingsFromMap builds settings from a nested map.
func NewSettingsFromMap(values map[string]any) *Settings {
	v := viper.New()
	if len(values) > 0 {
		// MergeConfigMap only fails on a nil map.
		_ = v.MergeConfigMap(values)
	}
	return &Settings{v: v}
}

// Get returns the raw value for key, or nil.
func (s *Settings) Get(key string) any { return s.v.Get(key) }

// GetString returns the value for key as a string.
func (s *Settings) GetString(key string) string { return s.v.GetString(key) }

// GetBool returns the value for key as a bool.
func (s *Settings) GetBool(key string) bool { return s.v.GetBool(key) }

// GetInt returns the value for key as an int.
func (s *Settings) GetInt(key string) int { return s.v.GetInt(key) }

// GetFloat64 returns the value for key as a float64.
func (s *Settings) GetFloat64(key string) float64 { return s.v.GetFloat64(key) }

// GetDuration parses the value for key as a time.Duration ("30s", "1m").
func (s *Settings) GetDuration(key string) time.Duration { return s.v.GetDuration(key) }

// GetStringSlice returns the value for key as a string slice.
func (s *Settings) GetStringSlice(key string) []string { return s.v.GetStringSlice(key) }

// IsSet reports whether key has a value.
func (s *Settings) IsSet(key string) bool { return s.v.IsSet(key) }

// AllKeys returns every leaf key.
func (s *Settings) AllKeys() []string { return s.v.AllKeys() }

// Sub returns the subtree at key, or nil when key is not a section.
func (s *Settings) Sub(key string) *Settings {
	sub := s.v.Sub(key)
	if sub == nil {
		return nil
	}
	return &Settings{v: sub}
}

// UnmarshalKey decodes the subtree at key into out.
func (s *Settings) UnmarshalKey(key string, out any) error {
	return s.v.UnmarshalKey(key, out)
}

// Unmarshal decodes all settings into out.
func (s *Settings) Unmarshal(out any) error {
	return s.v.Unmarshal(out)
}
