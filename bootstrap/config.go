package bootstrap

import (
	"github.com/kbukum/authguard/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig gets GetServiceConfig through promotion and
// usually overrides ApplyDefaults and Validate to cover its own sections.
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Guard guard.Config   `yaml:"guard" mapstructure:"guard"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
