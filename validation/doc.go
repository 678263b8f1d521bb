// Package validation checks configuration structs with go-playground
// validator tags and reports failures as an *errors.AppError whose details
// list each offending field by its config key.
//
//	type Config struct {
//	    LoginPath string `mapstructure:"login_path" validate:"required,urlpath"`
//	}
//	err := validation.Validate(cfg)
//
// Besides the built-in tags, "urlpath" requires an absolute URL path
// (leading slash, no scheme or host).
package validation
