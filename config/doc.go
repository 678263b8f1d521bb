// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment, in that order of precedence
// (environment wins).
//
//	var cfg AppConfig
//	if err := config.LoadConfig("authguard", &cfg); err != nil { ... }
//
// Environment variables map onto nested keys by splitting on underscores,
// so GUARD_LOGIN_PATH reaches guard.login_path and
// SUPABASE_ANON_KEY reaches supabase.anon_key.
package config
