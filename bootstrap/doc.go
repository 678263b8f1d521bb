// Package bootstrap runs an authguard binary through a fixed lifecycle:
//
//	NewApp      apply defaults, validate, initialize the logger
//	OnStart     hooks that need nothing but config and logger
//	OnConfigure wire backends, the guard and the HTTP server
//	ReadyCheck  query registered health checkers (warn only)
//	OnReady     start accepting traffic
//	OnStop      graceful shutdown, within the graceful timeout
//
// Run blocks until SIGINT, SIGTERM or context cancellation. RunTask runs a
// finite task through the same lifecycle.
package bootstrap
