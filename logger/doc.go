// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped by service and component and take fields as plain maps,
// so call sites read the same whether they log a guard decision or a backend
// failure:
//
//	log := logger.NewDefault("authguard").WithComponent("guard")
//	log.Warn("Session probe failed", logger.ErrorFields("probe", err))
package logger
