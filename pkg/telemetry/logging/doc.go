// Package logging provides structured logging for Sentinel built on log/slog.
//
// The package wraps handler construction (level and format parsing, JSON or
// text output) so that the rest of the codebase only deals with *slog.Logger.
// Components obtain scoped loggers via Component, which attaches a
// "component" attribute used to filter logs per subsystem:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	ledgerLog := logging.Component(logger, "guard.ledger")
package logging
