// Package logging builds the service's zap loggers.
//
// Production mode writes JSON for log shippers; development mode writes
// colored console lines at debug level. Components receive a named child
// logger so every line carries its origin:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	store := terminal.NewStore(provider, logger.Component("terminal"), opts)
//
// An unparseable level falls back to the mode's default rather than failing
// startup.
package logging
