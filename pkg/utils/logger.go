package utils

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Debug selects the development
// config (console encoder, debug level) for interactive runs; otherwise the
// production JSON config is used so ingest and classification runs can be
// filtered by field.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
