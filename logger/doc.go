// Package logger provides structured logging for the dikit runtime using
// zerolog.
//
// It supports JSON and console output, level configuration, and named,
// component-scoped loggers. Fields are passed as maps, usually built with
// Fields:
//
//	log := logger.Get("di")
//	log.Debug("resolution added", logger.Fields("type", t.String(), "selector", sel))
package logger
