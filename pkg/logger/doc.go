// Package logger builds the structured slog logger used across the service
// and carries request-scoped loggers through a context.Context.
package logger
