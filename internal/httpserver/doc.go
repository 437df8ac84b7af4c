// Package httpserver runs the HTTP listener with bounded timeouts and a
// graceful shutdown.
package httpserver
