// Package healthcheck watches the vote store after startup. It pings the
// store on an interval, logs up/down transitions and serves the result on a
// readiness endpoint.
package healthcheck
