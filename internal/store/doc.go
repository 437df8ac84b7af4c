// Package store wraps the Redis client that holds the vote counters. Every
// counter is a plain integer string keyed by its option label.
package store
