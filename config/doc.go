// Package config resolves the application configuration from a YAML file,
// environment variables and built-in defaults. Environment values take
// precedence over the file for the vote labels and title; store and secret
// settings come from the environment only.
package config
