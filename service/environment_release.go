//go:build release

package service

// DefaultEnvironment is used when SERVICE_ENV is unset or unrecognized.
const DefaultEnvironment = Cloud
