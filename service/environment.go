package service

import (
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// EnvironmentVar overrides the build-mode environment.
const EnvironmentVar = "SERVICE_ENV"

// Environment selects the source topology built by a Factory.
type Environment string

const (
	// Local reads bundled assets only.
	Local Environment = "local"
	// Cloud reads the cache or the remote endpoint, falling back to bundled assets.
	Cloud Environment = "cloud"
	// CloudOnly reads the remote endpoint and nothing else.
	CloudOnly Environment = "cloudOnly"
)

// Environments lists every known environment.
var Environments = []Environment{Local, Cloud, CloudOnly}

var ErrUnknownEnvironment = errors.New("unknown service environment")

func (e Environment) String() string {
	return string(e)
}

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	switch e {
	case Local, Cloud, CloudOnly:
		return true
	}
	return false
}

// ParseEnvironment parses s. Matching is exact apart from surrounding space.
func ParseEnvironment(s string) (Environment, error) {
	e := Environment(strings.TrimSpace(s))
	if !e.Valid() {
		return "", errors.Wrapf(ErrUnknownEnvironment, "%q", s)
	}
	return e, nil
}

// ResolveEnvironment returns the environment named by override, or
// DefaultEnvironment when override is empty or unrecognized.
func ResolveEnvironment(override string) Environment {
	if e, err := ParseEnvironment(override); err == nil {
		return e
	}
	return DefaultEnvironment
}

var currentEnvironment = sync.OnceValue(func() Environment {
	return ResolveEnvironment(os.Getenv(EnvironmentVar))
})

// CurrentEnvironment returns the process environment. SERVICE_ENV is read
// on the first call only.
func CurrentEnvironment() Environment {
	return currentEnvironment()
}
