package datasource

import "context"

// ContentSource produces the raw bytes of one resource from one origin.
// Fetch blocks until the bytes are available or the attempt fails, and
// returns a *Error on failure. Cancelling ctx aborts in-flight network I/O.
type ContentSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Func adapts a function to ContentSource.
type Func func(ctx context.Context) ([]byte, error)

func (f Func) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// canceled reports a context that ended before a leg started.
func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Unknown(err)
	}
	return nil
}
