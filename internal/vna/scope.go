package vna

import (
	"context"
	"errors"
	"fmt"
)

// WithSession connects to the instrument at address, runs fn and closes the
// session on every exit path, including panics in fn. A close failure is
// joined with the error returned by fn.
func WithSession(ctx context.Context, address string, fn func(context.Context, *Session) error, options ...func(*Session)) (err error) {
	s := NewSession(address, options...)

	defer func() {
		if cErr := s.Close(); cErr != nil {
			err = errors.Join(err, fmt.Errorf("closing session: %w", cErr))
		}
	}()

	if err = s.Connect(ctx); err != nil {
		return err
	}

	return fn(ctx, s)
}
