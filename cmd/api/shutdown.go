package main

import (
	"io"

	"go.uber.org/multierr"
)

// closeAll closes resources in reverse order of opening and returns every
// failure.
func closeAll(closers []io.Closer) error {
	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i].Close())
	}
	return errs
}
