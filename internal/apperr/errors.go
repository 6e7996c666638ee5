package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStructural marks hard schema violations (e.g. a knowledge-typed
	// document without golden paths), as opposed to soft parse failures
	// that are skipped with a warning.
	ErrStructural = errors.New("structural validation failed")
)
