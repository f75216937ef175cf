package engine

import (
	"errors"
	"fmt"
)

// UsageError reports a programming mistake: an illegal clause for the
// descriptor shape, an unresolvable union order-by target, a non-uniform
// batch, or a wrong row count from a single-row read. Usage errors are
// never retried and never translated.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

// Usagef creates a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is, or wraps, a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
