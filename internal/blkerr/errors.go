package blkerr

// DriverError is an error that carries both a rendered message and the
// original sentinel or wrapped cause, so callers can use errors.Is against
// either.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
}

// customDriverError carries both the sentinel it was derived from and (when
// produced by WrapError) the underlying cause, so errors.Is succeeds against
// either one: Unwrap's multi-error form walks both branches rather than
// discarding the sentinel in favor of the cause.
type customDriverError struct {
	message  string
	sentinel error
	cause    error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:  message + ": " + e.message,
		sentinel: e,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		message:  e.Error() + ": " + err.Error(),
		sentinel: e,
		cause:    err,
	}
}

func (e customDriverError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.sentinel != nil {
		errs = append(errs, e.sentinel)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}
