package retry

// Error is implemented by errors that know whether they are temporary.
//
// If an error in the chain implements this interface and Temporary() returns
// false, the retry loop stops immediately and returns the error.
type Error interface {
	Temporary() bool
	error
}

type permanentError struct {
	error
}

func (e *permanentError) Temporary() bool { return false }

func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort marks err as permanent, stopping the retry loop without further
// attempts. The loop returns the original err, not the wrapper.
//
//	if err := validate(link); err != nil {
//	    return retry.Abort(err)
//	}
func Abort(err error) Error {
	return &permanentError{err}
}
