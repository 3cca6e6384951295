package completion

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrTransport         = errors.New("transport failure")
	ErrQuota             = errors.New("quota exceeded")
	ErrMalformedResponse = errors.New("malformed response")
)

// TransportError covers network failures, timeouts and service-side faults.
type TransportError struct {
	Model     string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion transport error (model %s, %d attempt(s)): %v", e.Model, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// QuotaError is returned when the provider keeps throttling past the retry budget.
type QuotaError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("completion quota exceeded (model %s, %d attempt(s)): %v", e.Model, e.Attempts, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

func (e *QuotaError) Is(target error) bool { return target == ErrQuota }

// MalformedResponseError means the call succeeded but carried no text block.
type MalformedResponseError struct {
	Model  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed completion response from %s: %s", e.Model, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// retryable reports whether the retry loop should try again after err.
func retryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	var qe *QuotaError
	return errors.As(err, &qe)
}

func withAttempts(err error, attempts int) error {
	var te *TransportError
	if errors.As(err, &te) {
		te.Attempts = attempts
		return te
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		qe.Attempts = attempts
		return qe
	}
	return err
}
