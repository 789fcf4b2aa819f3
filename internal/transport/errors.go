package transport

import "fmt"

// TransientError reports a retryable failure (429, 5xx or a connection
// error) that survived every retry. Status is the last observed HTTP
// status, or zero when the failure never reached the HTTP layer.
type TransientError struct {
	Status   int
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient failure after %d attempts, last status %d", e.Attempts, e.Status)
	}
	return fmt.Sprintf("transient failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError reports a non-retryable remote rejection (4xx other than
// 429). It surfaces immediately, without retries.
type PermanentError struct {
	Status int
	URL    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure: status %d for %s", e.Status, e.URL)
}

// NotFound reports whether err is a PermanentError with status 404.
func (e *PermanentError) NotFound() bool { return e.Status == 404 }
