package providers

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed
type ErrorKind string

const (
	// KindTransport covers timeouts, DNS failures and refused connections
	KindTransport ErrorKind = "transport"
	// KindStatus is a non-2xx upstream response
	KindStatus ErrorKind = "status"
	// KindMalformed is a body that could not be parsed into records
	KindMalformed ErrorKind = "malformed"
	// KindRequest is a failure building the upstream request
	KindRequest ErrorKind = "request"
	// KindUnavailable is a call rejected without reaching the provider
	KindUnavailable ErrorKind = "unavailable"
)

// FetchError describes a failed upstream fetch
type FetchError struct {
	Provider Kind
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError returns err as a *FetchError, wrapping unknown errors as
// transport failures of provider.
func AsFetchError(provider Kind, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Provider: provider, Kind: KindTransport, Err: err}
}
