package entity

import (
	"errors"
	"fmt"
)

// ErrNotApplicable is returned for URLs that cannot be classified
var ErrNotApplicable = errors.New("url not applicable")

// TransportError is a network or HTTP failure talking to the classification endpoint
type TransportError struct {
	Domain     Domain
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("status request for %s: unexpected HTTP status %d", e.Domain, e.StatusCode)
	}
	return fmt.Sprintf("status request for %s: %v", e.Domain, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a malformed response body
type DecodeError struct {
	Domain Domain
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode status for %s: %v", e.Domain, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DeliveryError means the destination could not be reached at send time
type DeliveryError struct {
	Destination DestinationID
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
