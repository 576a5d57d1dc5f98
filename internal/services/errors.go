package services

import (
	"errors"
	"fmt"
)

// Backing services named in ExternalServiceError.
const (
	ServiceStore  = "store"
	ServiceBlob   = "blob"
	ServiceBroker = "broker"
)

var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrUnsupportedImage = errors.New("photo must be a JPEG, PNG or WebP image")
	ErrPhotoTooLarge    = errors.New("photo exceeds the size limit")
)

// ExternalServiceError wraps a failure of the store, blob store or broker.
// Nothing the caller holds has changed when it is returned.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func external(service, op string, err error) error {
	return &ExternalServiceError{Service: service, Op: op, Err: err}
}

// IsExternalServiceError reports whether err carries an *ExternalServiceError.
func IsExternalServiceError(err error) bool {
	var ese *ExternalServiceError
	return errors.As(err, &ese)
}
