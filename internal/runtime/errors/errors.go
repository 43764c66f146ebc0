package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrHandlerRequired         = sterrors.New("msgflow: handler is required")
	ErrHandlerIDRequired       = sterrors.New("msgflow: handler id is required")
	ErrDuplicateHandlerID      = sterrors.New("msgflow: handler id already registered")
	ErrUnknownAction           = sterrors.New("msgflow: no available action with that id")
	ErrMessageRequired         = sterrors.New("msgflow: message is required")
	ErrExtensionsRequired      = sterrors.New("msgflow: extensions container is required")
	ErrPublisherRequired       = sterrors.New("msgflow: publisher is required")
	ErrTopicRequired           = sterrors.New("msgflow: topic is required")
	ErrConfigRequired          = sterrors.New("msgflow: configuration is required")
	ErrLoggerRequired          = sterrors.New("msgflow: logger is required")
	ErrUnsupportedOutboxDriver = sterrors.New("msgflow: unsupported outbox driver")
	ErrUnsupportedWireFormat   = sterrors.New("msgflow: unsupported wire format")
	ErrCollaboratorRequired    = sterrors.New("msgflow: action collaborator is not configured")
	ErrUnknownTransport        = sterrors.New("msgflow: unknown transport")
)

// ConfigValidationError marks errors produced while validating a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "msgflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// DuplicateHandlerError reports which family and id collided. It matches
// ErrDuplicateHandlerID through errors.Is.
type DuplicateHandlerError struct {
	Family string
	ID     string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("%s: %s handler %q", ErrDuplicateHandlerID.Error(), e.Family, e.ID)
}

func (e *DuplicateHandlerError) Is(target error) bool {
	return target == ErrDuplicateHandlerID
}
