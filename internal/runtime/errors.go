package runtime

import "fmt"

// UnprocessableMessageError wraps inbound payloads that could not be decoded
// into a Message. The poison queue middleware routes them off the inbound
// topic instead of retrying.
type UnprocessableMessageError struct {
	payload string
	err     error
}

func (e *UnprocessableMessageError) Error() string {
	return fmt.Sprintf("unprocessable message: %s error: %v", e.payload, e.err)
}

func (e *UnprocessableMessageError) Unwrap() error { return e.err }

// Payload returns the raw payload that failed to decode.
func (e *UnprocessableMessageError) Payload() string { return e.payload }
