package identify

import (
	"errors"
	"fmt"
)

// ConfigurationError means no webhook endpoint is configured. No request is
// attempted.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// HTTPError is a non-2xx webhook answer. Message is ready to show to a user.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// ErrEmptyResponse is returned when the webhook answers 2xx with a blank body.
var ErrEmptyResponse = errors.New("empty response received from server")

// MalformedResponseError is a non-empty body that is not a JSON object.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return "invalid JSON response: " + e.Detail
}

// TransportError wraps failures below HTTP: dial, TLS, timeout, body read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidImageError rejects an upload before it is sent.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + e.Reason
}
