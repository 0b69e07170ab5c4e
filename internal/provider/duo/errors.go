package duo

import (
	"errors"
	"fmt"
)

var (
	// ErrDenied is returned when the user (or policy) explicitly denies the
	// second-factor challenge.
	ErrDenied = errors.New("second factor request denied")

	// ErrPollTimeout is returned when the approval decision does not arrive
	// before the polling deadline.
	ErrPollTimeout = errors.New("timed out waiting for second factor approval")

	// ErrPasscodeRequired is returned when MethodPasscode is requested
	// without a passcode. No network call is made.
	ErrPasscodeRequired = errors.New("passcode is required for the Passcode method")

	// ErrUnsupportedMethod is returned for a Method outside the known set.
	ErrUnsupportedMethod = errors.New("unsupported authentication method")
)

// ParseError indicates a required field was absent from a response. It is
// distinct from transport failures: the exchange succeeded but did not carry
// what the next step needs.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("required field %q not found in response", e.Field)
}

// ProtocolError indicates the provider answered with a non-OK stat or a body
// of an unrecognized shape.
type ProtocolError struct {
	Endpoint string
	Stat     string
	Body     string
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Stat != "" && e.Body != "":
		return fmt.Sprintf("%s endpoint reported stat %q: %s", e.Endpoint, e.Stat, e.Body)
	case e.Stat != "":
		return fmt.Sprintf("%s endpoint reported stat %q", e.Endpoint, e.Stat)
	default:
		return fmt.Sprintf("%s endpoint returned an unrecognized response: %s", e.Endpoint, e.Body)
	}
}

// StatusError indicates an unexpected HTTP status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
