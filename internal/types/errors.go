package types

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken  = errors.New("no GITHUB_TOKEN configured")
	ErrIdentity      = errors.New("could not determine GitHub username")
	ErrInvalidFormat = errors.New("invalid format")
	ErrNetworkError  = errors.New("network error")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError reports a credential that is missing from the config file.
type ConfigError struct {
	Path string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("no GITHUB_TOKEN in %s", e.Path)
}

func (e ConfigError) Unwrap() error {
	return ErrMissingToken
}

// IdentityError is returned when the /user lookup fails or does not
// yield a login. Err holds the transport error, if any.
type IdentityError struct {
	Reason string
	Err    error
}

func (e IdentityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrIdentity, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrIdentity, e.Reason)
}

func (e IdentityError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrIdentity, e.Err}
	}
	return []error{ErrIdentity}
}

// RemoteError carries the transport or HTTP status context of a failed
// request. StatusCode is zero when no response was received.
type RemoteError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", ErrNetworkError, e.Err)
}

func (e RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNetworkError, e.Err}
	}
	return []error{ErrNetworkError}
}

// TemplateError reports a malformed user-supplied format string.
type TemplateError struct {
	Template string
	Pos      int
	Reason   string
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("invalid format %q at offset %d: %s", e.Template, e.Pos, e.Reason)
}

func (e TemplateError) Unwrap() error {
	return ErrInvalidFormat
}
