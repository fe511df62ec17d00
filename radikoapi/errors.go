package radikoapi

import "fmt"

// AuthError reports a failed or incomplete authentication handshake,
// or a missing token where one is required.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a fetch that failed with no usable fallback.
// Status is zero when the request never completed.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a malformed required document structure.
type ParseError struct {
	Doc string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Doc, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError reports unusable caller-supplied configuration, such as
// a missing area id or identical input/output paths.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }
