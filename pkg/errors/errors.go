package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetchTimeout represents a page or selector that did not appear in time
	ErrorTypeFetchTimeout ErrorType = "fetch_timeout"
	// ErrorTypeChallenge represents a bot-defense interstitial shown instead of content
	ErrorTypeChallenge ErrorType = "challenge"
	// ErrorTypeFieldParse represents a single field that failed type conversion
	ErrorTypeFieldParse ErrorType = "field_parse"
	// ErrorTypeStoreWrite represents a constraint violation or I/O failure on persistence
	ErrorTypeStoreWrite ErrorType = "store_write"
	// ErrorTypeSession represents a browser session that could not be acquired
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a pipeline-specific error tied to one source
type ScrapeError struct {
	Type     ErrorType
	Platform string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Platform, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error should abort the whole run rather than
// just the source it occurred in. Only configuration errors qualify.
func (e *ScrapeError) IsFatal() bool {
	return e.Type == ErrorTypeConfiguration
}

// New creates a new ScrapeError
func New(errType ErrorType, platform, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewFetchTimeout creates a new fetch timeout error
func NewFetchTimeout(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeFetchTimeout, platform, message, err)
}

// NewChallenge creates a new bot-challenge error
func NewChallenge(platform, marker string) *ScrapeError {
	return New(ErrorTypeChallenge, platform, fmt.Sprintf("challenge marker %q present", marker), nil)
}

// NewFieldParse creates a new field parse error
func NewFieldParse(platform, field string, err error) *ScrapeError {
	return New(ErrorTypeFieldParse, platform, fmt.Sprintf("field %s failed conversion", field), err)
}

// NewStoreWrite creates a new store write error
func NewStoreWrite(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeStoreWrite, platform, message, err)
}

// NewSession creates a new session acquisition error
func NewSession(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeSession, platform, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, platform, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, platform, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// isType reports whether err is a ScrapeError of the given type
func isType(err error, t ErrorType) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsChallenge reports whether err is a bot-challenge error
func IsChallenge(err error) bool { return isType(err, ErrorTypeChallenge) }

// IsFetchTimeout reports whether err is a fetch timeout error
func IsFetchTimeout(err error) bool { return isType(err, ErrorTypeFetchTimeout) }

// IsStoreWrite reports whether err is a store write error
func IsStoreWrite(err error) bool { return isType(err, ErrorTypeStoreWrite) }

// IsSession reports whether err is a session acquisition error
func IsSession(err error) bool { return isType(err, ErrorTypeSession) }
