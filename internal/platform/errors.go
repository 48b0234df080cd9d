// Package platform holds the types shared by the external streaming platform clients.
package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies which external service a webinar streams through.
type Platform string

const (
	YouTube Platform = "youtube"
	Zoom    Platform = "zoom"
	None    Platform = "none"
)

// ParsePlatform maps a stored value to a Platform. Empty or unknown values are None.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case YouTube:
		return YouTube
	case Zoom:
		return Zoom
	default:
		return None
	}
}

// PlatformRequestError is returned for any non-2xx response from an upstream API.
type PlatformRequestError struct {
	Platform   Platform
	Operation  string
	StatusCode int
	Message    string
}

func (e *PlatformRequestError) Error() string {
	return fmt.Sprintf("%s %s: %s (status %d)", e.Platform, e.Operation, e.Message, e.StatusCode)
}

// MissingCredentialsError is returned when a per-user OAuth call has no access token.
type MissingCredentialsError struct {
	Platform Platform
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("%s: access token required", e.Platform)
}

// AsRequestError unwraps err into a *PlatformRequestError.
func AsRequestError(err error) (*PlatformRequestError, bool) {
	var reqErr *PlatformRequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// IsMissingCredentials reports whether err wraps a *MissingCredentialsError.
func IsMissingCredentials(err error) bool {
	var credErr *MissingCredentialsError
	return errors.As(err, &credErr)
}
