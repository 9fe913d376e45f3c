// Package errdefs defines the error categories shared by every tutoring
// component.
//
// Packages declare their own sentinel errors and wrap one of these
// categories so callers can branch with errors.Is without importing the
// originating package:
//
//	var ErrSessionNotFound = fmt.Errorf("session not found: %w", errdefs.ErrNotFound)
package errdefs

import (
	"errors"
	"net/http"
)

var (
	// ErrConfiguration is a missing or invalid credential or model
	// reference. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotInitialized is returned when an operation runs before its
	// component finished setup.
	ErrNotInitialized = errors.New("not initialized")

	// ErrValidation is empty or malformed input.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable means a model or index could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse means structured model output could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound is an unknown session, collection or document.
	ErrNotFound = errors.New("not found")
)

// Category returns the category sentinel err belongs to, or nil.
func Category(err error) error {
	for _, c := range []error{
		ErrNotFound,
		ErrValidation,
		ErrNotInitialized,
		ErrMalformedResponse,
		ErrUpstreamUnavailable,
		ErrConfiguration,
	} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// HTTPStatus maps an error to the status code the API reports for it.
func HTTPStatus(err error) int {
	switch Category(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotInitialized:
		return http.StatusServiceUnavailable
	case ErrMalformedResponse:
		return http.StatusUnprocessableEntity
	case ErrUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
