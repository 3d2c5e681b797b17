package domain

import "errors"

var (
	// ErrUpstreamUnavailable wraps any failure talking to the transit API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUnknownEndpoint is returned for paths missing from the catalog.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrCacheMiss is returned by cache storage when a key is absent.
	ErrCacheMiss = errors.New("cache miss")
	// ErrNoCacheAvailable means the network failed and nothing was cached.
	ErrNoCacheAvailable = errors.New("no cached response available")
	// ErrUnknownLayer is returned for layer ids outside Layers.
	ErrUnknownLayer = errors.New("unknown layer")
)

// GeolocationCode classifies position lookup failures.
type GeolocationCode int

const (
	GeolocationPermissionDenied GeolocationCode = iota + 1
	GeolocationPositionUnavailable
	GeolocationTimeout
)

// GeolocationError is a classified position lookup failure.
type GeolocationError struct {
	Code GeolocationCode
	Err  error
}

func (e *GeolocationError) Error() string {
	if e.Err != nil {
		return e.Message() + ": " + e.Err.Error()
	}
	return e.Message()
}

func (e *GeolocationError) Unwrap() error { return e.Err }

// Message is the user-facing text for the error.
func (e *GeolocationError) Message() string {
	switch e.Code {
	case GeolocationPermissionDenied:
		return "Permiso de ubicación denegado. Usando ubicación aproximada."
	case GeolocationTimeout:
		return "La ubicación tardó demasiado en responder. Usando ubicación aproximada."
	default:
		return "No se pudo obtener tu ubicación. Usando ubicación aproximada."
	}
}
