package homeassistant

import "errors"

// Sentinel errors for Home Assistant API calls.
var (
	ErrUnauthorized  = errors.New("homeassistant: unauthorized")
	ErrRequestFailed = errors.New("homeassistant: request failed")
	ErrUnavailable   = errors.New("homeassistant: api unavailable")
)
