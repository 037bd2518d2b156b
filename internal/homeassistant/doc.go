// Package homeassistant is the device control interface.
//
// Hearth reads the entity registry and invokes services through the
// Home Assistant REST API with long-lived token auth. The engine
// fetches a fresh Snapshot per request for context building and policy
// checks, and calls Invoke once per approved action.
package homeassistant
