// Package alarmdotcom is the vendor layer for Alarm.com video devices.
//
// It provides the HTTP client for the Alarm.com web API, the device and
// setting model, and a Controller that polls the API and keeps the model
// current.
//
// # Architecture
//
//	┌──────────────────┐  resty   ┌──────────┐  poll  ┌────────────┐
//	│ Alarm.com web API│◄────────►│  Client  │◄──────►│ Controller │──► listeners
//	└──────────────────┘          └──────────┘        └────────────┘
//
// The Controller discovers cameras and their settings on its first
// Refresh. Each later Refresh updates configuration option values in place
// and calls the listeners registered for that camera with Subscribe.
//
// # Writes
//
// Device.ChangeSetting sends one PUT and returns the vendor's answer. It
// never retries and does not touch the local value; a successful write
// asks the controller for an early refresh so the new value shows up on
// the next poll cycle rather than the next tick.
//
// # Errors
//
// Non-2xx responses are *APIError, which matches ErrRequestFailed (and
// ErrUnauthorized for 401/403) with errors.Is.
package alarmdotcom
