// Package number exposes camera configuration options as adjustable number
// entities.
//
// Setup walks the controller's cameras and builds one Entity for every
// configuration option whose type appears in the option-type table (today
// only brightness). An Entity is a projection of its option: bounds and
// display mode are fixed at construction, the displayed value and icon are
// recomputed by Refresh whenever the controller reports new data, and
// SetNativeValue forwards a user's value to the device.
//
// The package owns no connections or storage. Writes are not retried and
// the displayed value is not updated optimistically; it changes on the
// next refresh.
package number
