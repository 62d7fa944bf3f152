//go:build !softdevice

package ble

// classify passes errors through on stacks without SoftDevice codes.
// Transient errors from those stacks already use the core sentinels.
func classify(err error) error {
	return err
}
