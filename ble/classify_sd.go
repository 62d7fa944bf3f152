//go:build softdevice

package ble

import (
	"skoobot/core"

	"tinygo.org/x/bluetooth"
)

// SoftDevice result codes that clear once queued packets go out.
const (
	nrfErrorBusy      = 17
	nrfErrorResources = 19
)

// classify maps SoftDevice errors onto the transport's transient errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := err.(bluetooth.Error); ok {
		switch code {
		case nrfErrorBusy:
			return core.ErrBusy
		case nrfErrorResources:
			return core.ErrResources
		}
	}
	return err
}
