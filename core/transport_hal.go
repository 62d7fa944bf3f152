package core

import "errors"

// Characteristic identifies one attribute of the robot's GATT service.
type Characteristic uint8

const (
	CharCommand Characteristic = iota
	CharData1                  // 1 byte: distance, mic gain, markers
	CharData2                  // 2 bytes: lux
	CharData4                  // 4 bytes, reserved
	CharStream                 // recording chunks
)

// Transport errors. ErrBusy and ErrResources mean the stack could not take
// the notification right now; the same payload may be retried later.
var (
	ErrBusy         = errors.New("transport busy")
	ErrResources    = errors.New("transport out of resources")
	ErrNotConnected = errors.New("not connected")
)

// IsTransient reports whether err may clear on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrResources)
}

// Transport is the BLE link as seen by the dispatcher.
type Transport interface {
	// Notify sets the characteristic value and notifies the host.
	Notify(ch Characteristic, data []byte) error

	// SetValue updates the readable value without notifying.
	SetValue(ch Characteristic, data []byte) error

	// ConnectRelay starts connecting to a peer robot as a central. It
	// returns once the attempt is under way; the outcome arrives through
	// Device.OnConnectionChanged with RoleRelay.
	ConnectRelay() error

	// DisconnectRelay drops the peer connection.
	DisconnectRelay() error

	// RelayWrite writes a command to the peer's command characteristic.
	RelayWrite(code, arg byte) error
}

// Global singleton used by core code.
var transport Transport

// SetTransport is called by target-specific code to register the link.
func SetTransport(t Transport) {
	transport = t
}

// MustTransport returns the configured transport or panics if missing.
func MustTransport() Transport {
	if transport == nil {
		panic("transport not configured")
	}
	return transport
}
