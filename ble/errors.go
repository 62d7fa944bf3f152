package ble

import "errors"

var (
	errUnknownCharacteristic = errors.New("ble: characteristic not registered")
	errNoRelay               = errors.New("ble: relay not available")
	errRelayBusy             = errors.New("ble: relay connect already running")
	errRelayNotConnected     = errors.New("ble: relay not connected")
	errPeerNotFound          = errors.New("ble: no peer robot found")
	errPeerService           = errors.New("ble: peer has no command characteristic")
)
