// Package ble connects the robot's dispatcher to the Bluetooth stack. It
// exposes the Skoobot GATT service as a peripheral and, for relay mode,
// connects to a second robot as a central.
package ble

import (
	"sync"
	"sync/atomic"

	"skoobot/core"
	"skoobot/protocol"
)

// valueWriter is the part of a local characteristic the transport uses.
// On the board it is *bluetooth.Characteristic.
type valueWriter interface {
	Write(p []byte) (n int, err error)
}

// Handler receives the events the dispatcher cares about.
type Handler interface {
	OnCommand(data []byte)
	OnConnectionChanged(role core.Role, connected bool)
	OnStreamPoll()
}

// Peripheral implements core.Transport on top of the GATT server.
type Peripheral struct {
	mu      sync.Mutex
	chars   [numChars]valueWriter
	handler Handler
	relay   relayLink

	hostConns int32
	notifies  uint32
	transient uint32
}

const numChars = int(core.CharStream) + 1

// relayLink is the central-side connection to a peer robot.
type relayLink interface {
	Connect() error
	Disconnect() error
	WriteCommand(code, arg byte) error
	// Owns reports whether addr is the peer's address.
	Owns(addr string) bool
	// Dropped clears the link after the stack reported a disconnect.
	Dropped()
}

// NewPeripheral creates an unbound transport. Register it with
// core.SetTransport before building the device, then call Bind.
func NewPeripheral() *Peripheral {
	return &Peripheral{}
}

// Bind attaches the event handler, normally the core.Device.
func (p *Peripheral) Bind(h Handler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *Peripheral) setChar(ch core.Characteristic, w valueWriter) {
	p.chars[ch] = w
}

func (p *Peripheral) setRelay(r relayLink) {
	p.relay = r
}

// Notify writes data to the characteristic, which notifies a subscribed
// host.
func (p *Peripheral) Notify(ch core.Characteristic, data []byte) error {
	if atomic.LoadInt32(&p.hostConns) == 0 {
		return core.ErrNotConnected
	}
	err := p.write(ch, data)
	if err == nil {
		atomic.AddUint32(&p.notifies, 1)
	} else if core.IsTransient(err) {
		atomic.AddUint32(&p.transient, 1)
	}
	return err
}

// SetValue updates the value a host reads. Without a subscription the
// stack only stores it.
func (p *Peripheral) SetValue(ch core.Characteristic, data []byte) error {
	return p.write(ch, data)
}

func (p *Peripheral) write(ch core.Characteristic, data []byte) error {
	if int(ch) >= numChars || p.chars[ch] == nil {
		return errUnknownCharacteristic
	}
	_, err := p.chars[ch].Write(data)
	return classify(err)
}

// ConnectRelay starts the search for a peer robot.
func (p *Peripheral) ConnectRelay() error {
	if p.relay == nil {
		return errNoRelay
	}
	return p.relay.Connect()
}

// DisconnectRelay drops the peer connection.
func (p *Peripheral) DisconnectRelay() error {
	if p.relay == nil {
		return errNoRelay
	}
	return p.relay.Disconnect()
}

// RelayWrite writes a command to the peer robot.
func (p *Peripheral) RelayWrite(code, arg byte) error {
	if p.relay == nil {
		return errNoRelay
	}
	return p.relay.WriteCommand(code, arg)
}

// Stats returns the number of delivered notifications and transient
// failures since boot.
func (p *Peripheral) Stats() (notifies, transient uint32) {
	return atomic.LoadUint32(&p.notifies), atomic.LoadUint32(&p.transient)
}

// onConnect is the stack's link callback. Links owned by the relay are
// reported with core.RoleRelay, everything else is the host. A relay
// link counts as up only after discovery, which the relay reports itself.
func (p *Peripheral) onConnect(addr string, connected bool) {
	h := p.boundHandler()
	if p.relay != nil && p.relay.Owns(addr) {
		if connected {
			return
		}
		p.relay.Dropped()
		if h != nil {
			h.OnConnectionChanged(core.RoleRelay, false)
		}
		return
	}

	var n int32
	if connected {
		n = atomic.AddInt32(&p.hostConns, 1)
	} else {
		n = atomic.AddInt32(&p.hostConns, -1)
		if n < 0 {
			atomic.StoreInt32(&p.hostConns, 0)
			n = 0
		}
	}
	core.DebugPrintln("[BLE] host link " + addr + " " + upDown(connected))
	if h != nil {
		h.OnConnectionChanged(core.RolePeripheral, n > 0)
	}
}

// onWrite routes a host write to the dispatcher.
func (p *Peripheral) onWrite(ch core.Characteristic, offset int, value []byte) {
	h := p.boundHandler()
	if h == nil || offset != 0 {
		return
	}
	switch ch {
	case core.CharCommand:
		if len(value) > protocol.CommandLen {
			value = value[:protocol.CommandLen]
		}
		h.OnCommand(value)
	case core.CharStream:
		h.OnStreamPoll()
	}
}

func (p *Peripheral) boundHandler() Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

var _ core.Transport = (*Peripheral)(nil)
