package ble

import (
	"sync"
	"sync/atomic"
	"time"

	"skoobot/core"
	"skoobot/protocol"

	"tinygo.org/x/bluetooth"
)

// relayScanTimeout bounds the search for a peer robot.
const relayScanTimeout = 5 * time.Second

// Relay is the central-side link to a second robot. Commands the host
// sends are mirrored to the peer's command characteristic.
type Relay struct {
	adapter  *bluetooth.Adapter
	onChange func(connected bool)

	mu     sync.Mutex
	addr   string
	device bluetooth.Device
	cmd    bluetooth.DeviceCharacteristic
	linked bool

	busy uint32
	buf  [protocol.CommandLen]byte
}

// NewRelay creates a relay on adapter. onChange runs when the peer link
// comes up or goes down.
func NewRelay(adapter *bluetooth.Adapter, onChange func(connected bool)) *Relay {
	return &Relay{adapter: adapter, onChange: onChange}
}

// Connect starts scanning for a peer in the background.
func (r *Relay) Connect() error {
	if !atomic.CompareAndSwapUint32(&r.busy, 0, 1) {
		return errRelayBusy
	}
	go r.run()
	return nil
}

func (r *Relay) run() {
	defer atomic.StoreUint32(&r.busy, 0)

	addr, err := r.scan()
	if err != nil {
		core.DebugPrintln("[RELAY] " + err.Error())
		return
	}
	r.mu.Lock()
	r.addr = addr.String()
	r.mu.Unlock()

	device, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		core.DebugPrintln("[RELAY] connect failed: " + err.Error())
		r.forget()
		return
	}
	cmd, err := discoverCommand(device)
	if err != nil {
		core.DebugPrintln("[RELAY] " + err.Error())
		device.Disconnect()
		r.forget()
		return
	}

	r.mu.Lock()
	r.device = device
	r.cmd = cmd
	r.linked = true
	r.mu.Unlock()
	core.DebugPrintln("[RELAY] linked to " + addr.String())
	r.onChange(true)
}

// scan looks for another robot advertising the Skoobot service.
func (r *Relay) scan() (bluetooth.Address, error) {
	var (
		found bluetooth.Address
		ok    bool
	)
	stop := make(chan struct{})
	go func() {
		select {
		case <-time.After(relayScanTimeout):
			r.adapter.StopScan()
		case <-stop:
		}
	}()
	err := r.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ok || !result.HasServiceUUID(serviceUUID) {
			return
		}
		found = result.Address
		ok = true
		a.StopScan()
	})
	close(stop)
	if err != nil {
		return found, err
	}
	if !ok {
		return found, errPeerNotFound
	}
	return found, nil
}

func discoverCommand(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	svcs, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, err
	}
	if len(svcs) == 0 {
		return bluetooth.DeviceCharacteristic{}, errPeerService
	}
	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{commandUUID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, err
	}
	if len(chars) == 0 {
		return bluetooth.DeviceCharacteristic{}, errPeerService
	}
	return chars[0], nil
}

// Disconnect drops the peer link. The stack's disconnect event reports
// the change.
func (r *Relay) Disconnect() error {
	r.mu.Lock()
	linked, device := r.linked, r.device
	r.linked = false
	r.mu.Unlock()
	if !linked {
		return nil
	}
	return device.Disconnect()
}

// WriteCommand mirrors one command to the peer.
func (r *Relay) WriteCommand(code, arg byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.linked {
		return errRelayNotConnected
	}
	r.buf[0] = code
	r.buf[1] = arg
	_, err := r.cmd.WriteWithoutResponse(r.buf[:])
	return classify(err)
}

// Owns reports whether addr belongs to the peer robot.
func (r *Relay) Owns(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr != "" && r.addr == addr
}

// Dropped is called when the stack reports the peer link gone.
func (r *Relay) Dropped() {
	r.forget()
	core.DebugPrintln("[RELAY] link lost")
}

func (r *Relay) forget() {
	r.mu.Lock()
	r.addr = ""
	r.linked = false
	r.mu.Unlock()
}
