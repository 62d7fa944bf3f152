package robot

import (
	"context"
	"fmt"
	"sync"
)

// mockCharacteristic records writes, serves reads and allows subscribing.
type mockCharacteristic struct {
	mu       sync.Mutex
	writes   [][]byte
	value    []byte
	callback func([]byte)
	onWrite  func(data []byte)
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	hook := c.onWrite
	c.mu.Unlock()
	if hook != nil {
		hook(cp)
	}
	return nil
}

func (c *mockCharacteristic) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...), nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

func (c *mockCharacteristic) setValue(v []byte) {
	c.mu.Lock()
	c.value = append([]byte(nil), v...)
	c.mu.Unlock()
}

func (c *mockCharacteristic) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// SimulateNotification sends a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// mockConnection simulates a connection to one robot.
type mockConnection struct {
	mu           sync.Mutex
	chars        map[string]*mockCharacteristic
	disconnectCb func()
	disconnected bool
}

func newMockConnection() *mockConnection {
	u := DefaultUUIDs()
	return &mockConnection{
		chars: map[string]*mockCharacteristic{
			u.Command: {},
			u.Data1:   {},
			u.Data2:   {},
			u.Data4:   {},
			u.Stream:  {},
		},
	}
}

func (c *mockConnection) char(id string) *mockCharacteristic {
	return c.chars[id]
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	if serviceUUID != DefaultUUIDs().Service {
		return nil, fmt.Errorf("mock: unknown service UUID %q", serviceUUID)
	}
	ch, ok := c.chars[charUUID]
	if !ok {
		return nil, fmt.Errorf("mock: unknown characteristic UUID %q", charUUID)
	}
	return ch, nil
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect triggers the disconnect callback.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// mockAdapter simulates the BLE adapter.
type mockAdapter struct {
	mu         sync.Mutex
	devices    []Device
	connection *mockConnection
	scanned    string
}

func newMockAdapter(devices []Device) *mockAdapter {
	return &mockAdapter{
		devices:    devices,
		connection: newMockConnection(),
	}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Scan(_ context.Context, serviceUUID string) ([]Device, error) {
	a.mu.Lock()
	a.scanned = serviceUUID
	a.mu.Unlock()
	return a.devices, nil
}

func (a *mockAdapter) Connect(_ context.Context, _ string) (Connection, error) {
	return a.connection, nil
}

var _ Adapter = (*mockAdapter)(nil)
