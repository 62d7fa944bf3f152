package robot

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter implements Adapter with tinygo-org/bluetooth, which uses
// BlueZ on Linux, CoreBluetooth on macOS and WinRT on Windows. On macOS
// addresses are CoreBluetooth UUIDs rather than MAC addresses.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the maps.
	mu          sync.Mutex
	connections map[string]*tinyGoConnection
	// seen keeps scanned addresses so Connect uses the stack's own value.
	seen map[string]bluetooth.Address
}

// NewTinyGoAdapter creates an adapter on the system's default controller.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*tinyGoConnection),
		seen:        make(map[string]bluetooth.Address),
	}
}

func (a *TinyGoAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("robot: enable adapter: %w", err)
	}
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		a.mu.Lock()
		conn, ok := a.connections[device.Address.String()]
		a.mu.Unlock()
		if ok && conn.disconnectCb != nil {
			conn.disconnectCb()
		}
	})
	return nil
}

func (a *TinyGoAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("robot: parse service UUID: %w", err)
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err = a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !result.HasServiceUUID(svc) {
			return
		}
		addr := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		a.mu.Lock()
		a.seen[addr] = result.Address
		a.mu.Unlock()
		devices = append(devices, Device{
			Name:    result.LocalName(),
			Address: addr,
			RSSI:    int(result.RSSI),
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("robot: scan: %w", err)
	}
	return devices, nil
}

func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	a.mu.Lock()
	addr, ok := a.seen[address]
	a.mu.Unlock()
	if !ok {
		addr.Set(address)
	}

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("robot: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("robot: connect to %s: %w", address, result.err)
		}
		conn := &tinyGoConnection{device: &result.device}
		a.mu.Lock()
		a.connections[address] = conn
		a.mu.Unlock()
		return conn, nil
	}
}

var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoConnection struct {
	device       *bluetooth.Device
	disconnectCb func()

	mu       sync.Mutex
	services map[string]bluetooth.DeviceService
}

func (c *tinyGoConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svc, err := c.service(serviceUUID)
	if err != nil {
		return nil, err
	}
	id, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, err
	}
	chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("robot: discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("robot: characteristic %s not found", charUUID)
	}
	return &tinyGoCharacteristic{char: &chars[0]}, nil
}

// service discovers a service once per connection.
func (c *tinyGoConnection) service(serviceUUID string) (bluetooth.DeviceService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[serviceUUID]; ok {
		return svc, nil
	}
	id, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return bluetooth.DeviceService{}, err
	}
	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{id})
	if err != nil {
		return bluetooth.DeviceService{}, fmt.Errorf("robot: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return bluetooth.DeviceService{}, fmt.Errorf("robot: service %s not found", serviceUUID)
	}
	if c.services == nil {
		c.services = make(map[string]bluetooth.DeviceService)
	}
	c.services[serviceUUID] = svcs[0]
	return svcs[0], nil
}

func (c *tinyGoConnection) Disconnect() error {
	return c.device.Disconnect()
}

func (c *tinyGoConnection) OnDisconnect(cb func()) {
	c.disconnectCb = cb
}

type tinyGoCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *tinyGoCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *tinyGoCharacteristic) Read() ([]byte, error) {
	buf := make([]byte, 64)
	n, err := c.char.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *tinyGoCharacteristic) Subscribe(cb func([]byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}
