package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"skoobot/protocol"
)

var (
	ErrRecordingActive = errors.New("robot: recording already in progress")
	ErrDisconnected    = errors.New("robot: disconnected")
)

// Options configures the client.
type Options struct {
	UUIDs        UUIDs
	ReplyTimeout time.Duration // wait for a Data1/Data2 reply
	PollInterval time.Duration // pause between a pull poll and its read
	Samples      int           // expected recording length, sizes buffers
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UUIDs:        DefaultUUIDs(),
		ReplyTimeout: 2 * time.Second,
		PollInterval: 15 * time.Millisecond,
		Samples:      8000,
	}
}

// Robot is a connected Skoobot.
type Robot struct {
	conn Connection
	opts Options

	command Characteristic
	data1   Characteristic
	data2   Characteristic
	stream  Characteristic

	data1Ch chan byte
	data2Ch chan []byte

	mu           sync.Mutex
	rec          *protocol.Reassembler
	pull         bool
	recDone      chan struct{}
	captured     chan struct{}
	disconnected chan struct{}
}

// Connect connects to the robot at address and subscribes to its
// notifications.
func Connect(ctx context.Context, adapter Adapter, address string, opts Options) (*Robot, error) {
	conn, err := adapter.Connect(ctx, address)
	if err != nil {
		return nil, err
	}
	r, err := newRobot(conn, opts)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	slog.Info("[BLE] connected", "address", address)
	return r, nil
}

func newRobot(conn Connection, opts Options) (*Robot, error) {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 2 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Millisecond
	}
	if opts.UUIDs.Service == "" {
		opts.UUIDs = DefaultUUIDs()
	}

	r := &Robot{
		conn:         conn,
		opts:         opts,
		data1Ch:      make(chan byte, 8),
		data2Ch:      make(chan []byte, 8),
		disconnected: make(chan struct{}),
	}

	u := opts.UUIDs
	var err error
	if r.command, err = discover(conn, u.Service, u.Command, "command"); err != nil {
		return nil, err
	}
	if r.data1, err = discover(conn, u.Service, u.Data1, "data1"); err != nil {
		return nil, err
	}
	if r.data2, err = discover(conn, u.Service, u.Data2, "data2"); err != nil {
		return nil, err
	}
	if r.stream, err = discover(conn, u.Service, u.Stream, "stream"); err != nil {
		return nil, err
	}

	if err := r.data1.Subscribe(r.onData1); err != nil {
		return nil, fmt.Errorf("robot: subscribe data1: %w", err)
	}
	if err := r.data2.Subscribe(r.onData2); err != nil {
		return nil, fmt.Errorf("robot: subscribe data2: %w", err)
	}
	if err := r.stream.Subscribe(r.onStream); err != nil {
		return nil, fmt.Errorf("robot: subscribe stream: %w", err)
	}

	var once sync.Once
	conn.OnDisconnect(func() {
		once.Do(func() {
			slog.Warn("[BLE] robot disconnected")
			close(r.disconnected)
		})
	})
	return r, nil
}

func discover(conn Connection, service, char, name string) (Characteristic, error) {
	c, err := conn.DiscoverCharacteristic(service, char)
	if err != nil {
		return nil, fmt.Errorf("robot: discover %s characteristic: %w", name, err)
	}
	return c, nil
}

// Command writes one command to the robot.
func (r *Robot) Command(code, arg byte) error {
	if err := r.command.Write([]byte{code, arg}); err != nil {
		return fmt.Errorf("robot: write %s: %w", protocol.CommandName(code), err)
	}
	slog.Debug("[BLE] command", "name", protocol.CommandName(code), "arg", arg)
	return nil
}

// Distance asks for a range measurement in millimetres.
func (r *Robot) Distance(ctx context.Context) (byte, error) {
	return r.requestByte(ctx, protocol.CmdGetDistance)
}

// GainUp raises the microphone gain and returns the new register value.
func (r *Robot) GainUp(ctx context.Context) (byte, error) {
	return r.requestByte(ctx, protocol.CmdIncreaseGain)
}

// GainDown lowers the microphone gain and returns the new register value.
func (r *Robot) GainDown(ctx context.Context) (byte, error) {
	return r.requestByte(ctx, protocol.CmdDecreaseGain)
}

// Ambient asks for an ambient light reading in lux.
func (r *Robot) Ambient(ctx context.Context) (uint16, error) {
	drain(r.data2Ch)
	if err := r.Command(protocol.CmdGetAmbient, 0); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.ReplyTimeout)
	defer cancel()
	select {
	case v := <-r.data2Ch:
		return protocol.DecodeLux(v), nil
	case <-r.disconnected:
		return 0, ErrDisconnected
	case <-ctx.Done():
		return 0, fmt.Errorf("robot: ambient reply: %w", ctx.Err())
	}
}

// Light returns the next unsolicited Data2 value, as sent in photovore
// mode.
func (r *Robot) Light(ctx context.Context) (uint16, error) {
	select {
	case v := <-r.data2Ch:
		return protocol.DecodeLux(v), nil
	case <-r.disconnected:
		return 0, ErrDisconnected
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (r *Robot) requestByte(ctx context.Context, code byte) (byte, error) {
	drain(r.data1Ch)
	if err := r.Command(code, 0); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.ReplyTimeout)
	defer cancel()
	select {
	case v := <-r.data1Ch:
		return v, nil
	case <-r.disconnected:
		return 0, ErrDisconnected
	case <-ctx.Done():
		return 0, fmt.Errorf("robot: %s reply: %w", protocol.CommandName(code), ctx.Err())
	}
}

// Record captures a recording and collects it. With pull set the host
// polls for each chunk; otherwise the robot pushes them.
func (r *Robot) Record(ctx context.Context, pull bool) ([]int16, error) {
	rec, done, captured, err := r.beginRecording(pull)
	if err != nil {
		return nil, err
	}
	defer r.endRecording()

	code := byte(protocol.CmdRecordSound)
	if pull {
		code = protocol.CmdRecordSoundPi
	}
	if err := r.Command(code, 0); err != nil {
		return nil, err
	}
	start := time.Now()

	if pull {
		if err := r.pollChunks(ctx, rec, done, captured); err != nil {
			return nil, err
		}
	} else {
		select {
		case <-done:
		case <-r.disconnected:
			return nil, ErrDisconnected
		case <-ctx.Done():
			return nil, fmt.Errorf("robot: recording: %w", ctx.Err())
		}
	}

	r.mu.Lock()
	samples, err := rec.Samples()
	chunks := rec.Chunks()
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("robot: recording: %w", err)
	}
	slog.Info("[BLE] recording received",
		"samples", len(samples), "chunks", chunks, "elapsed", time.Since(start).Round(time.Millisecond))
	return samples, nil
}

// pollChunks drains a pull-mode recording. Each poll is a write to the
// stream characteristic followed by a read of the chunk it produced.
func (r *Robot) pollChunks(ctx context.Context, rec *protocol.Reassembler, done, captured <-chan struct{}) error {
	select {
	case <-captured:
	case <-done:
		return nil
	case <-r.disconnected:
		return ErrDisconnected
	case <-ctx.Done():
		return fmt.Errorf("robot: recording: %w", ctx.Err())
	}

	poll := []byte{0}
	for {
		select {
		case <-done:
			return nil
		case <-r.disconnected:
			return ErrDisconnected
		case <-ctx.Done():
			return fmt.Errorf("robot: recording: %w", ctx.Err())
		default:
		}

		if err := r.stream.Write(poll); err != nil {
			return fmt.Errorf("robot: poll stream: %w", err)
		}
		time.Sleep(r.opts.PollInterval)
		chunk, err := r.stream.Read()
		if err != nil {
			return fmt.Errorf("robot: read stream: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}
		r.mu.Lock()
		rec.AddChunk(chunk)
		r.mu.Unlock()
	}
}

func (r *Robot) beginRecording(pull bool) (*protocol.Reassembler, chan struct{}, chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		return nil, nil, nil, ErrRecordingActive
	}
	r.rec = protocol.NewReassembler(r.opts.Samples)
	r.pull = pull
	r.recDone = make(chan struct{})
	r.captured = make(chan struct{})
	return r.rec, r.recDone, r.captured, nil
}

func (r *Robot) endRecording() {
	r.mu.Lock()
	r.rec = nil
	r.mu.Unlock()
}

func (r *Robot) onData1(data []byte) {
	if len(data) == 0 {
		return
	}
	b := data[0]

	r.mu.Lock()
	rec := r.rec
	if rec != nil && protocol.IsMarker(b) && !rec.Done() {
		wasCaptured := rec.Captured()
		finished := rec.AddMarker(b)
		if rec.Captured() && !wasCaptured {
			close(r.captured)
		}
		if finished {
			close(r.recDone)
		}
		r.mu.Unlock()
		slog.Debug("[BLE] marker", "value", "0x"+strconv.FormatUint(uint64(b), 16))
		return
	}
	r.mu.Unlock()

	select {
	case r.data1Ch <- b:
	default:
	}
}

func (r *Robot) onData2(data []byte) {
	if len(data) < protocol.Data2Len {
		return
	}
	v := append([]byte(nil), data[:protocol.Data2Len]...)
	select {
	case r.data2Ch <- v:
	default:
	}
}

// onStream collects pushed chunks. In pull mode the same values arrive
// through reads, so notifications are ignored.
func (r *Robot) onStream(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil || r.pull || len(data) == 0 {
		return
	}
	r.rec.AddChunk(append([]byte(nil), data...))
}

// Close disconnects from the robot.
func (r *Robot) Close() error {
	return r.conn.Disconnect()
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
