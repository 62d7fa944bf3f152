package core

import "skoobot/protocol"

// DebugWriter is a function type for writing one debug line
type DebugWriter func(string)

// Event captures a dispatcher event for post-mortem analysis
type Event struct {
	EventType uint8  // Event type code
	Code      uint8  // Command code or state value
	Clock     uint32 // Millis at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtCommand      = 1 // command taken from the slot
	EvtMotorState   = 2 // motor state changed
	EvtRecordState  = 3 // recording state changed
	EvtStreamRetry  = 4 // transient transport error, chunk kept
	EvtStreamAbort  = 5 // fatal transport error or deadline
	EvtConnection   = 6 // link up/down
	EvtBusError     = 7 // sensor bus failure
	EvtTurnTimeout  = 8 // bounded turn gave up
	EvtPublishDrop  = 9 // telemetry dropped after retries
	EventRingSize   = 32
	debugQueueBytes = 1024
)

var (
	// debugPrintln is the platform output function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	debugEnabled bool = true

	// debugQueue buffers lines until FlushDebug runs from the main loop.
	debugQueue *protocol.FifoBuffer
	debugLine  [128]byte

	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitDebugQueue makes DebugPrintln queue lines instead of writing them
// directly. Lines that do not fit are dropped.
func InitDebugQueue() {
	debugQueue = protocol.NewFifoBuffer(debugQueueBytes)
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if !debugEnabled || debugPrintln == nil {
		return
	}
	if debugQueue != nil {
		debugQueue.WriteLine(msg)
		return
	}
	debugPrintln(msg)
}

// FlushDebug writes queued lines to the platform writer.
func FlushDebug() {
	if debugQueue == nil {
		return
	}
	n := 0
	var b [1]byte
	for debugQueue.Read(b[:]) == 1 {
		if b[0] == '\n' || n == len(debugLine) {
			debugPrintln(string(debugLine[:n]))
			n = 0
			if b[0] == '\n' {
				continue
			}
		}
		debugLine[n] = b[0]
		n++
	}
	if n > 0 {
		debugPrintln(string(debugLine[:n]))
	}
}

// RecordEvent captures an event in the ring buffer. Foreground only.
func RecordEvent(eventType, code uint8, value1, value2 uint32) {
	idx := eventRingHead
	eventRing[idx] = Event{
		EventType: eventType,
		Code:      code,
		Clock:     Millis(),
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first.
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// DumpEventRing outputs the event ring buffer (call on fatal errors)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		var name string
		switch evt.EventType {
		case EvtCommand:
			name = "COMMAND"
		case EvtMotorState:
			name = "MOTOR"
		case EvtRecordState:
			name = "RECORD"
		case EvtStreamRetry:
			name = "STREAM_RETRY"
		case EvtStreamAbort:
			name = "STREAM_ABORT!"
		case EvtConnection:
			name = "CONN"
		case EvtBusError:
			name = "BUS_ERROR"
		case EvtTurnTimeout:
			name = "TURN_TIMEOUT!"
		case EvtPublishDrop:
			name = "PUBLISH_DROP"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[EVENT] " + name +
			" code=" + itoa(int(evt.Code)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
