package core

import (
	"errors"
	"testing"

	"skoobot/protocol"
)

func TestDeviceForwardStop(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdForward)
	if d.State().Motor != MotorForward {
		t.Fatalf("Expected forward, got %v", d.State().Motor)
	}
	if !b.gpio.levels[testPins.Sleep] {
		t.Error("Expected drivers awake")
	}
	if b.gpio.levels[testPins.DirR] || !b.gpio.levels[testPins.DirL] {
		t.Error("Expected DIR_R low and DIR_L high for forward")
	}
	if !b.stepper.enabled {
		t.Error("Expected step ticks enabled")
	}

	send(d, protocol.CmdStop)
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected sleeping, got %v", d.State().Motor)
	}
	if b.gpio.levels[testPins.Sleep] {
		t.Error("Expected drivers asleep")
	}
	if b.stepper.enabled || d.Stepper().Running() {
		t.Error("Expected stepping stopped")
	}
}

func TestDeviceDirectionChangeKeepsStepping(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdForward)
	DelayMs(50)
	send(d, protocol.CmdBackward)

	if d.State().Motor != MotorBackward {
		t.Errorf("Expected backward, got %v", d.State().Motor)
	}
	if !b.gpio.levels[testPins.DirR] || b.gpio.levels[testPins.DirL] {
		t.Error("Expected DIR_R high and DIR_L low for backward")
	}
	if b.stepper.disableCalls != 0 {
		t.Errorf("Expected step train kept running, got %d stops", b.stepper.disableCalls)
	}
}

func TestDeviceLatestCommandWins(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())

	d.OnCommand([]byte{protocol.CmdForward})
	d.OnCommand([]byte{protocol.CmdBackward})
	d.Poll()
	d.Poll()

	if d.State().Motor != MotorBackward {
		t.Errorf("Expected backward, got %v", d.State().Motor)
	}
	if n := countEvents(EvtCommand); n != 1 {
		t.Errorf("Expected 1 command executed, got %d", n)
	}
}

func TestDeviceIgnoresEmptyWrite(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())

	d.OnCommand(nil)
	d.Poll()
	if n := countEvents(EvtCommand); n != 0 {
		t.Errorf("Expected no command executed, got %d", n)
	}
}

func TestDeviceUnknownCommand(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	before := d.State()
	send(d, 0x77)
	if d.State() != before {
		t.Errorf("Expected state unchanged, got %+v", d.State())
	}
	if len(b.transport.notes) != 0 {
		t.Errorf("Expected no notifications, got %v", b.transport.notes)
	}
}

func TestDeviceDisconnectSafety(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 16
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdPhotovore)
	send(d, protocol.CmdForward)
	send(d, protocol.CmdRecordSound)
	d.OnCommand([]byte{protocol.CmdBackward})

	d.OnConnectionChanged(RolePeripheral, false)
	d.Poll()

	st := d.State()
	if st.Motor != MotorSleeping || b.gpio.levels[testPins.Sleep] {
		t.Errorf("Expected motors asleep, got %v", st.Motor)
	}
	if st.Photovore || st.Rover {
		t.Error("Expected autonomous modes cleared")
	}
	if st.Recording != RecordIdle {
		t.Errorf("Expected recording dropped, got %d", st.Recording)
	}
	if b.audio.stops != 1 {
		t.Errorf("Expected capture stopped, got %d", b.audio.stops)
	}
	if !d.Tone().IsDone() {
		t.Error("Expected buzzer silent")
	}
	for _, n := range b.transport.notes[CharData1] {
		if n[0] == protocol.MarkerDrainAborted {
			t.Error("Abort marker must not be sent to a disconnected host")
		}
	}

	d.OnConnectionChanged(RolePeripheral, true)
	d.Poll()
	if d.State().Motor != MotorSleeping {
		t.Error("Command written before the disconnect must be dropped")
	}
}

func TestDeviceReconnectBetweenPolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 16
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdPhotovore)
	send(d, protocol.CmdForward)
	send(d, protocol.CmdRecordSound)

	// The link drops and comes back while the loop is busy elsewhere.
	d.OnConnectionChanged(RolePeripheral, false)
	d.OnConnectionChanged(RolePeripheral, true)
	d.Poll()

	st := d.State()
	if st.Motor != MotorSleeping || b.gpio.levels[testPins.Sleep] {
		t.Errorf("Expected motors asleep after a missed disconnect, got %v", st.Motor)
	}
	if b.stepper.enabled || d.Stepper().Running() {
		t.Error("Expected stepping stopped")
	}
	if st.Photovore || st.Rover {
		t.Error("Expected autonomous modes cleared")
	}
	if st.Recording != RecordIdle {
		t.Errorf("Expected recording dropped, got %d", st.Recording)
	}
	if st.Peripheral != Connected {
		t.Error("Expected the new host link to be up")
	}

	send(d, protocol.CmdBackward)
	if d.State().Motor != MotorBackward {
		t.Errorf("Expected commands accepted on the new link, got %v", d.State().Motor)
	}
}

func TestDeviceIgnoresCommandsWhileDisconnected(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())

	d.OnConnectionChanged(RolePeripheral, false)
	d.Poll()
	send(d, protocol.CmdForward)
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected no motion while disconnected, got %v", d.State().Motor)
	}
}

func TestDeviceStepModeCycle(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	if d.State().StepMode != 1 {
		t.Fatalf("Expected default step mode 1, got %d", d.State().StepMode)
	}

	tests := []struct {
		cmd     byte
		mode    uint8
		m0Float bool
		m0, m1  bool
	}{
		{protocol.CmdIncStepMode, 2, true, false, false},
		{protocol.CmdIncStepMode, 3, false, false, true},
		{protocol.CmdIncStepMode, 4, false, true, true},
		{protocol.CmdIncStepMode, 5, true, false, true},
		{protocol.CmdIncStepMode, 0, false, false, false},
		{protocol.CmdDecStepMode, 5, true, false, true},
		{protocol.CmdDecStepMode, 4, false, true, true},
	}
	for _, tt := range tests {
		send(d, tt.cmd)
		if d.State().StepMode != tt.mode {
			t.Fatalf("Expected step mode %d, got %d", tt.mode, d.State().StepMode)
		}
		if b.gpio.floating[testPins.M0] != tt.m0Float {
			t.Errorf("Mode %d: expected M0 floating=%v", tt.mode, tt.m0Float)
		}
		if !tt.m0Float && b.gpio.levels[testPins.M0] != tt.m0 {
			t.Errorf("Mode %d: expected M0=%v", tt.mode, tt.m0)
		}
		if b.gpio.levels[testPins.M1] != tt.m1 {
			t.Errorf("Mode %d: expected M1=%v", tt.mode, tt.m1)
		}
	}
}

func TestDeviceStepModeChangesRate(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdForward)
	st := d.Stepper().(*StepTimer)
	if st.Match() != 625 {
		t.Fatalf("Expected match 625 at 100 steps/s, got %d", st.Match())
	}
	send(d, protocol.CmdIncStepMode)
	if st.Match() != 312 {
		t.Errorf("Expected match 312 at 200 steps/s, got %d", st.Match())
	}
	if d.State().Motor != MotorForward {
		t.Errorf("Expected still forward, got %v", d.State().Motor)
	}
}

func TestDeviceTurnAndStopTurning(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdForward)
	send(d, protocol.CmdRight)
	if d.State().Motor != MotorTurningRight {
		t.Fatalf("Expected turning right, got %v", d.State().Motor)
	}
	if b.gpio.levels[testPins.DirR] || b.gpio.levels[testPins.DirL] {
		t.Error("Expected both DIR pins low for a right turn")
	}

	send(d, protocol.CmdLeft)
	send(d, protocol.CmdStopTurning)
	if d.State().Motor != MotorForward {
		t.Errorf("Expected forward restored, got %v", d.State().Motor)
	}

	send(d, protocol.CmdStop)
	send(d, protocol.CmdLeft)
	send(d, protocol.CmdStopTurning)
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected sleeping after a turn from rest, got %v", d.State().Motor)
	}

	send(d, protocol.CmdStopTurning)
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected stopturn to be a no-op while not turning, got %v", d.State().Motor)
	}
}

func TestDeviceBoundedTurnRestoresMotion(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdBackward)
	start := Millis()
	send(d, protocol.CmdRight30)

	// Mode 1: 12 full steps at divisor 2, 100 steps/s.
	if steps := d.Stepper().Steps(); steps < 24 {
		t.Errorf("Expected at least 24 steps, got %d", steps)
	}
	if elapsed := Millis() - start; elapsed < 230 || elapsed > 260 {
		t.Errorf("Expected the turn to take about 240ms, took %d", elapsed)
	}
	if d.State().Motor != MotorBackward {
		t.Errorf("Expected backward restored, got %v", d.State().Motor)
	}
	if countEvents(EvtTurnTimeout) != 0 {
		t.Error("Expected no turn timeout")
	}
}

func TestDeviceBoundedTurnFromRest(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdLeft30)
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected sleeping after the turn, got %v", d.State().Motor)
	}
	if b.stepper.enabled {
		t.Error("Expected stepping stopped")
	}
}

func TestDeviceBoundedTurnTimeout(t *testing.T) {
	d, _ := newTestDevice(t, DefaultConfig())
	delayHook = nil // step timer never fires

	send(d, protocol.CmdForward)
	start := Millis()
	send(d, protocol.CmdLeft30)

	// 24 steps at 100 steps/s plus 250ms slack
	if elapsed := Millis() - start; elapsed != 490 {
		t.Errorf("Expected to give up after 490ms, took %d", elapsed)
	}
	if countEvents(EvtTurnTimeout) != 1 {
		t.Error("Expected a turn timeout event")
	}
	if d.State().Motor != MotorForward {
		t.Errorf("Expected forward restored after timeout, got %v", d.State().Motor)
	}
}

func TestDeviceBuzzer(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdBuzzer, 2)
	send(d, protocol.CmdBuzzer, 9)

	if len(b.wave.plays) != 2 {
		t.Fatalf("Expected 2 tones, got %d", len(b.wave.plays))
	}
	// 470 Hz for 250ms: 117 cycles
	if p := b.wave.plays[0]; p.top != 265 || p.loops != 58 {
		t.Errorf("Expected top=265 loops=58, got %+v", p)
	}
	if p := b.wave.plays[1]; p.top != 271 {
		t.Errorf("Expected arg 9 to wrap to 460 Hz (top 271), got %+v", p)
	}
	if !d.Tone().IsDone() {
		t.Error("Expected tone finished")
	}
}

func TestDeviceBuzzerBoundedWait(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.wave.autoComplete = false

	start := Millis()
	send(d, protocol.CmdBuzzer, 0)
	if elapsed := Millis() - start; elapsed > 400 {
		t.Errorf("Expected buzzer wait bounded, took %d", elapsed)
	}
	if b.wave.stops != 1 || !d.Tone().IsDone() {
		t.Errorf("Expected tone forced off, stops=%d", b.wave.stops)
	}
}

func TestDeviceDistance(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.bus.regs[regResultRangeVal] = 55

	send(d, protocol.CmdGetDistance)
	notes := b.transport.notes[CharData1]
	if len(notes) != 1 || len(notes[0]) != 1 || notes[0][0] != 55 {
		t.Errorf("Expected distance 55 on data1, got %v", notes)
	}
}

func TestDeviceAmbient(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.bus.set16(regResultALSVal, 1000)

	send(d, protocol.CmdGetAmbient)
	want := protocol.EncodeLux(Lux(1000, 100, ALSGain1))
	notes := b.transport.notes[CharData2]
	if len(notes) != 1 || len(notes[0]) != 2 || notes[0][0] != want[0] || notes[0][1] != want[1] {
		t.Errorf("Expected lux %v on data2, got %v", want, notes)
	}
	if lux := protocol.DecodeLux(notes[0]); lux != 317 {
		t.Errorf("Expected 317 lux, got %d", lux)
	}
}

func TestDevicePublishDropAfterRetries(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.transport.failAll[CharData1] = ErrBusy

	send(d, protocol.CmdGetDistance)
	if countEvents(EvtPublishDrop) != 1 {
		t.Error("Expected the value dropped after retries")
	}
	if len(b.transport.notes[CharData1]) != 0 {
		t.Error("Expected nothing delivered")
	}
}

func TestDeviceGain(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdIncreaseGain)
	send(d, protocol.CmdDecreaseGain)
	send(d, protocol.CmdDecreaseGain)

	notes := b.transport.notes[CharData1]
	want := []byte{0x2C, 0x28, 0x24}
	if len(notes) != len(want) {
		t.Fatalf("Expected %d gain replies, got %d", len(want), len(notes))
	}
	for i, w := range want {
		if notes[i][0] != w {
			t.Errorf("Reply %d: expected %#x, got %#x", i, w, notes[i][0])
		}
	}
	if b.audio.gain != 0x24 {
		t.Errorf("Expected driver gain 0x24, got %#x", b.audio.gain)
	}
}

// drainPush polls until the recording returns to idle.
func drainPush(t *testing.T, d *Device) {
	t.Helper()
	for i := 0; i < 200 && d.State().Recording != RecordIdle; i++ {
		d.Poll()
		advanceMillis(10)
	}
	if d.State().Recording != RecordIdle {
		t.Fatal("Recording never finished")
	}
}

func reassemble(t *testing.T, b *testBoard, chunks [][]byte) []int16 {
	t.Helper()
	r := protocol.NewReassembler(len(b.audio.buf))
	for _, c := range chunks {
		r.AddChunk(c)
	}
	for _, m := range b.transport.notes[CharData1] {
		r.AddMarker(m[0])
	}
	if !r.Captured() || !r.Done() {
		t.Fatalf("Expected capture and drain markers, captured=%v done=%v", r.Captured(), r.Done())
	}
	got, err := r.Samples()
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	return got
}

func checkSamples(t *testing.T, got, want []int16) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestDeviceRecordPush(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)
	b.transport.failures[CharStream] = []error{nil, ErrBusy, ErrResources}

	send(d, protocol.CmdRecordSound)
	if d.State().Recording != RecordCapturing {
		t.Fatalf("Expected capturing, got %d", d.State().Recording)
	}
	b.audio.fill()
	drainPush(t, d)

	if n := len(b.transport.notes[CharStream]); n != 5 {
		t.Errorf("Expected 5 chunks, got %d", n)
	}
	if d.Stream().Retries() != 2 {
		t.Errorf("Expected 2 retries, got %d", d.Stream().Retries())
	}
	data1 := b.transport.notes[CharData1]
	if len(data1) != 2 || data1[0][0] != protocol.MarkerRecordingComplete || data1[1][0] != protocol.MarkerDrainComplete {
		t.Errorf("Expected complete then drained markers, got %v", data1)
	}
	checkSamples(t, reassemble(t, b, b.transport.notes[CharStream]), b.audio.buf)
}

func TestDeviceRecordIgnoredWhileBusy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 8
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdRecordSound)
	send(d, protocol.CmdRecordSoundPi)
	if d.State().Drain != DrainPush {
		t.Error("Expected the second record request ignored")
	}
	b.audio.fill()
	drainPush(t, d)
}

func TestDeviceRecordPull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdRecordSoundPi)
	b.audio.fill()
	d.Poll()
	if d.State().Recording != RecordDraining || d.State().Drain != DrainPull {
		t.Fatalf("Expected pull drain, got %+v", d.State())
	}

	// Nothing is pushed without a poll.
	advanceMillis(100)
	d.Poll()
	if len(b.transport.notes[CharStream]) != 0 {
		t.Fatal("Expected no notifications in pull mode")
	}

	var chunks [][]byte
	for i := 0; i < 20 && d.State().Recording == RecordDraining; i++ {
		d.OnStreamPoll()
		chunks = append(chunks, b.transport.values[CharStream])
		d.Poll()
	}
	if len(chunks) != 5 {
		t.Errorf("Expected 5 polls, got %d", len(chunks))
	}
	checkSamples(t, reassemble(t, b, chunks), b.audio.buf)

	d.OnStreamPoll()
	if len(b.transport.values[CharStream]) != 0 {
		t.Error("Expected an empty value after the drain")
	}
}

func TestDeviceRecordPullTransientReply(t *testing.T) {
	tests := []struct {
		name     string
		failures []error
		polls    int
	}{
		{"reply busy", []error{nil, ErrBusy}, 6},
		{"reply and clear busy", []error{nil, ErrBusy, ErrResources}, 6},
		{"two replies busy", []error{nil, nil, ErrBusy, nil, ErrBusy}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.RecordingSamples = 45
			d, b := newTestDevice(t, cfg)

			send(d, protocol.CmdRecordSoundPi)
			b.audio.fill()
			d.Poll()
			b.transport.failures[CharStream] = tt.failures

			// The host polls, reads the value and keeps non-empty reads.
			var chunks [][]byte
			polls := 0
			for i := 0; i < 20 && d.State().Recording == RecordDraining; i++ {
				d.OnStreamPoll()
				polls++
				if v := b.transport.values[CharStream]; len(v) > 0 {
					chunks = append(chunks, v)
				}
				d.Poll()
			}

			if polls != tt.polls {
				t.Errorf("Expected %d polls, got %d", tt.polls, polls)
			}
			total := 0
			for _, c := range chunks {
				total += len(c)
			}
			if total != 90 {
				t.Fatalf("Expected 90 bytes read, got %d", total)
			}
			checkSamples(t, reassemble(t, b, chunks), b.audio.buf)
		})
	}
}

func TestDeviceRecordPullStaleValueAborts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdRecordSoundPi)
	b.audio.fill()
	d.Poll()
	b.transport.failures[CharStream] = []error{nil, ErrBusy, errors.New("invalid handle")}

	d.OnStreamPoll()
	d.Poll()
	d.OnStreamPoll()
	d.Poll()

	if d.State().Recording != RecordIdle {
		t.Errorf("Expected drain aborted when the old chunk cannot be cleared, got %d", d.State().Recording)
	}
	data1 := b.transport.notes[CharData1]
	if last := data1[len(data1)-1]; last[0] != protocol.MarkerDrainAborted {
		t.Errorf("Expected abort marker, got %#x", last[0])
	}
}

func TestDeviceRecordPullFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdRecordSoundPi)
	b.audio.fill()
	d.Poll()

	b.transport.failures[CharStream] = []error{errors.New("attribute table full")}
	d.OnStreamPoll()
	d.Poll()

	if d.State().Recording != RecordIdle {
		t.Errorf("Expected drain aborted, got %d", d.State().Recording)
	}
	data1 := b.transport.notes[CharData1]
	if last := data1[len(data1)-1]; last[0] != protocol.MarkerDrainAborted {
		t.Errorf("Expected abort marker, got %#x", last[0])
	}
}

func TestDeviceRecordFatalAbort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)
	b.transport.failAll[CharStream] = errors.New("link lost")

	send(d, protocol.CmdRecordSound)
	b.audio.fill()
	drainPush(t, d)

	data1 := b.transport.notes[CharData1]
	if len(data1) != 2 || data1[1][0] != protocol.MarkerDrainAborted {
		t.Errorf("Expected abort marker after the capture marker, got %v", data1)
	}
	if countEvents(EvtStreamAbort) != 1 {
		t.Error("Expected one stream abort event")
	}
	if d.Stream().Active() {
		t.Error("Expected stream closed")
	}
}

func TestDeviceCaptureTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordingSamples = 45
	d, b := newTestDevice(t, cfg)

	send(d, protocol.CmdRecordSound)
	advanceMillis(cfg.CaptureTimeoutMs)
	d.Poll()

	if d.State().Recording != RecordIdle {
		t.Errorf("Expected capture abandoned, got %d", d.State().Recording)
	}
	if b.audio.stops != 1 {
		t.Errorf("Expected capture stopped, got %d", b.audio.stops)
	}
	data1 := b.transport.notes[CharData1]
	if len(data1) != 1 || data1[0][0] != protocol.MarkerDrainAborted {
		t.Errorf("Expected abort marker, got %v", data1)
	}
}

func TestDeviceRecordWithoutMicrophone(t *testing.T) {
	_, b := newTestDevice(t, DefaultConfig())
	SetAudioDriver(nil)

	d, err := NewDevice(DefaultConfig(), testPins)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	if d.Sensors().HasMicrophone() {
		t.Fatal("Expected a board without microphone")
	}
	d.OnConnectionChanged(RolePeripheral, true)
	send(d, protocol.CmdRecordSound)

	if d.State().Recording != RecordIdle {
		t.Errorf("Expected no recording without a microphone, got %d", d.State().Recording)
	}
	if len(b.transport.notes[CharData1]) != 0 {
		t.Error("Expected no markers")
	}
}

func TestDeviceRelayForwarding(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())

	send(d, protocol.CmdForward)
	if len(b.transport.relayWrites) != 0 {
		t.Error("Expected no forwarding without a relay link")
	}

	send(d, protocol.CmdConnectRelay)
	if b.transport.relayConnects != 1 {
		t.Fatalf("Expected a relay connect attempt, got %d", b.transport.relayConnects)
	}
	d.OnConnectionChanged(RoleRelay, true)
	d.Poll()
	if d.State().Relay != Connected {
		t.Fatal("Expected relay connected")
	}

	send(d, protocol.CmdConnectRelay)
	if b.transport.relayConnects != 1 {
		t.Error("Expected no second connect while linked")
	}

	send(d, protocol.CmdBuzzer, 3)
	send(d, 0x77)
	send(d, protocol.CmdDisconnectRelay)

	want := []RemoteCommand{{Code: protocol.CmdBuzzer, Arg: 3}, {Code: 0x77}}
	if len(b.transport.relayWrites) != len(want) {
		t.Fatalf("Expected %d forwarded commands, got %v", len(want), b.transport.relayWrites)
	}
	for i, w := range want {
		if b.transport.relayWrites[i] != w {
			t.Errorf("Forward %d: expected %+v, got %+v", i, w, b.transport.relayWrites[i])
		}
	}
	if b.transport.relayDisconnects != 1 {
		t.Errorf("Expected a relay disconnect, got %d", b.transport.relayDisconnects)
	}

	d.OnConnectionChanged(RoleRelay, false)
	d.Poll()
	if d.State().Relay != Disconnected {
		t.Error("Expected relay disconnected")
	}
}

func TestDevicePhotovore(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.bus.set16(regResultALSVal, 1000)

	send(d, protocol.CmdPhotovore)
	st := d.State()
	if !st.Photovore {
		t.Fatal("Expected photovore on")
	}
	want := Lux(1000, 100, ALSGain1) + 20
	if st.PhotovoreThreshold != want {
		t.Errorf("Expected threshold %v, got %v", want, st.PhotovoreThreshold)
	}

	d.Poll()
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected to wait at baseline light, got %v", d.State().Motor)
	}

	b.bus.set16(regResultALSVal, 2000)
	advanceMillis(500)
	d.Poll()
	if d.State().Motor != MotorForward {
		t.Errorf("Expected to drive toward the light, got %v", d.State().Motor)
	}
	if len(b.transport.notes[CharData2]) != 2 {
		t.Errorf("Expected lux published each sample, got %d", len(b.transport.notes[CharData2]))
	}

	b.bus.set16(regResultALSVal, 1000)
	advanceMillis(500)
	d.Poll()
	if d.State().Motor != MotorSleeping {
		t.Errorf("Expected to stop in the dark, got %v", d.State().Motor)
	}

	send(d, protocol.CmdPhotovoreOff)
	if d.State().Photovore {
		t.Error("Expected photovore off")
	}
}

func TestDeviceRover(t *testing.T) {
	d, b := newTestDevice(t, DefaultConfig())
	b.bus.regs[regResultRangeVal] = 200

	send(d, protocol.CmdRoverMode)
	d.Poll()
	if d.State().Motor != MotorForward {
		t.Fatalf("Expected rover to drive forward, got %v", d.State().Motor)
	}

	b.bus.regs[regResultRangeVal] = 50
	advanceMillis(200)
	d.Poll()
	if steps := d.Stepper().Steps(); steps < 24 {
		t.Errorf("Expected an avoidance turn, got %d steps", steps)
	}
	if d.State().Motor != MotorForward {
		t.Errorf("Expected forward after avoiding, got %v", d.State().Motor)
	}
	if countEvents(EvtTurnTimeout) != 0 {
		t.Error("Expected no turn timeout")
	}

	send(d, protocol.CmdPhotovore)
	if st := d.State(); st.Rover || !st.Photovore {
		t.Error("Expected photovore to replace rover")
	}

	send(d, protocol.CmdStop)
	if st := d.State(); st.Rover || st.Photovore || st.Motor != MotorSleeping {
		t.Errorf("Expected stop to end autonomy, got %+v", st)
	}
}
