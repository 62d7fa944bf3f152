package core

import (
	"sync/atomic"

	"skoobot/protocol"
)

// startRecording begins a capture that is drained with mode once the
// buffer is full. A recording already in progress is left alone.
func (d *Device) startRecording(mode DrainMode) error {
	if d.state.Recording != RecordIdle {
		DebugPrintln("[REC] busy, ignoring record request")
		return nil
	}
	if err := d.sensors.StartCapture(d.recording); err != nil {
		return err
	}
	d.state.Drain = mode
	d.captureStart = Millis()
	d.setRecording(RecordCapturing)
	return nil
}

// serviceRecording advances capture and drain by one step.
func (d *Device) serviceRecording() {
	switch d.state.Recording {
	case RecordCapturing:
		if d.sensors.CaptureDone() {
			d.beginDrain()
			return
		}
		if elapsedSince(d.captureStart) >= d.cfg.CaptureTimeoutMs {
			DebugPrintln("[REC] capture timeout")
			d.abortRecording(true)
		}

	case RecordDraining:
		if atomic.LoadUint32(&d.pullFailed) == 1 {
			DebugPrintln("[REC] pull reply failed")
			d.abortRecording(true)
			return
		}
		if elapsedSince(d.drainStart) >= d.cfg.DrainDeadlineMs {
			DebugPrintln("[REC] drain deadline exceeded at " + utoa(d.stream.Cursor()) + "/" + utoa(d.stream.Total()))
			d.abortRecording(true)
			return
		}
		if d.stream.Finished() {
			d.finishDrain()
			return
		}
		if d.state.Drain == DrainPush && timeReached(d.nextPush) {
			d.pushChunk()
		}
	}
}

func (d *Device) beginDrain() {
	d.publishByte(CharData1, protocol.MarkerRecordingComplete)
	d.stream.Begin(d.recording)
	d.drainStart = Millis()
	d.nextPush = d.drainStart
	atomic.StoreUint32(&d.pullFailed, 0)
	if d.state.Drain == DrainPull {
		atomic.StoreUint32(&d.pullEnabled, 1)
	}
	d.setRecording(RecordDraining)
}

func (d *Device) pushChunk() {
	err := d.stream.Next(d.notifyStream)
	switch {
	case err == nil:
		d.nextPush = Millis() + d.cfg.PushIntervalMs
	case IsTransient(err):
		RecordEvent(EvtStreamRetry, 0, d.stream.Cursor(), d.stream.Retries())
		d.nextPush = Millis() + d.cfg.RetryDelayMs
	default:
		DebugPrintln("[REC] chunk send failed: " + err.Error())
		d.abortRecording(true)
	}
}

// finishDrain sends the single end-of-recording marker.
func (d *Device) finishDrain() {
	if !timeReached(d.nextPush) {
		return
	}
	err := d.stream.SendSentinel(protocol.MarkerDrainComplete, d.notifyData1)
	switch {
	case err == nil:
		d.endPull()
		DebugPrintln("[REC] drained " + utoa(d.stream.Total()) + " bytes, " +
			utoa(d.stream.Retries()) + " retries")
		d.setRecording(RecordIdle)
	case IsTransient(err):
		RecordEvent(EvtStreamRetry, 1, d.stream.Cursor(), d.stream.Retries())
		d.nextPush = Millis() + d.cfg.RetryDelayMs
	default:
		d.abortRecording(true)
	}
}

// abortRecording stops capture or drain and returns to idle. With notify
// set the host is told the drain was aborted.
func (d *Device) abortRecording(notify bool) {
	d.endPull()
	d.sensors.StopCapture()
	d.stream.Abort()
	RecordEvent(EvtStreamAbort, uint8(d.state.Recording), d.stream.Cursor(), d.stream.Total())
	d.setRecording(RecordIdle)
	if notify {
		d.publishByte(CharData1, protocol.MarkerDrainAborted)
	}
}

// endPull stops answering polls and empties the stream value so a late
// poll never reads the last chunk twice.
func (d *Device) endPull() {
	state := disableInterrupts()
	was := atomic.SwapUint32(&d.pullEnabled, 0)
	restoreInterrupts(state)
	if was == 1 {
		d.clearStreamValue()
	}
}

func (d *Device) setRecording(r RecordState) {
	if d.state.Recording == r {
		return
	}
	d.state.Recording = r
	RecordEvent(EvtRecordState, uint8(r), 0, 0)
}
