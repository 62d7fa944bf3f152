package protocol

// Command codes written to the command characteristic.
const (
	CmdRight30         = 0x08
	CmdLeft30          = 0x09
	CmdRight           = 0x10
	CmdLeft            = 0x11
	CmdForward         = 0x12
	CmdBackward        = 0x13
	CmdStop            = 0x14
	CmdStopTurning     = 0x15
	CmdSleep           = 0x16
	CmdBuzzer          = 0x17
	CmdDecStepMode     = 0x18
	CmdIncStepMode     = 0x19
	CmdGetAmbient      = 0x21
	CmdGetDistance     = 0x22
	CmdRecordSound     = 0x30
	CmdIncreaseGain    = 0x31
	CmdDecreaseGain    = 0x32
	CmdRecordSoundPi   = 0x33
	CmdRoverMode       = 0x40
	CmdRoverModeOff    = 0x41
	CmdPhotovore       = 0x42
	CmdPhotovoreOff    = 0x43
	CmdConnectRelay    = 0x50
	CmdDisconnectRelay = 0x51
)

// CommandInfo describes one command code.
type CommandInfo struct {
	Code byte
	Name string
	Help string
}

// Commands lists every command the firmware understands.
var Commands = []CommandInfo{
	{CmdRight30, "right30", "turn right about 30 degrees"},
	{CmdLeft30, "left30", "turn left about 30 degrees"},
	{CmdRight, "right", "turn right continuously"},
	{CmdLeft, "left", "turn left continuously"},
	{CmdForward, "forward", "drive forward"},
	{CmdBackward, "backward", "drive backward"},
	{CmdStop, "stop", "stop and power down the motors"},
	{CmdStopTurning, "stopturn", "stop turning"},
	{CmdSleep, "sleep", "put the motor drivers to sleep"},
	{CmdBuzzer, "buzzer", "play a tone (arg selects the tone)"},
	{CmdDecStepMode, "decstep", "previous step mode"},
	{CmdIncStepMode, "incstep", "next step mode"},
	{CmdGetAmbient, "ambient", "read ambient light in lux"},
	{CmdGetDistance, "distance", "read distance in mm"},
	{CmdRecordSound, "record", "record sound, device pushes chunks"},
	{CmdIncreaseGain, "gainup", "increase microphone gain"},
	{CmdDecreaseGain, "gaindown", "decrease microphone gain"},
	{CmdRecordSoundPi, "recordpull", "record sound, host polls chunks"},
	{CmdRoverMode, "rover", "enter obstacle avoiding mode"},
	{CmdRoverModeOff, "roveroff", "leave rover mode"},
	{CmdPhotovore, "photovore", "enter light seeking mode"},
	{CmdPhotovoreOff, "photovoreoff", "leave light seeking mode"},
	{CmdConnectRelay, "relay", "connect to a peer robot and forward commands"},
	{CmdDisconnectRelay, "relayoff", "drop the peer robot connection"},
}

// LookupCommand finds a command by name.
func LookupCommand(name string) (CommandInfo, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandInfo{}, false
}

// CommandName returns the name of code, or "unknown".
func CommandName(code byte) string {
	for _, c := range Commands {
		if c.Code == code {
			return c.Name
		}
	}
	return "unknown"
}

// IsRelayControl reports whether code manages the relay link itself.
// Those codes are never forwarded to the peer.
func IsRelayControl(code byte) bool {
	return code == CmdConnectRelay || code == CmdDisconnectRelay
}
