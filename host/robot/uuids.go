package robot

import (
	"fmt"

	"github.com/google/uuid"

	"skoobot/protocol"
)

// UUIDs holds the string forms of the service and characteristic UUIDs.
type UUIDs struct {
	Service string
	Command string
	Data1   string
	Data2   string
	Data4   string
	Stream  string
}

// NewUUIDs derives every UUID from a vendor base. Firmware builds with a
// different base can be reached by passing it here.
func NewUUIDs(base uuid.UUID) UUIDs {
	b := [16]byte(base)
	derive := func(short uint16) string {
		return uuid.UUID(protocol.UUID(b, short)).String()
	}
	return UUIDs{
		Service: derive(protocol.ServiceID),
		Command: derive(protocol.CommandID),
		Data1:   derive(protocol.Data1ID),
		Data2:   derive(protocol.Data2ID),
		Data4:   derive(protocol.Data4ID),
		Stream:  derive(protocol.StreamID),
	}
}

// DefaultUUIDs returns the UUIDs of the stock firmware.
func DefaultUUIDs() UUIDs {
	return NewUUIDs(uuid.UUID(protocol.BaseUUID))
}

// ParseBase parses a base UUID override. The short ID bytes are ignored.
func ParseBase(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("robot: parse base UUID: %w", err)
	}
	u[2], u[3] = 0, 0
	return u, nil
}
