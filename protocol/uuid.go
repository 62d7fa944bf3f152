package protocol

// Short IDs of the service and characteristics. The full 128-bit UUID is
// the vendor base with the short ID in bytes 2 and 3.
const (
	ServiceID = 0x1523
	CommandID = 0x1525
	Data1ID   = 0x1526
	Data2ID   = 0x1527
	Data4ID   = 0x1528
	StreamID  = 0x1529
)

// BaseUUID is the vendor-specific base in canonical byte order
// (0000xxxx-ebb4-4a3f-b5e4-40d1a2c0e4b5).
var BaseUUID = [16]byte{
	0x00, 0x00, 0x00, 0x00, 0xeb, 0xb4, 0x4a, 0x3f,
	0xb5, 0xe4, 0x40, 0xd1, 0xa2, 0xc0, 0xe4, 0xb5,
}

// UUID returns the full UUID for a short ID on top of base.
func UUID(base [16]byte, short uint16) [16]byte {
	base[2] = byte(short >> 8)
	base[3] = byte(short)
	return base
}

// ShortID extracts the short ID from a full UUID.
func ShortID(u [16]byte) uint16 {
	return uint16(u[2])<<8 | uint16(u[3])
}
