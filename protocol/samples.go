package protocol

// PackSamples writes samples to dst as little-endian int16 and returns the
// number of bytes written. Only whole samples that fit are written.
func PackSamples(dst []byte, samples []int16) int {
	n := 0
	for _, s := range samples {
		if n+BytesPerSample > len(dst) {
			break
		}
		dst[n] = byte(uint16(s))
		dst[n+1] = byte(uint16(s) >> 8)
		n += BytesPerSample
	}
	return n
}

// UnpackSamples decodes little-endian int16 samples. A trailing odd byte
// is ignored.
func UnpackSamples(src []byte) []int16 {
	out := make([]int16, len(src)/BytesPerSample)
	for i := range out {
		out[i] = int16(uint16(src[2*i]) | uint16(src[2*i+1])<<8)
	}
	return out
}

// EncodeLux packs a lux reading into the 2-byte characteristic,
// little-endian and saturated at 65535.
func EncodeLux(lux float32) [Data2Len]byte {
	var v uint16
	switch {
	case lux <= 0:
		v = 0
	case lux >= 65535:
		v = 0xFFFF
	default:
		v = uint16(lux + 0.5)
	}
	return [Data2Len]byte{byte(v), byte(v >> 8)}
}

// DecodeLux is the inverse of EncodeLux.
func DecodeLux(b []byte) uint16 {
	if len(b) < Data2Len {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}
