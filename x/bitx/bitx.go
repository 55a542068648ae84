package bitx

import "errors"

var (
	// ErrFieldRange reports a value wider than the destination field.
	ErrFieldRange = errors.New("bitx: value wider than field")
	// ErrBufRange reports a value wider than the destination buffer.
	ErrBufRange = errors.New("bitx: value wider than buffer")
)

// mask returns width consecutive ones in the low bits.
func mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// Extract returns the width-bit field of v starting at bit start.
// Bit 0 is the least significant bit.
func Extract(v uint64, start, width uint) uint64 {
	return v >> start & mask(width)
}

// Set returns v with the width-bit field at start replaced by field.
// The rest of v is preserved. Fails when field needs more than width bits.
func Set(v uint64, start, width uint, field uint64) (uint64, error) {
	m := mask(width)
	if field > m {
		return v, ErrFieldRange
	}
	return v&^(m<<start) | field<<start, nil
}

// Twos interprets the low bits of raw as a bits-wide two's-complement value.
func Twos(raw uint64, bits uint) int64 {
	if bits == 0 || bits >= 64 {
		return int64(raw)
	}
	raw &= mask(bits)
	if raw&(1<<(bits-1)) != 0 {
		return int64(raw | ^mask(bits))
	}
	return int64(raw)
}

// FromBytes assembles bytes into an unsigned value, most significant first.
// len(b) must not exceed 8; extra high bytes are shifted out.
func FromBytes(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// PutBytes writes v into buf most significant byte first.
// Fails when v does not fit in len(buf) bytes; buf is untouched on failure.
func PutBytes(buf []byte, v uint64) error {
	if n := uint(len(buf)); n < 8 && v > mask(8*n) {
		return ErrBufRange
	}
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return nil
}

// Bits unpacks the low n bits of v, least significant first.
func Bits(v uint64, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v>>uint(i)&1 == 1
	}
	return out
}

// FromBits packs bits into an unsigned value, bits[0] becoming bit 0.
func FromBits(bits []bool) uint64 {
	var v uint64
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}
