package conv

const hexDigits = "0123456789ABCDEF"

func hexPad(buf []byte, n uint64, digits int) []byte {
	if len(buf) < digits {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexDigits[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// U8Hex writes two-digit uppercase hex without 0x, zero-padded. Bus and
// register addresses print this way.
func U8Hex(buf []byte, n uint8) []byte { return hexPad(buf, uint64(n), 2) }

// U16Hex writes four-digit uppercase hex without 0x, zero-padded, the width
// of one register word.
func U16Hex(buf []byte, n uint16) []byte { return hexPad(buf, uint64(n), 4) }
