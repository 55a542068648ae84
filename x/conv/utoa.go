package conv

// digits writes u in base 10 backwards from the end of buf and returns
// the first used index. A too-small buffer truncates high digits.
func digits(buf []byte, u uint64) int {
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 || i == 0 {
			return i
		}
	}
}

// Utoa writes u in base 10 into the tail of buf and returns the used
// slice. 20 bytes fit any uint64. No allocations, no strconv.
func Utoa(buf []byte, u uint64) []byte {
	if len(buf) == 0 {
		return buf
	}
	return buf[digits(buf, u):]
}
