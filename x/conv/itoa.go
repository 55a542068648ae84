package conv

// Itoa writes n in base 10 into the tail of buf and returns the used
// slice, sign included. 20 bytes fit any int64.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf
	}
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	i := digits(buf, uint64(-n))
	if i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
