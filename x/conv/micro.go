package conv

// Micro writes n micro-units as fixed-point decimal ("1.252500", "-0.016000").
// The fraction is always six digits. buf should be length >= 21.
func Micro(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	neg := n < 0
	var u uint64
	if neg {
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	ip := u / 1_000_000
	fp := u % 1_000_000

	i := len(buf)
	for j := 0; j < 6 && i > 0; j++ {
		i--
		buf[i] = byte('0' + fp%10)
		fp /= 10
	}
	if i > 0 {
		i--
		buf[i] = '.'
	}
	if ip == 0 {
		if i > 0 {
			i--
			buf[i] = '0'
		}
	} else {
		for ip > 0 && i > 0 {
			i--
			buf[i] = byte('0' + ip%10)
			ip /= 10
		}
	}
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
