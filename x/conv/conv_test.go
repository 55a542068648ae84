package conv

import "testing"

func TestItoa(t *testing.T) {
	var buf [20]byte
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-7, "-7"},
		{1234567890, "1234567890"},
		{-9223372036854775808, "-9223372036854775808"},
	}
	for _, c := range cases {
		if got := string(Itoa(buf[:], c.n)); got != c.want {
			t.Errorf("Itoa(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestUtoa(t *testing.T) {
	var buf [20]byte
	cases := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{9, "9"},
		{65535, "65535"},
		{18446744073709551615, "18446744073709551615"},
	}
	for _, c := range cases {
		if got := string(Utoa(buf[:], c.n)); got != c.want {
			t.Errorf("Utoa(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestHex(t *testing.T) {
	var buf [8]byte
	u8 := []struct {
		n    uint8
		want string
	}{
		{0x00, "00"},
		{0x0F, "0F"},
		{0x68, "68"},
		{0xFF, "FF"},
	}
	for _, c := range u8 {
		if got := string(U8Hex(buf[:], c.n)); got != c.want {
			t.Errorf("U8Hex(%#x) = %q, want %q", c.n, got, c.want)
		}
	}
	u16 := []struct {
		n    uint16
		want string
	}{
		{0x0000, "0000"},
		{0x00FF, "00FF"},
		{0xBEEF, "BEEF"},
	}
	for _, c := range u16 {
		if got := string(U16Hex(buf[:], c.n)); got != c.want {
			t.Errorf("U16Hex(%#x) = %q, want %q", c.n, got, c.want)
		}
	}
	// a buffer too small for the digit count yields nothing rather than panicking
	if got := U16Hex(buf[:3], 0x1234); len(got) != 0 {
		t.Errorf("U16Hex(short buf) = %q, want empty", got)
	}
}

func TestMicro(t *testing.T) {
	var buf [24]byte
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0.000000"},
		{1, "0.000001"},
		{1_252_500, "1.252500"},
		{-16_000, "-0.016000"},
		{42_500_000, "42.500000"},
		{-2_000_000, "-2.000000"},
		{999_999, "0.999999"},
	}
	for _, c := range cases {
		if got := string(Micro(buf[:], c.n)); got != c.want {
			t.Errorf("Micro(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}
