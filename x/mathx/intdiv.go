package mathx

// RoundDiv returns (a + b/2) / b, classic rounding for positives.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// RoundDivI divides rounding half away from zero. A non-positive
// divisor yields zero rather than a fault.
func RoundDivI[T ~int | ~int8 | ~int16 | ~int32 | ~int64](a, b T) T {
	if b <= 0 {
		return 0
	}
	if a < 0 {
		return -((-a + b/2) / b)
	}
	return (a + b/2) / b
}
