package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with rounding and
// 32-bit intermediates. Input outside the range clamps to the matching
// output bound; a degenerate input range maps everything to outMin.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax == inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return outMin + uint16(RoundDiv(num, den))
}
