package regmap

// Source is a device facade that produces a set of numeric samples per
// measurement. Values are fixed-point micro-units (µV, µ°C, µ%RH, µgauss)
// so the hot path stays off floating point; see each driver for its scale.
//
// Sample blocks for the duration of one measurement, including any channel
// switching: a facade with a FocusGroup focuses, measures, and unfocuses
// as one critical section. Callers sharing the bus hold the bus lock
// around the whole call.
type Source interface {
	// Labels names each value Sample returns, in order, e.g. "AIN0-GND".
	Labels() []string
	// Sample performs one measurement and returns one value per label.
	Sample() ([]int32, error)
}
