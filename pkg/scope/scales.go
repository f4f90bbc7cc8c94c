package scope

// HScales are the horizontal time-per-division steps in microseconds.
var HScales = []int{100, 200, 500, 1000, 2000, 5000, 10000, 20000, 50000, 100000}

// VScales are the vertical volts-per-division steps.
var VScales = []float64{5.0, 2.0, 1.0, 0.5, 0.2, 0.1, 0.05, 0.02, 0.01}

const (
	// DefaultHScaleIndex selects 1 ms/div.
	DefaultHScaleIndex = 3
	// DefaultVScaleIndex selects 500 mV/div.
	DefaultVScaleIndex = 3
)

// ClampHScaleIndex forces i into the HScales range.
func ClampHScaleIndex(i int) int {
	return clampInt(i, 0, len(HScales)-1)
}

// ClampVScaleIndex forces i into the VScales range.
func ClampVScaleIndex(i int) int {
	return clampInt(i, 0, len(VScales)-1)
}

// ClampOffsetPercent forces a relative offset into 0..100.
func ClampOffsetPercent(p float64) float64 {
	if p != p { // NaN
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
