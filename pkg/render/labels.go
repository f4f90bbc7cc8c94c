package render

import (
	"math"
	"strconv"
)

// FormatVScale renders volts per division the way the footer shows it:
// 5V, 500mV, 10mV, 500uV.
func FormatVScale(v float64) string {
	switch {
	case v < 0.001:
		return trimFloat(v*1e6) + "uV"
	case v < 1:
		return trimFloat(v*1e3) + "mV"
	default:
		return trimFloat(v) + "V"
	}
}

// FormatHScale renders microseconds per division: 200uS, 1mS, 100mS.
func FormatHScale(us int) string {
	if us >= 1000 {
		return trimFloat(float64(us)/1000) + "mS"
	}
	return strconv.Itoa(us) + "uS"
}

// ChannelLabel renders "CH1 500mV" for zero-based channel ch.
func ChannelLabel(ch int, vscale float64) string {
	return "CH" + strconv.Itoa(ch+1) + " " + FormatVScale(vscale)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
