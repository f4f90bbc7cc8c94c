package scope

import "fmt"

// Mode is the capture mode.
type Mode int

const (
	// Running redraws every sweep.
	Running Mode = iota
	// Stopped ignores incoming sweeps.
	Stopped
	// ArmedSingle waits for the first sweep boundary of a single shot.
	ArmedSingle
	// CapturedSingle draws one more sweep, then stops.
	CapturedSingle
)

func (m Mode) String() string {
	switch m {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case ArmedSingle:
		return "armed_single"
	case CapturedSingle:
		return "captured_single"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := Running; m <= CapturedSingle; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return Stopped, fmt.Errorf("unknown mode %q", s)
}

// Actions is what a selector frame asks the caller to do.
type Actions struct {
	// Boundary is set when the selector closed a sweep.
	Boundary bool
	// Clear erases the screen before drawing.
	Clear bool
	// Render draws and consumes every enabled channel's pending block.
	Render bool
	// DisableChannels pushes an all-off enable mask to the device.
	DisableChannels bool
}

// Advance is the capture state machine. Given the current mode, the
// active channel and the number carried by a new selector frame it returns
// the next mode and the work to do. A sweep boundary is a selector that
// repeats the active channel or names channel 0; nothing happens while
// Stopped. The caller sets the active channel to num afterwards whatever
// the outcome.
func Advance(mode Mode, active, num uint8) (Mode, Actions) {
	if mode == Stopped || (num != active && num != 0) {
		return mode, Actions{}
	}
	act := Actions{Boundary: true, Render: true}
	switch mode {
	case ArmedSingle:
		// Keep whatever is on screen; the armed trace draws over it.
		return CapturedSingle, act
	case CapturedSingle:
		act.Clear = true
		act.DisableChannels = true
		return Stopped, act
	default:
		act.Clear = true
		return mode, act
	}
}
