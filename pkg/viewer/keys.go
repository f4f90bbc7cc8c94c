// Package viewer opens a desktop window showing the live scope display.
// The window accepts the same single-key controls as the terminal panel.
package viewer

import "errors"

// Controls is what the window keys drive. *scope.Remote implements it.
type Controls interface {
	ToggleRun() error
	Single() (bool, error)
	StepHScale(delta int) error
	ToggleChannel(ch int) error
	StepVScale(ch, delta int) error
}

// ErrQuit is returned by Dispatch for the quit key.
var ErrQuit = errors.New("viewer: quit")

// Dispatch applies the control bound to r. Unbound keys are ignored.
func Dispatch(ctl Controls, r rune) error {
	switch r {
	case 'q', 'Q':
		return ErrQuit
	case 'r':
		return ctl.ToggleRun()
	case 's':
		_, err := ctl.Single()
		return err
	case 'h':
		return ctl.StepHScale(-1)
	case 'H':
		return ctl.StepHScale(+1)
	case '1':
		return ctl.ToggleChannel(0)
	case '2':
		return ctl.ToggleChannel(1)
	case '[':
		return ctl.StepVScale(0, -1)
	case ']':
		return ctl.StepVScale(0, +1)
	case '{':
		return ctl.StepVScale(1, -1)
	case '}':
		return ctl.StepVScale(1, +1)
	}
	return nil
}
