package viewer

import (
	"errors"
	"fmt"
	"testing"
)

type recordingControls struct {
	calls []string
	err   error
}

func (c *recordingControls) ToggleRun() error {
	c.calls = append(c.calls, "run")
	return c.err
}

func (c *recordingControls) Single() (bool, error) {
	c.calls = append(c.calls, "single")
	return true, c.err
}

func (c *recordingControls) StepHScale(d int) error {
	c.calls = append(c.calls, fmt.Sprintf("h%+d", d))
	return c.err
}

func (c *recordingControls) ToggleChannel(ch int) error {
	c.calls = append(c.calls, fmt.Sprintf("ch%d", ch))
	return c.err
}

func (c *recordingControls) StepVScale(ch, d int) error {
	c.calls = append(c.calls, fmt.Sprintf("v%d%+d", ch, d))
	return c.err
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		r    rune
		want string
	}{
		{'r', "run"},
		{'s', "single"},
		{'h', "h-1"},
		{'H', "h+1"},
		{'1', "ch0"},
		{'2', "ch1"},
		{'[', "v0-1"},
		{']', "v0+1"},
		{'{', "v1-1"},
		{'}', "v1+1"},
	}
	for _, tt := range tests {
		c := &recordingControls{}
		if err := Dispatch(c, tt.r); err != nil {
			t.Errorf("Dispatch(%q) = %v", tt.r, err)
		}
		if len(c.calls) != 1 || c.calls[0] != tt.want {
			t.Errorf("Dispatch(%q) calls = %v, want [%s]", tt.r, c.calls, tt.want)
		}
	}
}

func TestDispatchQuitAndUnbound(t *testing.T) {
	c := &recordingControls{}
	if err := Dispatch(c, 'q'); !errors.Is(err, ErrQuit) {
		t.Errorf("q = %v, want ErrQuit", err)
	}
	if err := Dispatch(c, 'x'); err != nil {
		t.Errorf("x = %v, want nil", err)
	}
	if len(c.calls) != 0 {
		t.Errorf("unexpected calls %v", c.calls)
	}
}

func TestDispatchPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &recordingControls{err: boom}
	if err := Dispatch(c, 's'); !errors.Is(err, boom) {
		t.Errorf("s = %v, want boom", err)
	}
}
