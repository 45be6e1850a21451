package led

import (
	"errors"
	"testing"
)

type fakeDriver struct {
	states []bool
	setErr error
	closed bool
}

func (d *fakeDriver) Set(on bool) error {
	if d.setErr != nil {
		return d.setErr
	}
	d.states = append(d.states, on)
	return nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func TestBlinkPulses(t *testing.T) {
	d := &fakeDriver{}
	l := &LED{drv: d}
	if err := l.Blink(); err != nil {
		t.Fatal(err)
	}
	if len(d.states) != 2 || !d.states[0] || d.states[1] {
		t.Fatalf("states = %v, want [true false]", d.states)
	}
}

func TestBlinkPropagatesError(t *testing.T) {
	wantErr := errors.New("busy")
	l := &LED{drv: &fakeDriver{setErr: wantErr}}
	if err := l.Blink(); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestCloseTurnsOff(t *testing.T) {
	d := &fakeDriver{}
	l := &LED{drv: d}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !d.closed {
		t.Fatal("driver not closed")
	}
	if len(d.states) != 1 || d.states[0] {
		t.Fatalf("states = %v, want [false]", d.states)
	}
}
