package main

import "testing"

func TestNextStage(t *testing.T) {
	cases := []struct{ in, want string }{
		{StageAging, StageCoating},
		{StageCoating, StageCompleted},
		{StageCompleted, ""},
		{"bogus", ""},
	}
	for _, c := range cases {
		if got := nextStage(c.in); got != c.want {
			t.Errorf("nextStage(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		current, requested string
		noop               bool
		errKind            ErrorKind
		wantErr            bool
	}{
		{StageAging, StageCoating, false, 0, false},
		{StageCoating, StageCompleted, false, 0, false},
		{StageAging, StageAging, true, 0, false},
		{StageCompleted, StageCompleted, true, 0, false},
		{StageAging, StageCompleted, false, ErrInvalidTransition, true},
		{StageCoating, StageAging, false, ErrInvalidTransition, true},
		{StageCompleted, StageAging, false, ErrInvalidTransition, true},
		{StageCompleted, StageCoating, false, ErrInvalidTransition, true},
	}
	for _, c := range cases {
		noop, err := validateTransition(c.current, c.requested)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s -> %s: expected error", c.current, c.requested)
				continue
			}
			if errKind(err) != c.errKind {
				t.Errorf("%s -> %s: wrong error kind: %v", c.current, c.requested, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s -> %s: unexpected error: %v", c.current, c.requested, err)
		}
		if noop != c.noop {
			t.Errorf("%s -> %s: noop = %v, want %v", c.current, c.requested, noop, c.noop)
		}
	}
}

func TestDayKey(t *testing.T) {
	if got := dayKey("2026-03-01T14:22:09"); got != "2026-03-01" {
		t.Errorf("dayKey = %q", got)
	}
	if got := dayKey("short"); got != "short" {
		t.Errorf("dayKey short input = %q", got)
	}
}
