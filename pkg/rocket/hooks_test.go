package rocket

import (
	"testing"

	"github.com/tilengine/til"
)

func TestDeviceHijacksFloatTapOnceTrackHasKeys(t *testing.T) {
	s := til.NewStream()
	d := NewDevice()

	if err := s.SetHooks(d.Hooks(), d); err != nil {
		t.Fatalf("SetHooks: %v", err)
	}

	a := til.InitTap[float32](til.TapFloat, 1, "bpm")
	passenger, err := s.Tap("owner", nil, "/seq", a.Tap)
	if err != nil {
		t.Fatalf("Tap: %v", err)
	}
	if passenger {
		t.Fatalf("with no track keys yet, the original tap should keep driving")
	}

	d.Track("/seq:bpm").SetKey(0, 125, InterpStep)
	d.UpdateAll(s, 0)

	if a.Cur[0] != 125 {
		t.Fatalf("hijacked tap should now drive with the track's value, got %v", a.Cur[0])
	}
}

func TestDeviceIgnoresNonFloatTaps(t *testing.T) {
	s := til.NewStream()
	d := NewDevice()
	if err := s.SetHooks(d.Hooks(), d); err != nil {
		t.Fatalf("SetHooks: %v", err)
	}

	a := til.InitTap[int32](til.TapI32, 1, "count")
	passenger, err := s.Tap("owner", nil, "/seq", a.Tap)
	if err != nil {
		t.Fatalf("Tap: %v", err)
	}
	if passenger {
		t.Fatalf("non-float tap must never be hijacked")
	}
}
