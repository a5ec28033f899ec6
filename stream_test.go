package til

import "testing"

func TestTapDrivingThenPassenger(t *testing.T) {
	s := NewStream()

	a := InitTap[float32](TapFloat, 1, "bpm")
	a.Cur[0] = 120

	passenger, err := s.Tap("ownerA", nil, "/seq", a.Tap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passenger {
		t.Fatalf("first tap to join a pipe must become the driver")
	}

	b := InitTap[float32](TapFloat, 1, "bpm")
	passenger, err = s.Tap("ownerB", nil, "/seq", b.Tap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passenger {
		t.Fatalf("second tap joining an already-driven pipe must become a passenger")
	}
	if b.Cur[0] != 120 {
		t.Fatalf("passenger should read through the driver's storage, got %v", b.Cur[0])
	}

	a.Cur[0] = 140
	if b.Cur[0] != 140 {
		t.Fatalf("passenger should observe live updates to the driver, got %v", b.Cur[0])
	}
}

func TestTapSameOwnerTapTwiceStillDrives(t *testing.T) {
	s := NewStream()
	a := InitTap[float32](TapFloat, 1, "bpm")

	if passenger, _ := s.Tap("owner", nil, "/seq", a.Tap); passenger {
		t.Fatalf("expected driving on first join")
	}
	if passenger, _ := s.Tap("owner", nil, "/seq", a.Tap); passenger {
		t.Fatalf("re-tapping the same tap must remain driving")
	}
}

func TestTapDriverSwapOnInactive(t *testing.T) {
	s := NewStream()

	a := InitTap[float32](TapFloat, 1, "bpm")
	a.Cur[0] = 1
	if passenger, _ := s.Tap("owner", nil, "/seq", a.Tap); passenger {
		t.Fatalf("expected a to drive")
	}

	a.Tap.Inactive = true
	b := InitTap[float32](TapFloat, 1, "bpm")
	b.Cur[0] = 2
	passenger, err := s.Tap("owner2", nil, "/seq", b.Tap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passenger {
		t.Fatalf("a later tap must take over driving when the incumbent is Inactive")
	}
}

func TestTapTypeMismatchPanics(t *testing.T) {
	s := NewStream()
	a := InitTap[float32](TapFloat, 1, "x")
	s.Tap("owner", nil, "/seq", a.Tap)

	b := InitTap[int32](TapI32, 1, "x")

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on type/n_elems mismatch")
		}
	}()
	s.Tap("owner2", nil, "/seq", b.Tap)
}

func TestUntapOwnerRemovesOwnedPipes(t *testing.T) {
	s := NewStream()
	a := InitTap[float32](TapFloat, 1, "x")
	owner := &struct{}{}
	s.Tap(owner, nil, "/seq", a.Tap)

	if s.PipeCount() != 1 {
		t.Fatalf("expected 1 pipe, got %d", s.PipeCount())
	}
	s.UntapOwner(owner)
	if s.PipeCount() != 0 {
		t.Fatalf("expected pipe removed after UntapOwner, got %d", s.PipeCount())
	}
}

func TestStreamHooksPipeCtorHijack(t *testing.T) {
	s := NewStream()

	hijacker := InitTap[float32](TapFloat, 1, "hijacked-storage")
	hijacker.Cur[0] = 99

	hooksCtx := &struct{}{}
	err := s.SetHooks(&StreamHooks{
		PipeCtor: func(hc any, s *Stream, owner, ownerFoo any, parentPath string, tap *Tap) (bool, any, any, *Tap) {
			return true, "hijacker-owner", nil, hijacker.Tap
		},
	}, hooksCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	original := InitTap[float32](TapFloat, 1, "x")
	passenger, err := s.Tap("moduleOwner", nil, "/seq", original.Tap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passenger {
		t.Fatalf("module's own tap should become a passenger once the hook substitutes the driver")
	}
	if original.Cur[0] != 99 {
		t.Fatalf("expected module tap to read through the hijacked driver, got %v", original.Cur[0])
	}
}

func TestSetHooksRejectsDifferentOwner(t *testing.T) {
	s := NewStream()
	ctx1, ctx2 := &struct{}{}, &struct{}{}

	if err := s.SetHooks(&StreamHooks{}, ctx1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetHooks(&StreamHooks{}, ctx2); err != ErrStreamHooksSet {
		t.Fatalf("expected ErrStreamHooksSet, got %v", err)
	}
}
