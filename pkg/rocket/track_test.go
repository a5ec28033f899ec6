package rocket

import "testing"

func TestTrackValueHoldsBeforeFirstAndAfterLastKey(t *testing.T) {
	tr := NewTrack("x")
	tr.SetKey(10, 1.0, InterpLinear)
	tr.SetKey(20, 3.0, InterpLinear)

	if v := tr.Value(0); v != 1.0 {
		t.Fatalf("before first key: want 1.0, got %v", v)
	}
	if v := tr.Value(30); v != 3.0 {
		t.Fatalf("after last key: want 3.0, got %v", v)
	}
}

func TestTrackValueLinearInterpolation(t *testing.T) {
	tr := NewTrack("x")
	tr.SetKey(0, 0.0, InterpLinear)
	tr.SetKey(10, 10.0, InterpLinear)

	if v := tr.Value(5); v != 5.0 {
		t.Fatalf("midpoint: want 5.0, got %v", v)
	}
	if v := tr.Value(2.5); v != 2.5 {
		t.Fatalf("quarter point: want 2.5, got %v", v)
	}
}

func TestTrackValueStepHoldsUntilNextKey(t *testing.T) {
	tr := NewTrack("x")
	tr.SetKey(0, 1.0, InterpStep)
	tr.SetKey(10, 9.0, InterpLinear)

	if v := tr.Value(9); v != 1.0 {
		t.Fatalf("step interp should hold previous value, got %v", v)
	}
}

func TestTrackSetKeyReplacesExistingRow(t *testing.T) {
	tr := NewTrack("x")
	tr.SetKey(5, 1.0, InterpLinear)
	tr.SetKey(5, 2.0, InterpLinear)

	if tr.NumKeys() != 1 {
		t.Fatalf("want 1 key after replace, got %d", tr.NumKeys())
	}
	if v := tr.Value(5); v != 2.0 {
		t.Fatalf("want replaced value 2.0, got %v", v)
	}
}

func TestTrackDeleteKey(t *testing.T) {
	tr := NewTrack("x")
	tr.SetKey(1, 1.0, InterpLinear)
	tr.SetKey(2, 2.0, InterpLinear)
	tr.DeleteKey(1)

	if tr.NumKeys() != 1 {
		t.Fatalf("want 1 key after delete, got %d", tr.NumKeys())
	}
	if tr.Keys()[0].Row != 2 {
		t.Fatalf("want remaining key at row 2, got %d", tr.Keys()[0].Row)
	}
}

func TestTrackValueEmptyTrackIsZero(t *testing.T) {
	tr := NewTrack("x")
	if v := tr.Value(0); v != 0 {
		t.Fatalf("empty track should read 0, got %v", v)
	}
}
