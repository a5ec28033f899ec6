package til

// TapType identifies the concrete element type behind a Tap, so the
// stream can enforce that two taps sharing a (name, parent path) actually
// agree on type and element count before joining them into the same pipe.
type TapType int

const (
	TapI8 TapType = iota
	TapI16
	TapI32
	TapI64
	TapU8
	TapU16
	TapU32
	TapU64
	TapFloat
	TapDouble
	TapV2F
	TapV3F
	TapV4F
	TapM4F
	TapVoidP
)

// V2F, V3F, V4F and M4F are the vector/matrix element types taps may
// carry, matching the original's higher-order wrapper types.
type V2F struct{ X, Y float32 }
type V3F struct{ X, Y, Z float32 }
type V4F struct{ X, Y, Z, W float32 }
type M4F [4][4]float32

// Tap is the type-erased, stream-visible half of a tap: everything the
// stream needs to match taps into a Pipe, swap drivers, and let
// introspection/Rocket walk values generically, without the stream itself
// needing to know the concrete element type T.
//
// The owner-facing, type-safe half is TapOf[T] (see InitTap); Tap.redirect
// is how the stream tells an owner's TapOf to re-point its Cur slice at
// either its own storage or another tap's, which is the Go analog of the
// original's `*tap->ptr` indirection-pointer swap: here it's a slice
// header swap instead of a raw pointer, so there's no unsafe involved and
// the type system still enforces that only same-T taps ever get joined.
type Tap struct {
	Type     TapType
	Name     string
	NameHash uint32
	NElems   int

	Inactive bool // true: this tap does not wish to drive its pipe

	redirect     func(driver *Tap) // re-point the owning TapOf's Cur at driver's storage (nil driver = own storage)
	values       func() []float64  // best-effort numeric snapshot for introspection/Rocket; set by InitTap for every type
	ownerStorage any               // the *TapOf[T] that owns this tap, type-erased so other taps' redirect closures can type-assert it
}

// Values returns a best-effort numeric snapshot of the tap's current
// elements; elements with no natural scalar projection (vectors, matrices,
// TapVoidP) read as 0. It returns nil only for a Tap not made by InitTap.
// Used by debug dumps and the Rocket sequencer's track
// sampling, neither of which should need a type switch over every
// TapType to read "the current numbers".
func (t *Tap) Values() []float64 {
	if t.values == nil {
		return nil
	}
	return t.values()
}

// sameShape reports whether t and other could plausibly share a pipe
// (matching type and element count). A true assertion failure here (two
// taps with the same (name, parent_path) but different shape) indicates a
// programmer bug and is handled by panicking at the call site, not here.
func (t *Tap) sameShape(other *Tap) bool {
	return t.Type == other.Type && t.NElems == other.NElems
}

// TapOf is the owner-facing, type-safe handle returned by InitTap[T]. The
// owning module reads/writes Cur directly; after every Stream.Tap(...)
// call Cur is re-pointed at whichever storage is currently driving the
// pipe (its own, when driving, or another tap's, when a passenger).
type TapOf[T any] struct {
	Tap   *Tap
	local []T
	Cur   []T
}

// InitTap creates a new tap of nElems elements of type T named name, with
// its local storage pre-initialized to the zero value of T. Tap
// initialization never touches a Stream -- joining happens the first time
// Stream.Tap is called with the returned *Tap.
func InitTap[T any](tt TapType, nElems int, name string) *TapOf[T] {
	if nElems < 1 {
		nElems = 1
	}

	to := &TapOf[T]{
		local: make([]T, nElems),
	}
	to.Cur = to.local

	tap := &Tap{
		Type:     tt,
		Name:     name,
		NameHash: JenkinsString(name),
		NElems:   nElems,
	}
	tap.redirect = func(driver *Tap) {
		if driver == nil {
			to.Cur = to.local
			return
		}
		if s, ok := driver.ownerStorage.(*TapOf[T]); ok {
			to.Cur = s.local
			return
		}
		// shape mismatch would have panicked before reaching here; this
		// is reachable only if a caller bypasses Stream.Tap entirely.
		to.Cur = to.local
	}
	tap.ownerStorage = to
	tap.values = func() []float64 {
		out := make([]float64, len(to.Cur))
		for i, v := range to.Cur {
			out[i] = toFloat64(v)
		}
		return out
	}

	to.Tap = tap
	return to
}

// toFloat64 best-effort-converts a tap element to float64 for
// introspection; vector/matrix/void types fall back to 0 components via
// the type switch's default (their Values() output is cosmetic only).
func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
