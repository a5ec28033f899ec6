// Package rocket implements a GNU-Rocket-style timeline sequencer on top
// of til's stream/tap graph: a Sequencer module advances a row counter from
// a configured BPM, and splices track-backed taps in as drivers for any
// float tap it observes passing through its stream, the way the original
// rkt module hijacks pipes via til_stream_hooks_t.pipe_ctor.
package rocket

import "sort"

// Key is one keyframe in a Track: at Row, the track's value is Value, and
// Type controls how the value moves from this key to the next one.
type Key struct {
	Row   int
	Value float64
	Type  InterpType
}

// InterpType controls how a Track interpolates between the Key preceding a
// queried row and the one following it.
type InterpType int

const (
	InterpStep   InterpType = iota // holds the previous key's value until the next key's row
	InterpLinear                   // linear ramp between the two surrounding keys
)

// Track is a sparse, time-indexed sequence of keyframes for one tapped
// value, named by "<parent_path>:<tap_name>" convention (matching the
// original's sync_get_track naming).
type Track struct {
	Name string
	keys []Key // kept sorted by Row
}

// NewTrack returns an empty, named track.
func NewTrack(name string) *Track {
	return &Track{Name: name}
}

// NumKeys returns the number of keyframes currently in the track. A track
// with zero keys has nothing useful to drive and should be flagged
// Inactive so some other tap can take over driving its pipe.
func (t *Track) NumKeys() int { return len(t.keys) }

// SetKey inserts or replaces the keyframe at row.
func (t *Track) SetKey(row int, value float64, interp InterpType) {
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i].Row >= row })
	if i < len(t.keys) && t.keys[i].Row == row {
		t.keys[i] = Key{Row: row, Value: value, Type: interp}
		return
	}
	t.keys = append(t.keys, Key{})
	copy(t.keys[i+1:], t.keys[i:])
	t.keys[i] = Key{Row: row, Value: value, Type: interp}
}

// DeleteKey removes the keyframe at row, if any.
func (t *Track) DeleteKey(row int) {
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i].Row >= row })
	if i < len(t.keys) && t.keys[i].Row == row {
		t.keys = append(t.keys[:i], t.keys[i+1:]...)
	}
}

// Value returns the track's interpolated value at a fractional row. With no
// keys, returns 0; before the first key or after the last, holds that key's
// value.
func (t *Track) Value(row float64) float64 {
	if len(t.keys) == 0 {
		return 0
	}

	i := sort.Search(len(t.keys), func(i int) bool { return float64(t.keys[i].Row) > row })
	if i == 0 {
		return t.keys[0].Value
	}
	prev := t.keys[i-1]
	if i == len(t.keys) {
		return prev.Value
	}
	next := t.keys[i]

	if prev.Type == InterpStep || next.Row == prev.Row {
		return prev.Value
	}

	frac := (row - float64(prev.Row)) / float64(next.Row-prev.Row)
	return prev.Value + (next.Value-prev.Value)*frac
}

// Keys returns the track's keyframes in row order. The returned slice must
// not be mutated by the caller.
func (t *Track) Keys() []Key { return t.keys }
