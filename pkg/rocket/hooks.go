package rocket

import (
	"fmt"
	"sync"

	"github.com/tilengine/til"
)

// trackPipe bundles one hijacked pipe's own tap/track pair, stowed as the
// pipe's OwnerFoo exactly as rkt_pipe_t is stashed via res_owner_foo in the
// original. set erases the underlying TapOf[float32]/TapOf[float64] so
// the rest of the package doesn't need to know which one backs a given
// track (the original's rkt_pipe_t.var/ptr union, generically).
type trackPipe struct {
	tap   *til.Tap
	track *Track
	set   func(v float64)
}

// Device owns the set of tracks a Sequencer is driving, and implements
// til.StreamHooks.PipeCtor to hijack every float tap it observes.
// Name mirrors the original's struct sync_device: one Device per Sequencer
// context, holding every track by name.
type Device struct {
	mu     sync.Mutex
	tracks map[string]*Track
	hooks  *til.StreamHooks
}

// NewDevice returns an empty Device.
func NewDevice() *Device {
	return &Device{tracks: make(map[string]*Track)}
}

// Track returns (creating if needed) the named track.
func (d *Device) Track(name string) *Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tracks[name]
	if !ok {
		t = NewTrack(name)
		d.tracks[name] = t
	}
	return t
}

// Tracks returns every track currently known to the device, in no
// particular order; used by the editor protocol's scene enumeration.
func (d *Device) Tracks() []*Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Track, 0, len(d.tracks))
	for _, t := range d.tracks {
		out = append(out, t)
	}
	return out
}

// Hooks returns the til.StreamHooks that hijack float taps into
// track-backed drivers for this device. Every call returns the same
// *StreamHooks, so re-installing them with Stream.SetHooks is idempotent.
func (d *Device) Hooks() *til.StreamHooks {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hooks == nil {
		d.hooks = &til.StreamHooks{PipeCtor: d.pipeCtor}
	}
	return d.hooks
}

// pipeCtor implements the original's rkt_stream_pipe_ctor: only float taps
// are interesting, and the hijacking tap drives only once its track has at
// least one key (otherwise it stays Inactive, leaving the original tap to
// drive until a key is added).
func (d *Device) pipeCtor(hooksCtx any, s *til.Stream, owner, ownerFoo any, parentPath string, tap *til.Tap) (bool, any, any, *til.Tap) {
	if tap.Type != til.TapFloat && tap.Type != til.TapDouble {
		return false, nil, nil, nil
	}

	trackName := fmt.Sprintf("%s:%s", parentPath, tap.Name)
	track := d.Track(trackName)

	var tp *trackPipe
	if tap.Type == til.TapFloat {
		hijack := til.InitTap[float32](til.TapFloat, 1, tap.Name)
		tp = &trackPipe{tap: hijack.Tap, track: track, set: func(v float64) { hijack.Cur[0] = float32(v) }}
	} else {
		hijack := til.InitTap[float64](til.TapDouble, 1, tap.Name)
		tp = &trackPipe{tap: hijack.Tap, track: track, set: func(v float64) { hijack.Cur[0] = v }}
	}
	tp.tap.Inactive = track.NumKeys() == 0

	driving := tap
	if track.NumKeys() > 0 {
		driving = tp.tap
	}

	return true, d, tp, driving
}

// UpdateAll walks every pipe in s this device owns, advancing its hijacked
// tap's value to the track's interpolated value at row, and re-activating
// or deactivating the hijacking tap as its track gains or loses keys --
// the Go equivalent of the original's til_stream_for_each_pipe(stream,
// rkt_pipe_update, ctxt) sweep, called once per rendered frame.
func (d *Device) UpdateAll(s *til.Stream, row float64) {
	s.ForEachPipe(func(pipe *til.Pipe) bool {
		if pipe.Owner != d {
			return true
		}
		tp, ok := pipe.OwnerFoo.(*trackPipe)
		if !ok {
			return true
		}

		if tp.track.NumKeys() == 0 {
			tp.tap.Inactive = true
			return true
		}
		tp.tap.Inactive = false

		if pipe.Driving != tp.tap {
			s.Tap(d, tp, pipe.ParentPath, tp.tap)
		}

		tp.set(tp.track.Value(row))
		return true
	})
}
