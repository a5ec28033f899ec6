// Package memfb is a reference til.FBOps backend that renders into plain
// in-process []uint32 buffers instead of a real display device. It exists
// so cmd/til and tests can drive the full Pool/Stream/FB pipeline headless,
// the Go analog of the original's in-memory mem_fb backend used for
// benchmarks and CI.
package memfb

import (
	"fmt"

	"github.com/tilengine/til"
)

type memfbSetup struct {
	Width, Height int
}

// Setup implements til.FBOps.Setup: "width" and "height" settings, both
// positive integers. A bare key, or a key missing when resDesc is nil,
// takes the preferred 1920x1080.
func Setup(settings *til.Settings, resSetting **til.Setting, resDesc **til.SettingDesc, resSetup **til.Setup) error {
	widthDesc := &til.SettingDesc{Name: "Frame width", Key: "width", Preferred: "1920"}
	widthSetting, ok, err := til.GetAndDescribe(settings, widthDesc, resSetting, resDesc)
	if err != nil || !ok {
		return err
	}

	heightDesc := &til.SettingDesc{Name: "Frame height", Key: "height", Preferred: "1080"}
	heightSetting, ok, err := til.GetAndDescribe(settings, heightDesc, resSetting, resDesc)
	if err != nil || !ok {
		return err
	}

	if resSetup == nil {
		return nil
	}

	w, err := atoiPositive(valueOr(widthSetting, widthDesc.Preferred))
	if err != nil {
		return fmt.Errorf("memfb: width: %w", err)
	}
	h, err := atoiPositive(valueOr(heightSetting, heightDesc.Preferred))
	if err != nil {
		return fmt.Errorf("memfb: height: %w", err)
	}

	*resSetup = til.NewSetup(settings.Serialize(), nil, &memfbSetup{Width: w, Height: h}, nil)
	return nil
}

func valueOr(s *til.Setting, preferred string) string {
	if s.Value == nil {
		return preferred
	}
	return *s.Value
}

func atoiPositive(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a positive integer: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 0, fmt.Errorf("must be > 0")
	}
	return n, nil
}

// Backend implements til.FBOps over in-memory pixel buffers. OnAcquire, if
// set, is called with the page about to become visible -- a test or a
// headless recorder's hook point, standing in for a real display's modeset.
type Backend struct {
	Width, Height int
	OnAcquire     func(pix []uint32, width, height int)
}

// Setup implements til.FBOps.Setup by delegating to the package-level
// Setup function, so a *Backend can be registered directly as an FBOps.
func (b *Backend) Setup(settings *til.Settings, resSetting **til.Setting, resDesc **til.SettingDesc, resSetup **til.Setup) error {
	return Setup(settings, resSetting, resDesc, resSetup)
}

// Init implements til.FBOps.Init for an already-constructed Backend: it
// re-derives Width/Height from settings and returns itself as the
// backend-private context (memfb needs no separate context type).
func (b *Backend) Init(settings *til.Settings) (any, error) {
	var resSetup *til.Setup
	if err := Setup(settings, nil, nil, &resSetup); err != nil {
		return nil, err
	}
	defer resSetup.Unref()
	s := resSetup.Value.(*memfbSetup)
	b.Width, b.Height = s.Width, s.Height
	return b, nil
}

// NewBackend runs Setup against settings and constructs a Backend sized
// from the result, for callers that hold a complete settings string (eg.
// cmd/til after parsing os.Args) and just want the resulting backend.
func NewBackend(settings *til.Settings) (*Backend, error) {
	var resSetup *til.Setup
	if err := Setup(settings, nil, nil, &resSetup); err != nil {
		return nil, err
	}
	defer resSetup.Unref()
	s := resSetup.Value.(*memfbSetup)
	return &Backend{Width: s.Width, Height: s.Height}, nil
}

func (b *Backend) Shutdown(fb *til.FB, ctx any) {}

func (b *Backend) Acquire(fb *til.FB, ctx any, p *til.Page) error {
	if b.OnAcquire != nil {
		pg := p.Fragment
		b.OnAcquire(pg.Buf, pg.FrameWidth, pg.FrameHeight)
	}
	return nil
}

func (b *Backend) Release(fb *til.FB, ctx any) {}

func (b *Backend) PageAlloc(fb *til.FB, ctx any) (*til.Page, error) {
	pix := make([]uint32, b.Width*b.Height)
	return &til.Page{
		Fragment: til.Fragment{
			Buf:         pix,
			X:           0,
			Y:           0,
			Width:       b.Width,
			Height:      b.Height,
			FrameWidth:  b.Width,
			FrameHeight: b.Height,
			Stride:      0,
			Pitch:       b.Width,
		},
	}, nil
}

func (b *Backend) PageFree(fb *til.FB, ctx any, p *til.Page) error { return nil }

// PageFlip is a no-op beyond bookkeeping: there is no real vsync to wait
// for, so it returns immediately, making memfb render as fast as the pool
// can produce frames.
func (b *Backend) PageFlip(fb *til.FB, ctx any, p *til.Page) error { return nil }

var _ til.FBOps = (*Backend)(nil)
