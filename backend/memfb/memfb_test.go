package memfb

import (
	"testing"

	"github.com/tilengine/til"
)

func TestSetupBakesWidthAndHeight(t *testing.T) {
	settings := til.ParseSettings("width=64,height=32")
	var resSetup *til.Setup
	if err := Setup(settings, nil, nil, &resSetup); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer resSetup.Unref()

	s := resSetup.Value.(*memfbSetup)
	if s.Width != 64 || s.Height != 32 {
		t.Fatalf("want 64x32, got %dx%d", s.Width, s.Height)
	}
}

func TestSetupUsesDefaultsWhenOmitted(t *testing.T) {
	settings := til.ParseSettings("")
	var resSetup *til.Setup
	if err := Setup(settings, nil, nil, &resSetup); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer resSetup.Unref()

	s := resSetup.Value.(*memfbSetup)
	if s.Width != 1920 || s.Height != 1080 {
		t.Fatalf("want defaults 1920x1080, got %dx%d", s.Width, s.Height)
	}
}

func TestBackendPageAllocDimensions(t *testing.T) {
	b := &Backend{Width: 8, Height: 4}
	page, err := b.PageAlloc(nil, nil)
	if err != nil {
		t.Fatalf("PageAlloc: %v", err)
	}
	if len(page.Fragment.Buf) != 32 {
		t.Fatalf("want 32 pixels backing buffer, got %d", len(page.Fragment.Buf))
	}
	if page.Fragment.Width != 8 || page.Fragment.Height != 4 {
		t.Fatalf("want 8x4 fragment, got %dx%d", page.Fragment.Width, page.Fragment.Height)
	}
}

func TestBackendAcquireInvokesOnAcquire(t *testing.T) {
	var gotW, gotH int
	b := &Backend{
		Width: 8, Height: 4,
		OnAcquire: func(pix []uint32, w, h int) { gotW, gotH = w, h },
	}
	page, err := b.PageAlloc(nil, nil)
	if err != nil {
		t.Fatalf("PageAlloc: %v", err)
	}
	if err := b.Acquire(nil, nil, page); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if gotW != 8 || gotH != 4 {
		t.Fatalf("OnAcquire not invoked with expected dims, got %dx%d", gotW, gotH)
	}
}
