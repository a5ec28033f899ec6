package rocket

import (
	"context"
	"testing"

	"github.com/tilengine/til"
)

func TestSequencerSetupComputesRowsPerMs(t *testing.T) {
	settings := til.ParseSettings("seq_module=blank,bpm=120,rpb=4")
	var resSetup *til.Setup
	if err := Module.Setup(settings, nil, nil, &resSetup); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer resSetup.Unref()

	s := resSetup.Value.(*sequencerSetup)
	want := float64(120*4) / (60.0 * 1000.0)
	if s.RowsPerMs != want {
		t.Fatalf("want RowsPerMs %v, got %v", want, s.RowsPerMs)
	}
	if s.SeqModule.Name != "blank" {
		t.Fatalf("want wrapped module 'blank', got %q", s.SeqModule.Name)
	}
}

func TestSequencerSetupRejectsSelfReference(t *testing.T) {
	settings := til.ParseSettings("seq_module=sequencer")
	var resSetup *til.Setup
	err := Module.Setup(settings, nil, nil, &resSetup)
	if err != til.ErrInvalid {
		t.Fatalf("want ErrInvalid for seq_module=sequencer, got %v", err)
	}
}

func TestSequencerSetupRejectsUnknownModule(t *testing.T) {
	settings := til.ParseSettings("seq_module=does_not_exist")
	var resSetup *til.Setup
	err := Module.Setup(settings, nil, nil, &resSetup)
	if err != til.ErrNotExist {
		t.Fatalf("want ErrNotExist for unknown seq_module, got %v", err)
	}
}

func TestSequencerCreateContextAndRenderProxy(t *testing.T) {
	stream := til.NewStream()
	defer stream.End()

	settings := til.ParseSettings("seq_module=blank,bpm=125,rpb=8")
	var resSetup *til.Setup
	if err := Module.Setup(settings, nil, nil, &resSetup); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer resSetup.Unref()

	ctx, err := til.NewContext(Module, stream, 1, 0, 1, resSetup)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer til.DestroyContext(ctx, stream)

	frag := &til.Fragment{Width: 4, Height: 4, FrameWidth: 4, FrameHeight: 4, Pitch: 4, Buf: make([]uint32, 16)}
	til.ModuleRender(context.Background(), Module, ctx, nil, stream, 10, &frag)

	if !frag.Cleared {
		t.Fatalf("rendering through sequencer->blank should clear the fragment")
	}
}
