package til

import (
	"context"
	"strings"
	"testing"
)

func TestBlankRenderFragmentClears(t *testing.T) {
	stream := NewStream()
	defer stream.End()

	settings := ParseSettings("")
	var resSetup *Setup
	if err := blankModule.Setup(settings, nil, nil, &resSetup); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer resSetup.Unref()

	ctx, err := NewContext(blankModule, stream, 1, 0, 1, resSetup)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer DestroyContext(ctx, stream)

	frag := &Fragment{Width: 4, Height: 4, FrameWidth: 4, FrameHeight: 4, Pitch: 4, Buf: make([]uint32, 16)}
	ModuleRender(context.Background(), blankModule, ctx, nil, stream, 1, &frag)

	if !frag.Cleared {
		t.Fatalf("blank should clear the fragment")
	}
}

func TestRefRenderProxyDrawsBadPathDiagnostic(t *testing.T) {
	stream := NewStream()
	defer stream.End()

	resSetup := NewSetup("/ref", refModule, &refSetup{Path: "/missing"}, nil)
	defer resSetup.Unref()

	ctx, err := NewContext(refModule, stream, 1, 0, 1, resSetup)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer DestroyContext(ctx, stream)

	frag := &Fragment{Width: 64, Height: 8, FrameWidth: 64, FrameHeight: 8, Pitch: 64, Buf: make([]uint32, 64*8)}
	ModuleRender(context.Background(), refModule, ctx, nil, stream, 1, &frag)

	if !strings.Contains(frag.FirstRowText, `BAD PATH "/missing"`) {
		t.Fatalf("want diagnostic containing BAD PATH %q, got %q", "/missing", frag.FirstRowText)
	}

	var lit bool
	for _, px := range frag.Buf[:frag.Pitch] {
		if px == 0xffffffff {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("expected at least one lit diagnostic pixel in row 0")
	}
}

func TestRefRenderProxyFollowsResolvedContext(t *testing.T) {
	stream := NewStream()
	defer stream.End()

	blankSu := NewSetup("/blank", blankModule, &blankSetup{}, nil)
	defer blankSu.Unref()
	blankCtx, err := NewContext(blankModule, stream, 1, 0, 1, blankSu)
	if err != nil {
		t.Fatalf("NewContext(blank): %v", err)
	}
	defer DestroyContext(blankCtx, stream)

	refSu := NewSetup("/ref", refModule, &refSetup{Path: "/blank"}, nil)
	defer refSu.Unref()
	refCtx, err := NewContext(refModule, stream, 1, 0, 1, refSu)
	if err != nil {
		t.Fatalf("NewContext(ref): %v", err)
	}
	defer DestroyContext(refCtx, stream)

	frag := &Fragment{Width: 4, Height: 4, FrameWidth: 4, FrameHeight: 4, Pitch: 4, Buf: make([]uint32, 16)}
	ModuleRender(context.Background(), refModule, refCtx, nil, stream, 1, &frag)

	if !frag.Cleared {
		t.Fatalf("ref should have followed the path to blank and cleared the fragment")
	}
	if frag.FirstRowText != "" {
		t.Fatalf("resolved ref should not draw a diagnostic, got %q", frag.FirstRowText)
	}
}
