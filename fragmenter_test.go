package til

import "testing"

func TestSlicePerCPUCoverage(t *testing.T) {
	parent := Fragment{Width: 800, Height: 600, FrameWidth: 800, FrameHeight: 600, Pitch: 800}
	ctx := &Context{NCPUs: 4}

	var heights []int
	for n := 0; ; n++ {
		var frag Fragment
		if !SlicePerCPU(ctx, &parent, n, &frag) {
			break
		}
		heights = append(heights, frag.Height)
	}

	if len(heights) != 4 {
		t.Fatalf("got %d fragments, want 4", len(heights))
	}
	for _, h := range heights {
		if h != 150 {
			t.Fatalf("heights = %v, want all 150", heights)
		}
	}
}

func TestSlicePerCPUUnevenCoverage(t *testing.T) {
	parent := Fragment{Width: 100, Height: 100, FrameWidth: 100, FrameHeight: 100, Pitch: 100}
	ctx := &Context{NCPUs: 3}

	total := 0
	y := 0
	for n := 0; ; n++ {
		var frag Fragment
		if !SlicePerCPU(ctx, &parent, n, &frag) {
			break
		}
		if frag.Y != y {
			t.Fatalf("fragment %d: Y=%d, want %d (bands must be contiguous)", n, frag.Y, y)
		}
		y += frag.Height
		total += frag.Height
	}
	if total != 100 {
		t.Fatalf("total height covered = %d, want 100", total)
	}
}

func TestTile64Coverage(t *testing.T) {
	parent := Fragment{Width: 130, Height: 70, FrameWidth: 130, FrameHeight: 70, Pitch: 130}
	ctx := &Context{NCPUs: 2}

	var area int
	for n := 0; ; n++ {
		var frag Fragment
		if !Tile64(ctx, &parent, n, &frag) {
			break
		}
		area += frag.Width * frag.Height
	}
	if area != 130*70 {
		t.Fatalf("total tiled area = %d, want %d", area, 130*70)
	}
}
