package til

// Fragment is a view of a rectangular region of 32-bit packed RGB pixels
// (0x00RRGGBB, native byte order, alpha ignored) within an enclosing frame.
//
// Invariant: Pitch == Width + Stride, and the region described by
// (X, Y, Width, Height) lies entirely within (FrameWidth, FrameHeight).
type Fragment struct {
	Buf []uint32 // backing buffer; Buf[0] is pixel (X, Y), rows are Pitch apart

	X, Y          int // absolute offset of this region within the frame
	Width, Height int // dimensions of this region

	FrameWidth, FrameHeight int // dimensions of the enclosing frame

	Stride int // padding pixels between the end of one row and the next
	Pitch  int // pixels from one row's start to the next (Width + Stride)

	Number int // sequence number assigned by a Fragmenter

	Cleared bool // true once this region has been fully written this frame

	// Texture is an optional parallel fragment a renderer may sample from
	// instead of writing raw colors into Buf directly.
	Texture *Fragment

	// FirstRowText is set by RenderText alongside the pixels it draws into
	// row 0, so a diagnostic fragment's message (eg. ref's "BAD PATH")
	// survives as a literal string instead of only existing as pixels a
	// caller would otherwise have to OCR back out.
	FirstRowText string
}

// Contains reports whether (x, y) falls within this fragment's region.
func (f *Fragment) Contains(x, y int) bool {
	return x >= f.X && x < f.X+f.Width && y >= f.Y && y < f.Y+f.Height
}

// row returns the slice of Buf for absolute row y, relative-indexed so that
// index 0 corresponds to absolute column f.X.
func (f *Fragment) row(y int) []uint32 {
	off := (y - f.Y) * f.Pitch
	return f.Buf[off:]
}

// PutPixelUnchecked writes pixel at (x, y) without bounds checking.
func (f *Fragment) PutPixelUnchecked(x, y int, pixel uint32) {
	f.row(y)[x-f.X] = pixel
}

// PutPixelChecked writes pixel at (x, y), returning false if (x, y) falls
// outside the fragment instead of writing.
func (f *Fragment) PutPixelChecked(x, y int, pixel uint32) bool {
	if !f.Contains(x, y) {
		return false
	}
	f.PutPixelUnchecked(x, y, pixel)
	return true
}

// Fill writes pixel into every pixel of the fragment.
func (f *Fragment) Fill(pixel uint32) {
	for y := 0; y < f.Height; y++ {
		row := f.row(f.Y + y)
		for x := 0; x < f.Width; x++ {
			row[x] = pixel
		}
	}
}

// Clear fills the fragment with black and sets Cleared, unless it's
// already marked cleared this frame.
func (f *Fragment) Clear() {
	if f.Cleared {
		return
	}
	f.Fill(0)
	f.Cleared = true
}

// sub constructs a clipped sub-fragment of f at the given absolute region,
// propagating frame dimensions and inheriting the buffer with recomputed
// offset-relative indexing.
func (f *Fragment) sub(x, y, width, height, number int) Fragment {
	off := (y-f.Y)*f.Pitch + (x - f.X)

	return Fragment{
		Buf:         f.Buf[off:],
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		FrameWidth:  f.FrameWidth,
		FrameHeight: f.FrameHeight,
		Stride:      f.Pitch - width,
		Pitch:       f.Pitch,
		Number:      number,
	}
}

// Divide splits f into n equal-ish horizontal bands, writing the results
// into res (which must have length n). Used by backends that want to hand
// a whole page to a fixed set of fragments without going through a
// Fragmenter (eg. direct per-CPU tiling outside the render dispatcher).
func (f *Fragment) Divide(res []Fragment) {
	n := len(res)
	if n == 0 {
		return
	}

	base := f.Height / n
	extra := f.Height % n
	y := f.Y

	for i := 0; i < n; i++ {
		h := base
		if i < extra {
			h++
		}
		res[i] = f.sub(f.X, y, f.Width, h, i)
		y += h
	}
}
