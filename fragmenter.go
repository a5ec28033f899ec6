package til

// Fragmenter produces the sub-fragment numbered number from parent into
// res, returning true if a fragment was produced or false if number is
// beyond the end of the sequence. Fragment numbers start at 0 and are
// dense; a Fragmenter must be safe to call concurrently from multiple
// worker goroutines for distinct numbers (see Pool).
type Fragmenter func(ctx *Context, parent *Fragment, number int, res *Fragment) bool

// SlicePerCPU divides parent into NCPUs (from ctx) horizontal bands,
// producing one fragment per call up to that count.
func SlicePerCPU(ctx *Context, parent *Fragment, number int, res *Fragment) bool {
	return sliceSingle(parent, ctx.NCPUs, number, res)
}

// SlicePerCPUx16 divides parent into NCPUs*16 horizontal bands, a finer
// subdivision that improves load balancing when per-fragment render cost
// varies (eg. raytracers, particle systems with spatially uneven density).
func SlicePerCPUx16(ctx *Context, parent *Fragment, number int, res *Fragment) bool {
	return sliceSingle(parent, ctx.NCPUs*16, number, res)
}

// sliceSingle computes the number'th of n horizontal bands of parent.
// Bands are sized base = height/n, with the first (height%n) bands one
// pixel taller, so the union of all n bands exactly covers parent with no
// overlap regardless of whether height divides evenly by n.
func sliceSingle(parent *Fragment, n, number int, res *Fragment) bool {
	if n <= 0 || number < 0 || number >= n {
		return false
	}

	base := parent.Height / n
	extra := parent.Height % n

	y := parent.Y
	h := base
	for i := 0; i < number; i++ {
		if i < extra {
			y++
		}
		y += base
	}
	if number < extra {
		h++
	}

	*res = parent.sub(parent.X, y, parent.Width, h, number)
	return true
}

// Tile64 divides parent into 64x64 pixel tiles, row-major, producing one
// tile per call. The final tile in each row/column is clipped to parent's
// bounds when Width/Height aren't multiples of 64.
func Tile64(ctx *Context, parent *Fragment, number int, res *Fragment) bool {
	return tileSingle(parent, 64, number, res)
}

func tileSingle(parent *Fragment, tileSize, number int, res *Fragment) bool {
	if tileSize <= 0 {
		return false
	}

	cols := (parent.Width + tileSize - 1) / tileSize
	rows := (parent.Height + tileSize - 1) / tileSize
	if cols == 0 || rows == 0 || number < 0 || number >= cols*rows {
		return false
	}

	col := number % cols
	row := number / cols

	x := parent.X + col*tileSize
	y := parent.Y + row*tileSize

	w := tileSize
	if rem := parent.X + parent.Width - x; rem < w {
		w = rem
	}
	h := tileSize
	if rem := parent.Y + parent.Height - y; rem < h {
		h = rem
	}

	*res = parent.sub(x, y, w, h, number)
	return true
}
