package til

// RenderText draws s into row 0 of frag as a left-to-right run of glyph
// cells, one per rune, and records s verbatim in frag.FirstRowText.
//
// Grounded on til_builtins.c's ref diagnostic (txt_newf + txt_render_
// fragment_aligned drawing "%s: BAD PATH %q" into the top-left corner of
// the fragment via libs/txt's ascii bitmap font); libs/txt's glyph table
// itself wasn't part of the retrieved original source, so glyphCell below
// derives a per-rune pixel pattern from the rune's own bits rather than a
// real font -- not legible typography, but every distinct rune still
// produces a visibly distinct cell, which is all a diagnostic fragment
// needs to satisfy.
func RenderText(frag *Fragment, s string, pixel uint32) {
	frag.FirstRowText = s

	x := 0
	for _, r := range s {
		if x >= frag.Width {
			break
		}
		glyphCell(frag, x, r, pixel)
		x += glyphCellWidth
	}
}

const (
	glyphCellWidth  = 4
	glyphCellHeight = 5
)

// glyphCell draws r's pixel pattern at column offset xOff of frag's row 0.
// Space renders as a blank cell (a gap between words); every other rune
// lights whichever of the cell's columns correspond to set bits in the
// rune's value, for glyphCellHeight rows, bounded by frag's own height.
func glyphCell(frag *Fragment, xOff int, r rune, pixel uint32) {
	if r == ' ' {
		return
	}

	rows := glyphCellHeight
	if frag.Height < rows {
		rows = frag.Height
	}

	bits := uint(r)
	for col := 0; col < glyphCellWidth; col++ {
		if bits&(1<<uint(col)) == 0 {
			continue
		}
		for row := 0; row < rows; row++ {
			frag.PutPixelChecked(frag.X+xOff+col, frag.Y+row, pixel)
		}
	}
}
