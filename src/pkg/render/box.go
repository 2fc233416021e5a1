package render

import (
	"fmt"
	"strings"
)

/*
BoxFile formats glyph boxes as a tesseract .box file: one
"<char> <left> <bottom> <right> <top> 0" line per glyph, with the origin at
the bottom-left corner of an image that is height pixels tall.
*/
func BoxFile(glyphs []Glyph, height int) string {
	var b strings.Builder
	for _, g := range glyphs {
		fmt.Fprintf(&b, "%c %d %d %d %d 0\n",
			g.Rune, g.Box.Min.X, height-g.Box.Max.Y, g.Box.Max.X, height-g.Box.Min.Y)
	}
	return b.String()
}
