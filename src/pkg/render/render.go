/*
Package render draws one line of text in one font: black ink on a white
canvas, sized so the ink reaches the configured target height.

Rendering is deterministic. The same text, font and config always produce
the same pixels and the same glyph boxes.
*/
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"synth-ocr/src/pkg/fonts"
)

var ErrMissingGlyph = errors.New("font has no glyph for rune")

// Glyph is one visible character and its pixel box in the bitmap.
type Glyph struct {
	Rune rune
	Box  image.Rectangle
}

type Bitmap struct {
	Image    *image.NRGBA
	Glyphs   []Glyph
	FontSize int
}

type faceKey struct {
	font *opentype.Font
	size int
}

/*
Renderer caches one face per (font, size). Faces are not safe for concurrent
use, so Render holds a lock for the whole draw.
*/
type Renderer struct {
	cfg   Config
	mu    sync.Mutex
	faces map[faceKey]font.Face
	buf   sfnt.Buffer
}

func New(cfg Config) *Renderer {
	if cfg.MinFontSize < 1 {
		cfg.MinFontSize = 1
	}
	if cfg.MaxFontSize <= cfg.MinFontSize {
		cfg.MaxFontSize = cfg.MinFontSize + 1
	}
	if cfg.FallbackFontSize < 1 {
		cfg.FallbackFontSize = cfg.MinFontSize
	}
	cfg.Padding = max(cfg.Padding, 0)
	return &Renderer{cfg: cfg, faces: make(map[faceKey]font.Face)}
}

func (r *Renderer) Config() Config {
	return r.cfg
}

/*
Render draws text with f.

The canvas is the ink width plus padding on both sides, and the taller of the
ink height and the target height plus padding above and below. Ink is
centered vertically. A rune the font cannot draw fails the whole render.
*/
func (r *Renderer) Render(text string, f *fonts.Font) (bm *Bitmap, e *xerr.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range text {
		if unicode.IsSpace(c) {
			continue
		}
		index, err := f.Parsed.GlyphIndex(&r.buf, c)
		if err != nil || index == 0 {
			return nil, xerr.NewError(ErrMissingGlyph, "render text", fmt.Sprintf("%q in %s", c, f.File()))
		}
	}

	size, face, e := r.pickSize(text, f)
	if e != nil {
		return nil, e
	}

	bounds, _ := font.BoundString(face, text)
	inkWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	inkHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	pad := r.cfg.Padding
	width := max(inkWidth+2*pad, 1)
	height := max(inkHeight, r.cfg.TargetTextHeight) + 2*pad
	height = max(height, 1)

	img := imaging.New(width, height, color.White)
	dot := fixed.Point26_6{
		X: fixed.I(pad) - bounds.Min.X,
		Y: fixed.I((height-inkHeight)/2) - bounds.Min.Y,
	}

	bm = &Bitmap{Image: img, FontSize: size}
	prev := rune(-1)
	for _, c := range text {
		if prev >= 0 {
			dot.X += face.Kern(prev, c)
		}
		dr, mask, maskp, advance, ok := face.Glyph(dot, c)
		if ok {
			draw.DrawMask(img, dr, image.Black, image.Point{}, mask, maskp, draw.Over)
			if !unicode.IsSpace(c) && !dr.Empty() {
				bm.Glyphs = append(bm.Glyphs, Glyph{Rune: c, Box: dr.Intersect(img.Bounds())})
			}
		}
		dot.X += advance
		prev = c
	}
	return bm, nil
}

/*
pickSize finds the smallest size in [MinFontSize, MaxFontSize) whose ink is
at least TargetTextHeight tall. Ink height never shrinks as the size grows,
so the range is bisected.
*/
func (r *Renderer) pickSize(text string, f *fonts.Font) (int, font.Face, *xerr.Error) {
	lo, hi := r.cfg.MinFontSize, r.cfg.MaxFontSize
	var found font.Face
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		face, e := r.face(f, mid)
		if e != nil {
			return 0, nil, e
		}
		if inkHeight(face, text) >= r.cfg.TargetTextHeight {
			hi, found = mid, face
		} else {
			lo = mid + 1
		}
	}
	if found != nil {
		return lo, found, nil
	}
	face, e := r.face(f, r.cfg.FallbackFontSize)
	return r.cfg.FallbackFontSize, face, e
}

func inkHeight(face font.Face, text string) int {
	bounds, _ := font.BoundString(face, text)
	return (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func (r *Renderer) face(f *fonts.Font, size int) (font.Face, *xerr.Error) {
	key := faceKey{font: f.Parsed, size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.Parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, xerr.NewError(err, "create font face", fmt.Sprintf("%s at %d", f.File(), size))
	}
	r.faces[key] = face
	return face, nil
}
