/*
Package compose merges rendered black-on-white text with a synthesized
paper backdrop.

The text image is turned into an ink mask: its darkness becomes the alpha
used to draw it over the backdrop. White shows the paper, solid ink stays
exactly as rendered, and anti-aliased edges blend in between.
*/
package compose

import (
	"image"
	"image/draw"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"synth-ocr/src/pkg/background"
)

type Compositor struct {
	synth     *background.Synthesizer
	intensity background.Intensity
}

func New(synth *background.Synthesizer, intensity background.Intensity) *Compositor {
	return &Compositor{synth: synth, intensity: intensity}
}

// Intensity returns the tier used for backdrops.
func (c *Compositor) Intensity() background.Intensity {
	return c.intensity
}

/*
Compose returns text unchanged when useBackground is false. Otherwise it
synthesizes a backdrop of the same size and draws the text over it, and also
returns the names of the backdrop layers that fired.
*/
func (c *Compositor) Compose(rng *rand.Rand, text *image.NRGBA, useBackground bool) (out *image.NRGBA, layers []string) {
	if !useBackground {
		return text, nil
	}

	bounds := text.Bounds()
	paper, layers := c.synth.Synthesize(rng, bounds.Dx(), bounds.Dy(), c.intensity)
	return Over(paper, text), layers
}

/*
Over draws ink from text onto a copy of paper. Both images must have the
same size; text is read from its own origin.
*/
func Over(paper image.Image, text *image.NRGBA) *image.NRGBA {
	dst := imaging.Clone(paper)
	mask := InkMask(text)
	draw.DrawMask(dst, dst.Bounds(), text, text.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
	return dst
}

// InkMask maps every pixel's darkness to alpha: white → 0, black → 255.
func InkMask(text *image.NRGBA) *image.Alpha {
	bounds := text.Bounds()
	mask := image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		offset := text.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		src := text.Pix[offset : offset+bounds.Dx()*4]
		dst := mask.Pix[y*mask.Stride : y*mask.Stride+bounds.Dx()]
		for x := range dst {
			r, g, b := int(src[x*4]), int(src[x*4+1]), int(src[x*4+2])
			luma := (299*r + 587*g + 114*b + 500) / 1000
			dst[x] = uint8(255 - luma)
		}
	}
	return mask
}
