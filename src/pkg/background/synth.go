/*
Package background synthesizes scanned-paper backdrops.

A backdrop starts as an off-white paper texture and then goes through the
effect layers in a fixed order: aging, scanner lines, gradient lighting,
stains, and finally shadow so that it sits on top of everything else. Each
layer fires independently with the probability of the chosen tier and works
on whatever image it receives, so a skipped layer never affects the next.
*/
package background

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"synth-ocr/src/pkg/util"
)

// EffectLayer is one optional step of the backdrop.
type EffectLayer struct {
	Name        string
	Probability func(p Profile) float64
	Apply       func(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA
}

// Layers returns the effect layers in application order.
func Layers() []EffectLayer {
	return []EffectLayer{
		{Name: "aging", Probability: func(p Profile) float64 { return p.AgingProbability }, Apply: addAging},
		{Name: "scan_lines", Probability: func(p Profile) float64 { return p.ScanLinesProbability }, Apply: addScanLines},
		{Name: "gradient", Probability: func(p Profile) float64 { return p.GradientProbability }, Apply: addGradient},
		{Name: "stains", Probability: func(p Profile) float64 { return p.StainsProbability }, Apply: addStains},
		{Name: "shadow", Probability: func(p Profile) float64 { return p.ShadowProbability }, Apply: addShadow},
	}
}

type Synthesizer struct {
	tiers  Tiers
	layers []EffectLayer
}

func New(tiers Tiers) *Synthesizer {
	return &Synthesizer{tiers: tiers, layers: Layers()}
}

/*
Synthesize returns a width×height backdrop and the names of the layers that
fired. All randomness comes from rng; dimensions below 1 are raised to 1.
*/
func (s *Synthesizer) Synthesize(rng *rand.Rand, width, height int, intensity Intensity) (img *image.NRGBA, applied []string) {
	width = max(width, 1)
	height = max(height, 1)
	profile := s.tiers.For(intensity)

	img = paperTexture(rng, width, height, profile)
	for _, layer := range s.layers {
		if rng.Float64() >= layer.Probability(profile) {
			continue
		}
		img = layer.Apply(rng, img, profile)
		applied = append(applied, layer.Name)
	}
	return img, applied
}

// paperTexture fills an off-white base and adds fine per-pixel grain plus coarse block grain.
func paperTexture(rng *rand.Rand, width, height int, p Profile) *image.NRGBA {
	t := rng.Float64()
	base := color.NRGBA{A: 255}
	base.R = util.ClampByte(util.Lerp(float64(p.PaperLow[0]), float64(p.PaperHigh[0]), t))
	base.G = util.ClampByte(util.Lerp(float64(p.PaperLow[1]), float64(p.PaperHigh[1]), t))
	base.B = util.ClampByte(util.Lerp(float64(p.PaperLow[2]), float64(p.PaperHigh[2]), t))
	img := imaging.New(width, height, base)

	scale := max(p.CoarseScale, 1)
	coarseW := (width + scale - 1) / scale
	coarseH := (height + scale - 1) / scale
	coarse := image.NewNRGBA(image.Rect(0, 0, coarseW, coarseH))
	for i := 0; i < len(coarse.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			coarse.Pix[i+c] = util.ClampByte(128 + rng.NormFloat64()*p.CoarseGrain)
		}
		coarse.Pix[i+3] = 255
	}
	blocks := imaging.Resize(coarse, coarseW*scale, coarseH*scale, imaging.NearestNeighbor)

	for y := 0; y < height; y++ {
		row := y * img.Stride
		blockRow := y * blocks.Stride
		for x := 0; x < width; x++ {
			i := row + x*4
			j := blockRow + x*4
			for c := 0; c < 3; c++ {
				v := float64(img.Pix[i+c]) + rng.NormFloat64()*p.FineGrain + float64(blocks.Pix[j+c]) - 128
				img.Pix[i+c] = util.ClampByte(v)
			}
		}
	}
	return img
}

// addAging yellows the paper by pulling the blue channel down and drops a few soft spots.
func addAging(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA {
	strength := p.AgingStrength.Draw(rng)
	blueFactor := 1 - strength*0.3
	img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.B = util.ClampByte(float64(c.B) * blueFactor)
		return c
	})

	bounds := img.Bounds()
	spots := int(strength * 10)
	for i := 0; i < spots; i++ {
		x := rng.IntN(bounds.Dx())
		y := rng.IntN(bounds.Dy())
		radius := p.SpotRadius.Draw(rng)
		darkness := p.SpotDarkness.Draw(rng)
		sprite := softDisc(radius, color.NRGBA{A: 255}, darkness/255)
		img = imaging.Overlay(img, sprite, image.Pt(x-radius, y-radius), 1.0)
	}
	return img
}

// addScanLines darkens a few full-width rows.
func addScanLines(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA {
	bounds := img.Bounds()
	lines := p.ScanLines.Draw(rng)
	for i := 0; i < lines; i++ {
		y := rng.IntN(bounds.Dy())
		darkness := p.ScanLineDarkness.Draw(rng)
		row := y * img.Stride
		for x := 0; x < bounds.Dx(); x++ {
			k := row + x*4
			for c := 0; c < 3; c++ {
				img.Pix[k+c] = util.ClampByte(float64(img.Pix[k+c]) - darkness)
			}
		}
	}
	return img
}

type gradientDirection int

const (
	horizontal gradientDirection = iota
	vertical
	diagonal
)

// addGradient multiplies brightness by a linear ramp 1-a..1+a in a random direction.
func addGradient(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA {
	amplitude := p.GradientStrength.Draw(rng)
	direction := gradientDirection(rng.IntN(3))
	flip := rng.IntN(2) == 1

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	spanX := float64(max(w-1, 1))
	spanY := float64(max(h-1, 1))

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			var t float64
			switch direction {
			case horizontal:
				t = float64(x) / spanX
			case vertical:
				t = float64(y) / spanY
			default:
				t = (float64(x)/spanX + float64(y)/spanY) / 2
			}
			if flip {
				t = 1 - t
			}
			factor := util.Lerp(1-amplitude, 1+amplitude, t)
			k := row + x*4
			for c := 0; c < 3; c++ {
				img.Pix[k+c] = util.ClampByte(float64(img.Pix[k+c]) * factor)
			}
		}
	}
	return img
}

// addStains drops irregular brownish blobs, each built from a few overlapping soft discs.
func addStains(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA {
	bounds := img.Bounds()
	stains := p.Stains.Draw(rng)
	for i := 0; i < stains; i++ {
		cx := rng.IntN(bounds.Dx())
		cy := rng.IntN(bounds.Dy())
		radius := max(p.StainRadius.Draw(rng), 1)
		opacity := p.StainOpacity.Draw(rng)
		tone := 180 + rng.Float64()*40
		stain := color.NRGBA{
			R: util.ClampByte(tone),
			G: util.ClampByte(tone - 12),
			B: util.ClampByte(tone - 35),
			A: 255,
		}

		blobs := 3 + rng.IntN(4)
		for b := 0; b < blobs; b++ {
			r := max(int(float64(radius)*(0.5+rng.Float64()*0.5)), 1)
			ox := cx + rng.IntN(radius+1) - radius/2
			oy := cy + rng.IntN(radius+1) - radius/2
			img = imaging.Overlay(img, softDisc(r, stain, opacity), image.Pt(ox-r, oy-r), 1.0)
		}
	}
	return img
}

// addShadow darkens one or two corners with a radial falloff.
func addShadow(rng *rand.Rand, img *image.NRGBA, p Profile) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	corners := []image.Point{image.Pt(0, 0), image.Pt(w-1, 0), image.Pt(0, h-1), image.Pt(w-1, h-1)}

	first := rng.IntN(len(corners))
	picked := []image.Point{corners[first]}
	if rng.Float64() < p.SecondShadowProbability {
		second := (first + 1 + rng.IntN(len(corners)-1)) % len(corners)
		picked = append(picked, corners[second])
	}

	for _, corner := range picked {
		strength := p.ShadowStrength.Draw(rng)
		reach := 0.6 * math.Hypot(float64(w), float64(h))
		for y := 0; y < h; y++ {
			row := y * img.Stride
			for x := 0; x < w; x++ {
				d := math.Hypot(float64(x-corner.X), float64(y-corner.Y)) / reach
				if d >= 1 {
					continue
				}
				falloff := (1 - d) * (1 - d)
				factor := 1 - strength*falloff
				k := row + x*4
				for c := 0; c < 3; c++ {
					img.Pix[k+c] = util.ClampByte(float64(img.Pix[k+c]) * factor)
				}
			}
		}
	}
	return img
}

// softDisc is a (2r+1)² sprite of col whose alpha fades from opacity at the center to 0 at r.
func softDisc(radius int, col color.NRGBA, opacity float64) *image.NRGBA {
	radius = max(radius, 1)
	size := 2*radius + 1
	sprite := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x-radius), float64(y-radius)) / float64(radius)
			if d > 1 {
				continue
			}
			k := y*sprite.Stride + x*4
			sprite.Pix[k] = col.R
			sprite.Pix[k+1] = col.G
			sprite.Pix[k+2] = col.B
			sprite.Pix[k+3] = util.ClampByte(255 * opacity * (1 - d*d))
		}
	}
	return sprite
}
