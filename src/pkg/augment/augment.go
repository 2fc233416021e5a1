/*
Package augment distorts a share of the generated samples the way a scanner
would: slight skew, sensor noise, soft focus and lighting changes.

An augmented image gets a random subset of 2-4 transforms applied in the
order they were drawn. Each drawn transform then rolls its own activation
probability, so fewer effects may actually be visible than were drawn.
No transform changes the image size.
*/
package augment

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"synth-ocr/src/pkg/util"
)

type Transform string

const (
	Rotation   Transform = "rotation"
	Noise      Transform = "noise"
	Blur       Transform = "blur"
	Brightness Transform = "brightness"
	Contrast   Transform = "contrast"
)

// Transforms is the full transform set in its canonical order.
var Transforms = []Transform{Rotation, Noise, Blur, Brightness, Contrast}

type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	if cfg.MinTransforms < 1 {
		cfg.MinTransforms = 1
	}
	cfg.MaxTransforms = util.Clamp(cfg.MaxTransforms, cfg.MinTransforms, len(Transforms))
	cfg.MinTransforms = min(cfg.MinTransforms, cfg.MaxTransforms)
	return &Pipeline{cfg: cfg}
}

// Decide is the per-sample Bernoulli draw against the configured percentage.
func (p *Pipeline) Decide(rng *rand.Rand) bool {
	return rng.Float64()*100 < p.cfg.Percentage
}

// MaybeAugment returns img untouched unless augment is set.
func (p *Pipeline) MaybeAugment(rng *rand.Rand, img *image.NRGBA, augment bool) (*image.NRGBA, []Transform) {
	if !augment {
		return img, nil
	}
	return p.Augment(rng, img)
}

/*
Augment draws the transform subset, applies it and returns the transforms
that actually fired, in application order.
*/
func (p *Pipeline) Augment(rng *rand.Rand, img *image.NRGBA) (out *image.NRGBA, applied []Transform) {
	count := p.cfg.MinTransforms + rng.IntN(p.cfg.MaxTransforms-p.cfg.MinTransforms+1)
	order := rng.Perm(len(Transforms))[:count]

	out = img
	for _, index := range order {
		transform := Transforms[index]
		if rng.Float64() >= p.probability(transform) {
			continue
		}
		out = p.apply(rng, out, transform)
		applied = append(applied, transform)
	}
	return out, applied
}

func (p *Pipeline) probability(t Transform) float64 {
	switch t {
	case Rotation:
		return p.cfg.RotationProbability
	case Noise:
		return p.cfg.NoiseProbability
	case Blur:
		return p.cfg.BlurProbability
	case Brightness:
		return p.cfg.BrightnessProbability
	case Contrast:
		return p.cfg.ContrastProbability
	}
	return 0
}

func (p *Pipeline) apply(rng *rand.Rand, img *image.NRGBA, t Transform) *image.NRGBA {
	switch t {
	case Rotation:
		angle := (rng.Float64()*2 - 1) * p.cfg.RotationDegrees
		return Rotate(img, angle)
	case Noise:
		return AddNoise(rng, img, p.cfg.NoiseLevel)
	case Blur:
		sigma := p.cfg.BlurSigma.Draw(rng)
		return imaging.Blur(img, sigma)
	case Brightness:
		factor := 1 + (rng.Float64()*2-1)*p.cfg.BrightnessDelta
		return Scale(img, factor)
	case Contrast:
		factor := 1 + (rng.Float64()*2-1)*p.cfg.ContrastDelta
		return imaging.AdjustContrast(img, (factor-1)*100)
	}
	return img
}

/*
Rotate skews img by angle degrees (counter-clockwise) and crops the expanded
canvas back to the original size. Uncovered corners take the average border
color so rotated backdrops do not grow white wedges.
*/
func Rotate(img *image.NRGBA, angle float64) *image.NRGBA {
	bounds := img.Bounds()
	fill := borderColor(img)
	rotated := imaging.Rotate(img, angle, fill)
	cropped := imaging.CropCenter(rotated, bounds.Dx(), bounds.Dy())
	if cropped.Bounds().Size() != bounds.Size() {
		cropped = imaging.PasteCenter(imaging.New(bounds.Dx(), bounds.Dy(), fill), cropped)
	}
	return cropped
}

// AddNoise adds zero-mean gaussian noise with sigma level*255 to every color channel.
func AddNoise(rng *rand.Rand, img *image.NRGBA, level float64) *image.NRGBA {
	out := imaging.Clone(img)
	sigma := level * 255
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = util.ClampByte(float64(out.Pix[i+c]) + rng.NormFloat64()*sigma)
		}
	}
	return out
}

// Scale multiplies every color channel by factor.
func Scale(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = util.ClampByte(float64(c.R) * factor)
		c.G = util.ClampByte(float64(c.G) * factor)
		c.B = util.ClampByte(float64(c.B) * factor)
		return c
	})
}

func borderColor(img *image.NRGBA) color.NRGBA {
	bounds := img.Bounds()
	var sum [3]int
	n := 0
	add := func(x, y int) {
		c := img.NRGBAAt(x, y)
		sum[0] += int(c.R)
		sum[1] += int(c.G)
		sum[2] += int(c.B)
		n++
	}
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		add(x, bounds.Min.Y)
		add(x, bounds.Max.Y-1)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		add(bounds.Min.X, y)
		add(bounds.Max.X-1, y)
	}
	if n == 0 {
		return color.NRGBA{255, 255, 255, 255}
	}
	return color.NRGBA{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n), 255}
}
