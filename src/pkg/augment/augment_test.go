package augment

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/disintegration/imaging"
)

func sample() *image.NRGBA {
	img := imaging.New(120, 36, color.White)
	for y := 8; y < 28; y++ {
		for x := 10; x < 110; x += 3 {
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}
	return img
}

func TestEveryTransformKeepsDimensions(t *testing.T) {
	p := New(DefaultValueConfig())
	rng := rand.New(rand.NewPCG(9, 9))
	for _, transform := range Transforms {
		for _, size := range []image.Point{{120, 36}, {1, 1}, {7, 300}} {
			in := imaging.Resize(sample(), size.X, size.Y, imaging.NearestNeighbor)
			out := p.apply(rng, in, transform)
			if out.Bounds().Size() != size {
				t.Fatalf("%s changed %v into %v", transform, size, out.Bounds().Size())
			}
		}
	}
}

func TestRotateKeepsDimensionsAcrossAngles(t *testing.T) {
	in := sample()
	for _, angle := range []float64{-2, -0.3, 0, 0.01, 1.7, 2} {
		out := Rotate(in, angle)
		if out.Bounds().Size() != in.Bounds().Size() {
			t.Fatalf("angle %v: %v", angle, out.Bounds().Size())
		}
	}
}

func TestAugmentDrawsBoundedSubset(t *testing.T) {
	cfg := DefaultValueConfig()
	cfg.RotationProbability = 1
	cfg.NoiseProbability = 1
	cfg.BlurProbability = 1
	cfg.BrightnessProbability = 1
	cfg.ContrastProbability = 1
	p := New(cfg)

	rng := rand.New(rand.NewPCG(2, 3))
	for i := 0; i < 200; i++ {
		out, applied := p.Augment(rng, sample())
		if len(applied) < 2 || len(applied) > 4 {
			t.Fatalf("applied %d transforms: %v", len(applied), applied)
		}
		seen := map[Transform]bool{}
		for _, tr := range applied {
			if seen[tr] {
				t.Fatalf("transform drawn twice: %v", applied)
			}
			seen[tr] = true
		}
		if out.Bounds().Size() != image.Pt(120, 36) {
			t.Fatalf("size changed: %v", out.Bounds().Size())
		}
	}
}

func TestActivationCanSkipDrawnTransforms(t *testing.T) {
	cfg := DefaultValueConfig()
	cfg.RotationProbability = 0
	cfg.NoiseProbability = 0
	cfg.BlurProbability = 0
	cfg.BrightnessProbability = 0
	cfg.ContrastProbability = 0
	in := sample()
	out, applied := New(cfg).Augment(rand.New(rand.NewPCG(1, 1)), in)
	if len(applied) != 0 || out != in {
		t.Fatalf("nothing should fire: %v", applied)
	}
}

func TestDecideRate(t *testing.T) {
	for _, pct := range []float64{0, 30, 75, 100} {
		cfg := DefaultValueConfig()
		cfg.Percentage = pct
		p := New(cfg)
		rng := rand.New(rand.NewPCG(uint64(pct), 1))
		const n = 5000
		hits := 0
		for i := 0; i < n; i++ {
			if p.Decide(rng) {
				hits++
			}
		}
		rate := float64(hits) / n
		if math.Abs(rate-pct/100) > 0.03 {
			t.Fatalf("percentage %v: observed rate %v", pct, rate)
		}
	}
}

func TestMaybeAugmentPassThrough(t *testing.T) {
	in := sample()
	out, applied := New(DefaultValueConfig()).MaybeAugment(rand.New(rand.NewPCG(1, 1)), in, false)
	if out != in || applied != nil {
		t.Fatal("image changed without an augment decision")
	}
}

func TestBlurUsesConfiguredSigma(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"blur_sigma": {"min": 1.5, "max": 1.5}}`), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.BlurSigma.Min != 1.5 || cfg.BlurSigma.Max != 1.5 {
		t.Fatalf("blur_sigma = %+v", cfg.BlurSigma)
	}

	in := sample()
	got := New(cfg).apply(rand.New(rand.NewPCG(1, 1)), in, Blur)
	want := imaging.Blur(in, 1.5)
	if !bytes.Equal(got.Pix, want.Pix) {
		t.Fatal("blur output differs from a Gaussian blur with sigma 1.5")
	}
}
