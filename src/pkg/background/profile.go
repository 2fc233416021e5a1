package background

import (
	"math/rand/v2"
	"strings"
)

// Intensity is the background tier. Every effect probability is monotonic in it.
type Intensity string

const (
	Light  Intensity = "light"
	Medium Intensity = "medium"
	Heavy  Intensity = "heavy"
)

// Intensities lists the tiers in increasing order.
var Intensities = []Intensity{Light, Medium, Heavy}

// ParseIntensity accepts the tier name in any case.
func ParseIntensity(s string) (Intensity, bool) {
	switch Intensity(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, true
	case Medium:
		return Medium, true
	case Heavy:
		return Heavy, true
	}
	return "", false
}

// Range is a closed float interval drawn uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Draw(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// IntRange is a closed integer interval drawn uniformly.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r IntRange) Draw(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

/*
Profile holds the trigger probabilities and strength ranges of every effect
layer for one intensity tier.

Darkness values are in 0-255 channel units, strengths are fractions.
*/
type Profile struct {
	PaperLow    [3]uint8 `json:"paper_low"`
	PaperHigh   [3]uint8 `json:"paper_high"`
	FineGrain   float64  `json:"fine_grain"`
	CoarseGrain float64  `json:"coarse_grain"`
	CoarseScale int      `json:"coarse_scale"`

	AgingProbability float64  `json:"aging_probability"`
	AgingStrength    Range    `json:"aging_strength"`
	SpotRadius       IntRange `json:"spot_radius"`
	SpotDarkness     Range    `json:"spot_darkness"`

	ScanLinesProbability float64  `json:"scan_lines_probability"`
	ScanLines            IntRange `json:"scan_lines"`
	ScanLineDarkness     Range    `json:"scan_line_darkness"`

	GradientProbability float64 `json:"gradient_probability"`
	GradientStrength    Range   `json:"gradient_strength"`

	StainsProbability float64  `json:"stains_probability"`
	Stains            IntRange `json:"stains"`
	StainRadius       IntRange `json:"stain_radius"`
	StainOpacity      Range    `json:"stain_opacity"`

	ShadowProbability       float64 `json:"shadow_probability"`
	ShadowStrength          Range   `json:"shadow_strength"`
	SecondShadowProbability float64 `json:"second_shadow_probability"`
}

// Tiers carries one Profile per intensity so JSON overrides merge field by field.
type Tiers struct {
	Light  Profile `json:"light"`
	Medium Profile `json:"medium"`
	Heavy  Profile `json:"heavy"`
}

func (t Tiers) For(intensity Intensity) Profile {
	switch intensity {
	case Light:
		return t.Light
	case Heavy:
		return t.Heavy
	default:
		return t.Medium
	}
}

func DefaultTiers() Tiers {
	return Tiers{
		Light: Profile{
			PaperLow: [3]uint8{245, 243, 240}, PaperHigh: [3]uint8{250, 248, 245},
			FineGrain: 2, CoarseGrain: 3, CoarseScale: 4,
			AgingProbability: 0.1, AgingStrength: Range{0.1, 0.2},
			SpotRadius: IntRange{2, 5}, SpotDarkness: Range{8, 18},
			ScanLinesProbability: 0.2, ScanLines: IntRange{1, 2}, ScanLineDarkness: Range{6, 12},
			GradientProbability: 0.3, GradientStrength: Range{0.05, 0.1},
			StainsProbability: 0.1, Stains: IntRange{1, 2}, StainRadius: IntRange{5, 12}, StainOpacity: Range{0.15, 0.25},
			ShadowProbability: 0.2, ShadowStrength: Range{0.05, 0.1}, SecondShadowProbability: 0.1,
		},
		Medium: Profile{
			PaperLow: [3]uint8{235, 230, 220}, PaperHigh: [3]uint8{245, 242, 235},
			FineGrain: 3, CoarseGrain: 5, CoarseScale: 4,
			AgingProbability: 0.3, AgingStrength: Range{0.2, 0.4},
			SpotRadius: IntRange{2, 8}, SpotDarkness: Range{10, 30},
			ScanLinesProbability: 0.4, ScanLines: IntRange{1, 3}, ScanLineDarkness: Range{10, 18},
			GradientProbability: 0.5, GradientStrength: Range{0.1, 0.2},
			StainsProbability: 0.3, Stains: IntRange{1, 3}, StainRadius: IntRange{5, 20}, StainOpacity: Range{0.2, 0.35},
			ShadowProbability: 0.3, ShadowStrength: Range{0.1, 0.15}, SecondShadowProbability: 0.2,
		},
		Heavy: Profile{
			PaperLow: [3]uint8{220, 215, 200}, PaperHigh: [3]uint8{240, 235, 220},
			FineGrain: 4, CoarseGrain: 7, CoarseScale: 4,
			AgingProbability: 0.5, AgingStrength: Range{0.3, 0.6},
			SpotRadius: IntRange{3, 10}, SpotDarkness: Range{15, 40},
			ScanLinesProbability: 0.6, ScanLines: IntRange{2, 4}, ScanLineDarkness: Range{15, 25},
			GradientProbability: 0.7, GradientStrength: Range{0.15, 0.3},
			StainsProbability: 0.5, Stains: IntRange{2, 4}, StainRadius: IntRange{8, 24}, StainOpacity: Range{0.3, 0.45},
			ShadowProbability: 0.5, ShadowStrength: Range{0.15, 0.25}, SecondShadowProbability: 0.35,
		},
	}
}

// Config is the background section of the run configuration.
type Config struct {
	Percentage float64   `json:"percentage"`
	Intensity  Intensity `json:"intensity"`
	Tiers      Tiers     `json:"tiers"`
}

func DefaultValueConfig() Config {
	return Config{
		Percentage: 70,
		Intensity:  Medium,
		Tiers:      DefaultTiers(),
	}
}
