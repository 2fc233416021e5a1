package augment

import "synth-ocr/src/pkg/background"

/*
Config is the augmentation section of the run configuration.

Every transform carries its own activation probability, rolled after the
transform has been drawn into the per-image subset.
*/
type Config struct {
	Percentage    float64 `json:"percentage"`
	MinTransforms int     `json:"min_transforms"`
	MaxTransforms int     `json:"max_transforms"`

	RotationProbability float64 `json:"rotation_probability"`
	RotationDegrees     float64 `json:"rotation_degrees"`

	NoiseProbability float64 `json:"noise_probability"`
	NoiseLevel       float64 `json:"noise_level"`

	BlurProbability float64          `json:"blur_probability"`
	BlurSigma       background.Range `json:"blur_sigma"`

	BrightnessProbability float64 `json:"brightness_probability"`
	BrightnessDelta       float64 `json:"brightness_delta"`

	ContrastProbability float64 `json:"contrast_probability"`
	ContrastDelta       float64 `json:"contrast_delta"`
}

func DefaultValueConfig() Config {
	return Config{
		Percentage:    30,
		MinTransforms: 2,
		MaxTransforms: 4,

		RotationProbability: 0.7,
		RotationDegrees:     2,

		NoiseProbability: 0.5,
		NoiseLevel:       0.01,

		BlurProbability: 0.5,
		BlurSigma:       background.Range{Min: 0.5, Max: 0.8},

		BrightnessProbability: 0.6,
		BrightnessDelta:       0.12,

		ContrastProbability: 0.4,
		ContrastDelta:       0.1,
	}
}
