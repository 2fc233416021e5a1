package render

// Config sizes the rendered text line. Sizes are in points at 72 DPI, so one point is one pixel.
type Config struct {
	TargetTextHeight int `json:"target_text_height"`
	Padding          int `json:"padding"`
	MinFontSize      int `json:"min_font_size"`
	MaxFontSize      int `json:"max_font_size"`
	FallbackFontSize int `json:"fallback_font_size"`
}

func DefaultValueConfig() Config {
	return Config{
		TargetTextHeight: 40,
		Padding:          10,
		MinFontSize:      20,
		MaxFontSize:      100,
		FallbackFontSize: 32,
	}
}
