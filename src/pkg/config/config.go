/*
Package config loads the run configuration from a JSON file.

The file is decoded on top of DefaultValueConfig, so omitted fields keep
their defaults while explicit zeroes (for example a background percentage
of 0) are honored. Programs load it once and pass the pieces they need to
the packages that use them.
*/
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/background"
	echomw "synth-ocr/src/pkg/echo-middleware"
	"synth-ocr/src/pkg/email"
	"synth-ocr/src/pkg/publish"
	"synth-ocr/src/pkg/render"
	"synth-ocr/src/pkg/verify"
)

type Dataset struct {
	TotalSamples   int     `json:"total_samples"`
	TextPercentage float64 `json:"text_percentage"`
	OutputDir      string  `json:"output_dir"`
}

type Input struct {
	TextFile        string `json:"text_file"`
	SpecialFile     string `json:"special_file"`
	RawTextDir      string `json:"raw_text_dir"`
	ProcessedDir    string `json:"processed_dir"`
	UsePreprocessed bool   `json:"use_preprocessed"`
}

type TextProcessing struct {
	MaxLineLengthText    int  `json:"max_line_length_text"`
	MaxLineLengthSpecial int  `json:"max_line_length_special"`
	SaveStats            bool `json:"save_stats"`
	OverwriteExisting    bool `json:"overwrite_existing"`
}

type Fonts struct {
	Directory string `json:"directory"`
	render.Config
}

type Selection struct {
	MaxFontAttempts int `json:"max_font_attempts"`
	// HistoryManifest is a manifest file or a dataset directory of an earlier run.
	HistoryManifest string `json:"history_manifest"`
}

type Output struct {
	ProgressInterval int  `json:"progress_interval"`
	WriteBoxFiles    bool `json:"write_box_files"`
	SkipExisting     bool `json:"skip_existing"`
	CompressManifest bool `json:"compress_manifest"`
}

type Advanced struct {
	// RandomSeed is nil for a time-based seed.
	RandomSeed *uint64 `json:"random_seed"`
}

type Config struct {
	Dataset        Dataset           `json:"dataset"`
	Input          Input             `json:"input"`
	TextProcessing TextProcessing    `json:"text_processing"`
	Fonts          Fonts             `json:"fonts"`
	Augmentation   augment.Config    `json:"augmentation"`
	Background     background.Config `json:"background"`
	Selection      Selection         `json:"selection"`
	Output         Output            `json:"output"`
	Advanced       Advanced          `json:"advanced"`
	Server         *echomw.Config    `json:"server,omitempty"`
	Notify         email.Config      `json:"notify"`
	Publish        publish.Config    `json:"publish"`
	Verify         verify.Config     `json:"verify"`
}

// Cfg is the configuration loaded by InitializeConfig.
var Cfg Config

func DefaultValueConfig() Config {
	return Config{
		Dataset: Dataset{
			TotalSamples:   1000,
			TextPercentage: 80,
			OutputDir:      "./output",
		},
		Input: Input{
			TextFile:     "./data/text.txt",
			SpecialFile:  "./data/special.txt",
			RawTextDir:   "./data/raw",
			ProcessedDir: "./data/processed",
		},
		TextProcessing: TextProcessing{
			MaxLineLengthText:    50,
			MaxLineLengthSpecial: 30,
			SaveStats:            true,
		},
		Fonts: Fonts{
			Directory: "./fonts",
			Config:    render.DefaultValueConfig(),
		},
		Augmentation: augment.DefaultValueConfig(),
		Background:   background.DefaultValueConfig(),
		Selection:    Selection{MaxFontAttempts: 10},
		Output: Output{
			ProgressInterval: 100,
			WriteBoxFiles:    true,
			SkipExisting:     true,
		},
		Notify:  email.DefaultValueConfig(),
		Publish: publish.DefaultValueConfig(),
		Verify:  verify.DefaultValueConfig(),
	}
}

/*
Load reads path and decodes it onto the defaults. Unknown keys are an error
so that a misspelled option does not silently fall back to its default.
*/
func Load(path string) (cfg Config, e *xerr.Error) {
	cfg = DefaultValueConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerr.NewError(err, "read config file", path)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err = decoder.Decode(&cfg)
	if err != nil {
		return cfg, xerr.NewError(err, "decode config file", path)
	}
	return cfg, nil
}

/*
InitializeConfig loads and validates the configuration at path, stores it
in Cfg and returns it. Any problem ends the program.
*/
func InitializeConfig(path string) Config {
	cfg, e := Load(path)
	e.QuitIf(xerr.ErrorTypeError)

	e = cfg.Validate()
	e.QuitIf(xerr.ErrorTypeError)

	Cfg = cfg
	tl.Log(tl.Info, palette.Green, "%s loaded from '%s'", "Configuration", path)
	tl.LogJSON(tl.Verbose, palette.CyanDim, "configuration", cfg)
	return cfg
}

// Validate fails with every problem Problems finds.
func (c *Config) Validate() *xerr.Error {
	problems := c.Problems()
	if len(problems) > 0 {
		for _, problem := range problems {
			tl.Log(tl.Error, palette.Red, "Invalid configuration: %s", problem.Error())
		}
		return xerr.NewError(errors.Join(problems...), "validate configuration", len(problems))
	}
	return nil
}

/*
Problems checks the values the generation engine takes for granted:
percentages within 0-100, a known background intensity, positive counts
and an existing font directory. The intensity is normalized in place.
*/
func (c *Config) Problems() (problems []error) {
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.Dataset.TotalSamples > 0, "dataset.total_samples must be greater than 0")
	check(isPercentage(c.Dataset.TextPercentage), "dataset.text_percentage must be between 0 and 100")
	check(c.Dataset.OutputDir != "", "dataset.output_dir is required")
	check(isPercentage(c.Augmentation.Percentage), "augmentation.percentage must be between 0 and 100")
	check(isPercentage(c.Background.Percentage), "background.percentage must be between 0 and 100")
	check(c.Augmentation.MinTransforms >= 0 && c.Augmentation.MinTransforms <= c.Augmentation.MaxTransforms,
		"augmentation.min_transforms must be between 0 and max_transforms")
	check(c.Fonts.TargetTextHeight > 0, "fonts.target_text_height must be greater than 0")
	check(c.Fonts.MinFontSize > 0 && c.Fonts.MinFontSize < c.Fonts.MaxFontSize,
		"fonts.min_font_size must be positive and below fonts.max_font_size")
	check(c.TextProcessing.MaxLineLengthText > 0, "text_processing.max_line_length_text must be greater than 0")
	check(c.TextProcessing.MaxLineLengthSpecial > 0, "text_processing.max_line_length_special must be greater than 0")
	check(c.Output.ProgressInterval >= 0, "output.progress_interval must not be negative")

	intensity, ok := background.ParseIntensity(string(c.Background.Intensity))
	check(ok, "background.intensity must be 'light', 'medium', or 'heavy', got '%s'", c.Background.Intensity)
	if ok {
		c.Background.Intensity = intensity
	}

	info, err := os.Stat(c.Fonts.Directory)
	check(err == nil && info.IsDir(), "font directory not found: '%s'", c.Fonts.Directory)

	if c.Notify.Enabled {
		check(email.ValidProvider(c.Notify.Provider), "notify.provider must be one of ses, mailgun, sendgrid, got '%s'", c.Notify.Provider)
		check(c.Notify.Sender != "" && len(c.Notify.Recipients) > 0, "notify needs a sender and at least one recipient")
	}

	return problems
}

// TextSamples is the number of text samples; the rest are special.
func (c Config) TextSamples() int {
	return int(float64(c.Dataset.TotalSamples) * c.Dataset.TextPercentage / 100)
}

func (c Config) SpecialSamples() int {
	return c.Dataset.TotalSamples - c.TextSamples()
}

func isPercentage(v float64) bool {
	return v >= 0 && v <= 100
}
