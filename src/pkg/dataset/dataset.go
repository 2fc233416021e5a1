/*
Package dataset runs a complete generation: it loads fonts and corpora,
splits the requested total between text and special samples, runs one
generator per content kind against a shared random source, writer and
manifest, and stores a run summary next to the samples.
*/
package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/background"
	"synth-ocr/src/pkg/compose"
	"synth-ocr/src/pkg/config"
	"synth-ocr/src/pkg/corpus"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/generator"
	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/render"
	"synth-ocr/src/pkg/textchunk"
	"synth-ocr/src/pkg/writer"
)

const SummaryFileName = "summary.json"

type Summary struct {
	Seed       uint64                     `json:"seed"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Kinds      map[string]generator.Stats `json:"kinds"`
	Total      generator.Stats            `json:"total"`
	Fonts      int                        `json:"fonts"`
	OutputDir  string                     `json:"output_dir"`
	Manifest   string                     `json:"manifest"`
	FontIndex  string                     `json:"font_index"`
}

// Seed returns the configured seed, or a time-based one when none is set.
func Seed(configured *uint64) uint64 {
	if configured != nil {
		return *configured
	}
	return uint64(time.Now().UnixNano())
}

// NewRand is the run's single random source.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

/*
Run generates the dataset described by cfg. Missing fonts or text are
setup errors and nothing is generated; anything that goes wrong with an
individual sample is counted in the summary instead.
*/
func Run(cfg config.Config) (summary Summary, e *xerr.Error) {
	summary.StartedAt = time.Now()
	summary.Seed = Seed(cfg.Advanced.RandomSeed)
	summary.OutputDir = cfg.Dataset.OutputDir
	summary.Kinds = map[string]generator.Stats{}

	if cfg.Advanced.RandomSeed == nil {
		tl.Log(tl.Notice, palette.Yellow, "No random seed configured, using %d", summary.Seed)
	} else {
		tl.Log(tl.Info, palette.Cyan, "Random seed set to %d", summary.Seed)
	}
	logPlan(cfg)

	store, e := writer.New(cfg.Dataset.OutputDir, cfg.Output.SkipExisting)
	if e != nil {
		return summary, e
	}

	catalog, e := fonts.Discover(cfg.Fonts.Directory)
	if e != nil {
		return summary, e
	}
	summary.Fonts = catalog.Len()
	summary.FontIndex, e = catalog.SaveIndex(cfg.Dataset.OutputDir)
	if e != nil {
		return summary, e
	}

	var history []manifest.Record
	if cfg.Selection.HistoryManifest != "" {
		history, e = manifest.Load(cfg.Selection.HistoryManifest)
		if e != nil {
			return summary, e
		}
	}

	jobs, e := plan(cfg)
	if e != nil {
		return summary, e
	}

	recorder, e := manifest.Create(cfg.Dataset.OutputDir, cfg.Output.CompressManifest)
	if e != nil {
		return summary, e
	}
	summary.Manifest = recorder.Path()
	defer func() {
		closeErr := recorder.Close()
		if closeErr != nil && e == nil {
			e = closeErr
		}
	}()

	rng := NewRand(summary.Seed)
	deps := generator.Deps{
		Fonts:      catalog,
		Renderer:   render.New(cfg.Fonts.Config),
		Compositor: compose.New(background.New(cfg.Background.Tiers), cfg.Background.Intensity),
		Augmenter:  augment.New(cfg.Augmentation),
		Store:      store,
		Recorder:   recorder,
	}

	for _, job := range jobs {
		deps.Corpus = job.corpus
		gen, e := generator.New(deps, generator.Settings{
			Kind:                 job.kind,
			BackgroundPercentage: cfg.Background.Percentage,
			WriteBoxFiles:        cfg.Output.WriteBoxFiles,
			MaxFontAttempts:      cfg.Selection.MaxFontAttempts,
			History:              manifest.History(history, job.kind.Name),
			FirstSeq:             NextSeq(history, job.kind.Name),
			ProgressEvery:        cfg.Output.ProgressInterval,
		}, rng)
		if e != nil {
			return summary, e
		}

		tl.Log(
			tl.Notice, palette.BlueBold, "Generating %d %s samples from %d chunks and %d fonts (%d combinations left)",
			job.count, job.kind.Name, job.corpus.Len(), catalog.Len(), gen.Capacity(),
		)
		stats := gen.Run(job.count)
		logStats(job.kind.Name, stats)

		summary.Kinds[job.kind.Name] = stats
		summary.Total = summary.Total.Add(stats)
	}

	summary.FinishedAt = time.Now()
	summary.Total.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	e = writer.SaveJSONToFile(filepath.Join(cfg.Dataset.OutputDir, SummaryFileName), summary)
	if e != nil {
		return summary, e
	}
	tl.LogJSON(tl.Info, palette.CyanDim, "run summary", summary)
	logStats("total", summary.Total)
	return summary, nil
}

type job struct {
	kind   generator.Kind
	count  int
	corpus *corpus.Corpus
}

// plan loads the corpus of every content kind that has samples to generate.
func plan(cfg config.Config) (jobs []job, e *xerr.Error) {
	if n := cfg.TextSamples(); n > 0 {
		chunker := textchunk.New(cfg.TextProcessing.MaxLineLengthText)
		var c *corpus.Corpus
		if cfg.Input.UsePreprocessed {
			c, e = corpus.LoadPreprocessed(cfg.Input.ProcessedDir, chunker)
		} else {
			c, e = corpus.Load(cfg.Input.TextFile, chunker)
		}
		if e != nil {
			return nil, e
		}
		jobs = append(jobs, job{kind: generator.Text, count: n, corpus: c})
	}

	if n := cfg.SpecialSamples(); n > 0 {
		c, e := corpus.Load(cfg.Input.SpecialFile, textchunk.New(cfg.TextProcessing.MaxLineLengthSpecial))
		if e != nil {
			return nil, e
		}
		jobs = append(jobs, job{kind: generator.Special, count: n, corpus: c})
	}
	return jobs, nil
}

// NextSeq continues the numbering of kind after the records of earlier runs.
func NextSeq(records []manifest.Record, kind string) int {
	next := 1
	for _, r := range records {
		if r.Kind == kind && r.Seq >= next {
			next = r.Seq + 1
		}
	}
	return next
}

func logPlan(cfg config.Config) {
	tl.Log(
		tl.Info, palette.Purple, "Total samples: %d (text: %d at %.0f%%, special: %d)",
		cfg.Dataset.TotalSamples, cfg.TextSamples(), cfg.Dataset.TextPercentage, cfg.SpecialSamples(),
	)
	tl.Log(
		tl.Info, palette.Purple, "Augmentation: %.0f%% of images, background: %.0f%% at '%s' intensity",
		cfg.Augmentation.Percentage, cfg.Background.Percentage, cfg.Background.Intensity,
	)
	tl.Log(
		tl.Info, palette.Purple, "Output: '%s', text height %dpx, padding %dpx",
		cfg.Dataset.OutputDir, cfg.Fonts.TargetTextHeight, cfg.Fonts.Padding,
	)
}

func logStats(label string, s generator.Stats) {
	color := palette.GreenBold
	level := tl.Notice
	if s.Shortfall() > 0 {
		color = palette.YellowBold
		level = tl.Warning
	}
	tl.Log(level, color, "%s: %s in %s", label, s, s.Duration.Round(time.Millisecond))
	if s.Exhausted > 0 {
		tl.Log(
			tl.Warning1, palette.Yellow, "%s: %d samples short because the combination space ran out, add text or fonts for more",
			label, s.Exhausted,
		)
	}
}

// Describe is a one-line human summary used for notifications.
func (s Summary) Describe() string {
	return fmt.Sprintf("%d/%d samples written to '%s' (seed %d)", s.Total.Successful, s.Total.Requested, s.OutputDir, s.Seed)
}

// ReadSummary loads the summary.json of a generated dataset.
func ReadSummary(dir string) (summary Summary, e *xerr.Error) {
	path := filepath.Join(dir, SummaryFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return summary, xerr.NewError(err, "read run summary", path)
	}
	err = json.Unmarshal(data, &summary)
	if err != nil {
		return summary, xerr.NewError(err, "decode run summary", path)
	}
	return summary, nil
}
