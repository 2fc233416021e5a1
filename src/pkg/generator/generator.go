/*
Package generator drives sample generation for one content kind.

Each requested slot walks PENDING -> COMBINATION_SELECTED -> RENDERED ->
COMPOSITED -> AUGMENTED -> PERSISTED. A failure in any stage marks the slot
FAILED and the run moves on; running out of unique combinations ends the run
with the remaining slots counted as EXHAUSTED.

All randomness comes from the rng handed to New. For every slot the
generator draws, in order, the combination, a sample seed, the augment flag
and the background flag. Compositing and augmentation of a slot use their
own source seeded from the sample seed, so a slot skipped on resume does not
shift the draws of later slots.
*/
package generator

import (
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"slices"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/compose"
	"synth-ocr/src/pkg/corpus"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/render"
	"synth-ocr/src/pkg/selector"
	"synth-ocr/src/pkg/writer"
)

var (
	ErrNoText     = errors.New("no text entries loaded")
	ErrNoFonts    = errors.New("no fonts available")
	ErrMissingDep = errors.New("missing generator dependency")
)

const sampleSeedSalt = 0x9e3779b97f4a7c15

// Kind is a content stream with its own corpus and name prefix.
type Kind struct {
	Name   string
	Prefix string
}

var (
	Text    = Kind{Name: "text", Prefix: "t"}
	Special = Kind{Name: "special", Prefix: "s"}
)

type Renderer interface {
	Render(text string, f *fonts.Font) (*render.Bitmap, *xerr.Error)
}

type FontSource interface {
	Len() int
	Get(index int) (*fonts.Font, bool)
}

type Store interface {
	SkipExisting() bool
	Exists(name string) bool
	Save(s writer.Sample) *xerr.Error
}

type Recorder interface {
	Append(r manifest.Record) *xerr.Error
}

type Deps struct {
	Corpus     *corpus.Corpus
	Fonts      FontSource
	Renderer   Renderer
	Compositor *compose.Compositor
	Augmenter  *augment.Pipeline
	Store      Store
	// Recorder is optional.
	Recorder Recorder
}

type Settings struct {
	Kind                 Kind
	BackgroundPercentage float64
	WriteBoxFiles        bool
	MaxFontAttempts      int
	// History holds combinations written by earlier runs.
	History []selector.Combination
	// FirstSeq is the sequence number of the first slot.
	FirstSeq int
	// ProgressEvery logs progress every n slots; 0 disables it.
	ProgressEvery int
}

// Task is the per-slot work record.
type Task struct {
	Seq         int
	Combination selector.Combination
	Chunk       corpus.Chunk
	Font        *fonts.Font
	Seed        uint64
	Augment     bool
	Background  bool
	State       State
}

func (t *Task) Name(prefix string) string {
	return SampleName(prefix, t.Seq, t.Combination.Chunk, t.Combination.Font)
}

// SampleName builds {prefix}{seq:04d}c{chunk:02d}f{font:02d}.
func SampleName(prefix string, seq, chunk, font int) string {
	return fmt.Sprintf("%s%04dc%02df%02d", prefix, seq, chunk, font)
}

type Generator struct {
	deps     Deps
	settings Settings
	rng      *rand.Rand
	selector *selector.Selector
}

/*
New validates the inputs and builds the selector. An empty corpus or font
set is a setup error and no sample is attempted.
*/
func New(deps Deps, settings Settings, rng *rand.Rand) (*Generator, *xerr.Error) {
	if deps.Corpus == nil || deps.Corpus.Len() == 0 {
		return nil, xerr.NewError(ErrNoText, "create generator", settings.Kind.Name)
	}
	if deps.Fonts == nil || deps.Fonts.Len() == 0 {
		return nil, xerr.NewError(ErrNoFonts, "create generator", settings.Kind.Name)
	}
	if deps.Renderer == nil || deps.Compositor == nil || deps.Augmenter == nil || deps.Store == nil || rng == nil {
		return nil, xerr.NewError(ErrMissingDep, "create generator", settings.Kind.Name)
	}
	if settings.Kind.Prefix == "" {
		settings.Kind = Text
	}

	sel := selector.New(deps.Corpus.Units(), deps.Fonts.Len(), rng, selector.Options{
		MaxFontAttempts: settings.MaxFontAttempts,
		History:         settings.History,
	})
	return &Generator{deps: deps, settings: settings, rng: rng, selector: sel}, nil
}

// Capacity is the number of combinations still available to this generator.
func (g *Generator) Capacity() int {
	return g.selector.Remaining()
}

/*
Run fills requested slots. Per-sample problems never abort the run; they are
logged with the combination that caused them and counted in the result.
*/
func (g *Generator) Run(requested int) (stats Stats) {
	start := time.Now()
	stats.Requested = max(requested, 0)
	kind := g.settings.Kind

	if stats.Requested > g.selector.Remaining() {
		tl.Log(
			tl.Warning, palette.Yellow, "%s: requested %d samples but only %d unique combinations remain",
			kind.Name, stats.Requested, g.selector.Remaining(),
		)
	}

	for slot := 0; slot < stats.Requested; slot++ {
		task := &Task{Seq: g.settings.FirstSeq + slot, State: Pending}

		combo, err := g.selector.Next()
		if err != nil {
			task.State = Exhausted
			stats.Exhausted = stats.Requested - slot
			tl.Log(
				tl.Notice, palette.Yellow, "%s: combination space exhausted after %d slots, %d samples not generated",
				kind.Name, slot, stats.Exhausted,
			)
			break
		}
		task.Combination = combo
		task.State = CombinationSelected
		task.Seed = g.rng.Uint64()
		task.Augment = g.deps.Augmenter.Decide(g.rng)
		task.Background = g.rng.Float64()*100 < g.settings.BackgroundPercentage

		name := task.Name(kind.Prefix)
		if g.deps.Store.SkipExisting() && g.deps.Store.Exists(name) {
			stats.SkippedDuplicate++
			tl.Log(tl.Verbose, palette.BlueDim, "%s: '%s' already on disk, skipping", kind.Name, name)
			continue
		}

		e := g.process(task, name)
		if e != nil {
			stats.Failed++
			tl.Log(
				tl.Warning, palette.Yellow, "%s: sample '%s' (%s) failed after %s: %s: %s",
				kind.Name, name, combo, task.State, e.Msg, e.ErrStr,
			)
			task.State = Failed
			continue
		}

		stats.Successful++
		if task.Augment {
			stats.Augmented++
		}
		if task.Background {
			stats.Background++
		}
		if every := g.settings.ProgressEvery; every > 0 && (slot+1)%every == 0 {
			tl.Log(tl.Info, palette.Cyan, "%s: %d/%d slots done", kind.Name, slot+1, stats.Requested)
		}
	}

	stats.Redraws = g.selector.Redraws()
	stats.Duration = time.Since(start)
	return stats
}

/*
process renders, composites, augments and persists one task. task.State is
left at the last stage that completed.
*/
func (g *Generator) process(task *Task, name string) *xerr.Error {
	chunk, ok := g.deps.Corpus.Lookup(task.Combination.Unit())
	if !ok {
		return xerr.NewError(fmt.Errorf("unknown unit %+v", task.Combination.Unit()), "resolve text", name)
	}
	font, ok := g.deps.Fonts.Get(task.Combination.Font)
	if !ok {
		return xerr.NewError(fmt.Errorf("unknown font %d", task.Combination.Font), "resolve font", name)
	}
	task.Chunk = chunk
	task.Font = font

	bm, e := g.deps.Renderer.Render(chunk.Content, font)
	if e != nil {
		return e
	}
	task.State = Rendered

	rng := SampleRand(task.Seed)
	img, effects := g.deps.Compositor.Compose(rng, bm.Image, task.Background)
	task.State = Composited

	img, transforms := g.deps.Augmenter.MaybeAugment(rng, img, task.Augment)
	task.State = Augmented

	sample := writer.Sample{Name: name, Image: img, Transcript: chunk.Content}
	if g.settings.WriteBoxFiles && !slices.Contains(transforms, augment.Rotation) {
		sample.Box = render.BoxFile(bm.Glyphs, img.Bounds().Dy())
	}
	e = g.deps.Store.Save(sample)
	if e != nil {
		return e
	}
	task.State = Persisted

	if g.deps.Recorder != nil {
		re := g.deps.Recorder.Append(g.record(task, name, img, bm.FontSize, effects, transforms))
		if re != nil {
			tl.Log(tl.Warning, palette.Yellow, "Sample '%s' saved but not recorded in manifest: %s: %s", name, re.Msg, re.ErrStr)
		}
	}
	return nil
}

func (g *Generator) record(task *Task, name string, img image.Image, fontSize int, effects []string, transforms []augment.Transform) manifest.Record {
	applied := make([]string, len(transforms))
	for i, t := range transforms {
		applied[i] = string(t)
	}
	return manifest.Record{
		Name:       name,
		Kind:       g.settings.Kind.Name,
		Seq:        task.Seq,
		TextIndex:  task.Combination.Text,
		Chunk:      task.Combination.Chunk,
		Font:       task.Combination.Font,
		FontFile:   task.Font.File(),
		Text:       task.Chunk.Content,
		FontSize:   fontSize,
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		Background: task.Background,
		Effects:    effects,
		Augmented:  task.Augment,
		Transforms: applied,
		Seed:       task.Seed,
		CreatedAt:  time.Now(),
	}
}

// SampleRand is the random source for compositing and augmenting one sample.
func SampleRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^sampleSeedSalt))
}
