package generator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/background"
	"synth-ocr/src/pkg/compose"
	"synth-ocr/src/pkg/corpus"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/render"
	"synth-ocr/src/pkg/selector"
	"synth-ocr/src/pkg/textchunk"
	"synth-ocr/src/pkg/writer"
)

type fakeFonts int

func (f fakeFonts) Len() int { return int(f) }

func (f fakeFonts) Get(index int) (*fonts.Font, bool) {
	if index < 1 || index > int(f) {
		return nil, false
	}
	return &fonts.Font{Index: index, Path: fmt.Sprintf("font%02d.ttf", index)}, true
}

// blockRenderer draws one black bar per rune; it fails for text containing "bad".
type blockRenderer struct {
	calls int
}

func (r *blockRenderer) Render(text string, f *fonts.Font) (*render.Bitmap, *xerr.Error) {
	r.calls++
	if strings.Contains(text, "bad") {
		return nil, xerr.NewError(render.ErrMissingGlyph, "render text", text)
	}
	n := len([]rune(text))
	img := imaging.New(4+n*3+f.Index, 16, color.White)
	bm := &render.Bitmap{Image: img, FontSize: 12}
	for i, c := range []rune(text) {
		box := image.Rect(2+i*3, 4, 4+i*3, 12)
		for y := box.Min.Y; y < box.Max.Y; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
		bm.Glyphs = append(bm.Glyphs, render.Glyph{Rune: c, Box: box})
	}
	return bm, nil
}

type memoryStore struct {
	skip    bool
	samples map[string]writer.Sample
	order   []string
	failOn  string
}

func newMemoryStore(skip bool) *memoryStore {
	return &memoryStore{skip: skip, samples: map[string]writer.Sample{}}
}

func (s *memoryStore) SkipExisting() bool { return s.skip }

func (s *memoryStore) Exists(name string) bool {
	_, ok := s.samples[name]
	return ok
}

func (s *memoryStore) Save(sample writer.Sample) *xerr.Error {
	if s.failOn != "" && strings.Contains(sample.Transcript, s.failOn) {
		return xerr.NewError(fmt.Errorf("disk full"), "save sample", sample.Name)
	}
	s.samples[sample.Name] = sample
	s.order = append(s.order, sample.Name)
	return nil
}

type memoryRecorder struct {
	records []manifest.Record
	fail    bool
}

func (r *memoryRecorder) Append(rec manifest.Record) *xerr.Error {
	if r.fail {
		return xerr.NewError(fmt.Errorf("manifest closed"), "append record", rec.Name)
	}
	r.records = append(r.records, rec)
	return nil
}

func lines(n int, format string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf(format, i)
	}
	return out
}

type fixture struct {
	texts      []string
	fonts      int
	background float64
	augment    float64
	seed       uint64
	store      *memoryStore
	settings   Settings
}

func (f fixture) build(t *testing.T) (*Generator, *memoryStore, *memoryRecorder, *blockRenderer) {
	t.Helper()
	augCfg := augment.DefaultValueConfig()
	augCfg.Percentage = f.augment
	store := f.store
	if store == nil {
		store = newMemoryStore(false)
	}
	recorder := &memoryRecorder{}
	renderer := &blockRenderer{}
	settings := f.settings
	settings.BackgroundPercentage = f.background

	g, e := New(Deps{
		Corpus:     corpus.FromLines(f.texts, textchunk.New(100)),
		Fonts:      fakeFonts(f.fonts),
		Renderer:   renderer,
		Compositor: compose.New(background.New(background.DefaultTiers()), background.Medium),
		Augmenter:  augment.New(augCfg),
		Store:      store,
		Recorder:   recorder,
	}, settings, rand.New(rand.NewPCG(f.seed, f.seed)))
	if e != nil {
		t.Fatal(e)
	}
	return g, store, recorder, renderer
}

func TestRequestWithinCapacity(t *testing.T) {
	g, store, _, renderer := fixture{texts: lines(10, "line %d"), fonts: 2, seed: 1}.build(t)

	stats := g.Run(15)
	if stats.Successful != 15 || stats.Failed != 0 || stats.SkippedDuplicate != 0 || stats.Exhausted != 0 {
		t.Fatalf("unexpected stats %s", stats)
	}

	seen := map[selector.Combination]bool{}
	for _, name := range store.order {
		sample := store.samples[name]
		var seq, chunk, font int
		if _, err := fmt.Sscanf(name, "t%04dc%02df%02d", &seq, &chunk, &font); err != nil {
			t.Fatalf("name %q does not parse: %v", name, err)
		}
		rendered, _ := renderer.Render(sample.Transcript, &fonts.Font{Index: font})
		if sample.Image.Bounds().Size() != rendered.Image.Bounds().Size() {
			t.Errorf("%s: size %v, rendered %v", name, sample.Image.Bounds().Size(), rendered.Image.Bounds().Size())
		}
		var text int
		fmt.Sscanf(sample.Transcript, "line %d", &text)
		combo := selector.Combination{Text: text, Chunk: chunk, Font: font}
		if seen[combo] {
			t.Fatalf("combination %s emitted twice", combo)
		}
		seen[combo] = true
	}
}

func TestRequestBeyondCapacity(t *testing.T) {
	g, store, _, _ := fixture{texts: lines(5, "line %d"), fonts: 1, seed: 2}.build(t)

	stats := g.Run(10)
	if stats.Successful != 5 || stats.Exhausted != 5 {
		t.Fatalf("unexpected stats %s", stats)
	}
	if !stats.Balanced() || stats.Shortfall() != 5 {
		t.Fatalf("stats do not balance: %s", stats)
	}
	if len(store.samples) != 5 {
		t.Fatalf("stored %d samples", len(store.samples))
	}
}

func TestFailuresDoNotStopTheRun(t *testing.T) {
	texts := lines(6, "line %d")
	texts[2] = "bad glyph"
	store := newMemoryStore(false)
	store.failOn = "line 4"

	g, _, recorder, _ := fixture{texts: texts, fonts: 1, seed: 3, store: store}.build(t)
	stats := g.Run(6)
	if stats.Successful != 4 || stats.Failed != 2 {
		t.Fatalf("unexpected stats %s", stats)
	}
	if !stats.Balanced() {
		t.Fatalf("stats do not balance: %s", stats)
	}
	if len(recorder.records) != 4 {
		t.Fatalf("recorded %d samples, want 4", len(recorder.records))
	}
}

func TestRecorderFailureKeepsSample(t *testing.T) {
	texts := lines(4, "line %d")
	texts[1] = "bad glyph"
	g, store, recorder, _ := fixture{texts: texts, fonts: 1, seed: 4}.build(t)
	recorder.fail = true

	stats := g.Run(4)
	if stats.Successful != 3 || stats.Failed != 1 || !stats.Balanced() {
		t.Fatalf("unexpected stats %s", stats)
	}
	if len(store.samples) != 3 || len(recorder.records) != 0 {
		t.Fatalf("stored %d samples, recorded %d", len(store.samples), len(recorder.records))
	}
}

func TestSameSeedSameDataset(t *testing.T) {
	run := func() *memoryStore {
		g, store, _, _ := fixture{texts: lines(8, "sample %d"), fonts: 3, background: 100, augment: 100, seed: 42}.build(t)
		g.Run(12)
		return store
	}
	a, b := run(), run()
	if strings.Join(a.order, ",") != strings.Join(b.order, ",") {
		t.Fatalf("names differ:\n%v\n%v", a.order, b.order)
	}
	for _, name := range a.order {
		ia := imaging.Clone(a.samples[name].Image)
		ib := imaging.Clone(b.samples[name].Image)
		if !bytes.Equal(ia.Pix, ib.Pix) {
			t.Fatalf("%s differs between runs", name)
		}
	}
}

func TestResumeSkipsPersistedSamples(t *testing.T) {
	store := newMemoryStore(true)
	first, _, _, _ := fixture{texts: lines(10, "line %d"), fonts: 2, seed: 7, store: store}.build(t)
	if stats := first.Run(6); stats.Successful != 6 {
		t.Fatalf("first run: %s", stats)
	}
	firstNames := append([]string(nil), store.order...)

	second, _, _, renderer := fixture{texts: lines(10, "line %d"), fonts: 2, seed: 7, store: store}.build(t)
	stats := second.Run(9)
	if stats.SkippedDuplicate != 6 || stats.Successful != 3 || !stats.Balanced() {
		t.Fatalf("second run: %s", stats)
	}
	if renderer.calls != 3 {
		t.Fatalf("skipped samples were rendered again (%d renders)", renderer.calls)
	}
	for i, name := range firstNames {
		if store.order[i] != name {
			t.Fatalf("persisted sample %d changed name", i)
		}
	}
}

func TestHistoryIsNeverRegenerated(t *testing.T) {
	history := []selector.Combination{{Text: 0, Chunk: 1, Font: 1}, {Text: 1, Chunk: 1, Font: 1}}
	g, _, recorder, _ := fixture{
		texts:    lines(4, "line %d"),
		fonts:    1,
		seed:     5,
		settings: Settings{History: history, FirstSeq: 2},
	}.build(t)

	stats := g.Run(4)
	if stats.Successful != 2 || stats.Exhausted != 2 {
		t.Fatalf("unexpected stats %s", stats)
	}
	for _, r := range recorder.records {
		if r.TextIndex < 2 {
			t.Fatalf("history combination regenerated: %+v", r)
		}
		if r.Seq < 2 {
			t.Fatalf("sequence restarted at %d", r.Seq)
		}
	}
}

func TestAugmentationRate(t *testing.T) {
	g, _, recorder, _ := fixture{texts: lines(1000, "%d"), fonts: 1, augment: 30, seed: 11}.build(t)
	stats := g.Run(1000)
	if stats.Successful != 1000 {
		t.Fatalf("unexpected stats %s", stats)
	}
	rate := float64(stats.Augmented) / 1000
	if math.Abs(rate-0.3) > 0.05 {
		t.Fatalf("augmentation rate %.3f, want about 0.30", rate)
	}
	for _, r := range recorder.records {
		if !r.Augmented && len(r.Transforms) > 0 {
			t.Fatalf("%s has transforms without an augment decision", r.Name)
		}
	}
}

func TestBoxFilesSkipRotatedSamples(t *testing.T) {
	g, store, recorder, _ := fixture{
		texts:    lines(20, "box %d"),
		fonts:    1,
		augment:  50,
		seed:     13,
		settings: Settings{WriteBoxFiles: true},
	}.build(t)
	g.Run(20)

	for _, r := range recorder.records {
		rotated := false
		for _, tr := range r.Transforms {
			rotated = rotated || tr == string(augment.Rotation)
		}
		hasBox := store.samples[r.Name].Box != ""
		if rotated == hasBox {
			t.Errorf("%s: rotated=%v box=%v", r.Name, rotated, hasBox)
		}
	}
}

func TestSetupErrors(t *testing.T) {
	deps := Deps{
		Corpus:     corpus.FromLines(nil, textchunk.New(10)),
		Fonts:      fakeFonts(1),
		Renderer:   &blockRenderer{},
		Compositor: compose.New(background.New(background.DefaultTiers()), background.Light),
		Augmenter:  augment.New(augment.DefaultValueConfig()),
		Store:      newMemoryStore(false),
	}
	rng := rand.New(rand.NewPCG(1, 1))
	if _, e := New(deps, Settings{}, rng); e == nil {
		t.Error("empty corpus should be a setup error")
	}

	deps.Corpus = corpus.FromLines([]string{"x"}, textchunk.New(10))
	deps.Fonts = fakeFonts(0)
	if _, e := New(deps, Settings{}, rng); e == nil {
		t.Error("no fonts should be a setup error")
	}
}

func TestSampleName(t *testing.T) {
	cases := []struct {
		prefix           string
		seq, chunk, font int
		want             string
	}{
		{"t", 0, 1, 1, "t0000c01f01"},
		{"s", 42, 3, 12, "s0042c03f12"},
		{"t", 12345, 1, 2, "t12345c01f02"},
	}
	for _, c := range cases {
		if got := SampleName(c.prefix, c.seq, c.chunk, c.font); got != c.want {
			t.Errorf("got %s, want %s", got, c.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if Persisted.String() != "PERSISTED" || !Failed.Terminal() || CombinationSelected.Terminal() {
		t.Fatal("unexpected state helpers")
	}
}
