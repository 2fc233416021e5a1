package preprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"synth-ocr/src/pkg/corpus"
	"synth-ocr/src/pkg/textchunk"
)

func setup(t *testing.T) Config {
	t.Helper()
	raw := t.TempDir()
	files := map[string]string{
		"b.txt": "Short line\n",
		"a.txt": "First sentence. Second sentence\n\nTiny\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(raw, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Config{
		RawTextDir:    raw,
		ProcessedDir:  filepath.Join(t.TempDir(), "processed"),
		MaxLineLength: 16,
		SaveStats:     true,
	}
}

func TestRunWritesChunksAndMetadata(t *testing.T) {
	cfg := setup(t)
	stats, e := Run(cfg)
	if e != nil {
		t.Fatal(e)
	}
	if stats.TotalFiles != 2 || stats.TotalRawLines != 3 || stats.TotalChunks != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ChunkDistribution[1] != 2 || stats.ChunkDistribution[2] != 1 {
		t.Fatalf("unexpected distribution %v", stats.ChunkDistribution)
	}

	text, err := os.ReadFile(filepath.Join(cfg.ProcessedDir, corpus.TextFileName))
	if err != nil {
		t.Fatal(err)
	}
	want := "First sentence.\nSecond sentence\nTiny\nShort line\n"
	if string(text) != want {
		t.Fatalf("text.txt = %q, want %q", text, want)
	}

	metadata, e := corpus.ReadMetadata(filepath.Join(cfg.ProcessedDir, corpus.MetadataFileName))
	if e != nil {
		t.Fatal(e)
	}
	if len(metadata) != 4 {
		t.Fatalf("got %d metadata entries", len(metadata))
	}
	second := metadata[1]
	if second.ChunkID != 1 || second.ChunkNum != 2 || second.TotalChunks != 2 || second.OriginalFile != "a.txt" {
		t.Errorf("metadata[1] = %+v", second)
	}
	if second.OriginalText == nil || *second.OriginalText != "First sentence. Second sentence" {
		t.Errorf("split chunk must carry the original line")
	}
	if metadata[2].OriginalText != nil || metadata[2].OriginalLineNum != 2 {
		t.Errorf("metadata[2] = %+v", metadata[2])
	}

	for _, name := range []string{StatsJSONFileName, StatsTextFileName} {
		if _, err := os.Stat(filepath.Join(cfg.ProcessedDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	c, e := corpus.LoadPreprocessed(cfg.ProcessedDir, textchunk.New(cfg.MaxLineLength))
	if e != nil {
		t.Fatal(e)
	}
	if c.Len() != 4 || c.Chunks()[1].Number != 2 {
		t.Fatalf("preprocessed corpus = %+v", c.Chunks())
	}
}

func TestRunSkipsExistingOutput(t *testing.T) {
	cfg := setup(t)
	if _, e := Run(cfg); e != nil {
		t.Fatal(e)
	}
	stats, e := Run(cfg)
	if e != nil {
		t.Fatal(e)
	}
	if !stats.Skipped {
		t.Fatal("second run should skip")
	}

	cfg.OverwriteExisting = true
	stats, e = Run(cfg)
	if e != nil {
		t.Fatal(e)
	}
	if stats.Skipped || stats.TotalChunks != 4 {
		t.Fatalf("overwrite run = %+v", stats)
	}
}

func TestRunWithoutRawFiles(t *testing.T) {
	cfg := Config{RawTextDir: t.TempDir(), ProcessedDir: t.TempDir(), MaxLineLength: 10}
	if _, e := Run(cfg); e == nil {
		t.Fatal("expected an error without raw text files")
	}
}

func TestReport(t *testing.T) {
	stats := Stats{TotalFiles: 1, TotalRawLines: 4, TotalChunks: 6, ChunkDistribution: map[int]int{1: 2, 2: 2}}
	report := Report(stats, 80, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	for _, want := range []string{
		"Generated: 2024-05-01 10:00:00",
		"Expansion factor: 1.50x",
		"  1 chunk(s):     2 lines (50.00%)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report is missing %q:\n%s", want, report)
		}
	}
}
