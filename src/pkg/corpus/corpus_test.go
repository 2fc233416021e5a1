package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"synth-ocr/src/pkg/selector"
	"synth-ocr/src/pkg/textchunk"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTrimsAndChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "input.txt", "  first line  \n\n\t\nSecond one. Is longer\n")

	c, e := Load(path, textchunk.New(12))
	if e != nil {
		t.Fatal(e)
	}
	if c.Lines() != 2 {
		t.Fatalf("got %d lines, want 2", c.Lines())
	}

	want := []Chunk{
		{Text: 0, Number: 1, Total: 1, Content: "first line"},
		{Text: 1, Number: 1, Total: 2, Content: "Second one."},
		{Text: 1, Number: 2, Total: 2, Content: "Is longer"},
	}
	got := c.Chunks()
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	units := c.Units()
	if units[2] != (selector.Unit{Text: 1, Chunk: 2}) {
		t.Errorf("unexpected unit %+v", units[2])
	}
	if chunk, ok := c.Lookup(units[2]); !ok || chunk.Content != "Is longer" {
		t.Errorf("lookup returned %+v, %v", chunk, ok)
	}
	if _, ok := c.Lookup(selector.Unit{Text: 9, Chunk: 1}); ok {
		t.Error("lookup of an unknown unit succeeded")
	}
}

func TestLoadSetupErrors(t *testing.T) {
	dir := t.TempDir()
	if _, e := Load(filepath.Join(dir, "missing.txt"), textchunk.New(10)); e == nil {
		t.Error("missing file should fail")
	}
	blank := writeFile(t, dir, "blank.txt", "\n   \n")
	if _, e := Load(blank, textchunk.New(10)); e == nil {
		t.Error("file without text should fail")
	}
}

func TestLoadPreprocessedUsesMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TextFileName, "Part one.\nPart two\nShort\n")
	writeFile(t, dir, MetadataFileName, `[
  {"chunk_id": 0, "original_file": "a.txt", "original_line_num": 1, "chunk_num": 1, "total_chunks": 2, "char_count": 9, "original_text": "Part one. Part two"},
  {"chunk_id": 1, "original_file": "a.txt", "original_line_num": 1, "chunk_num": 2, "total_chunks": 2, "char_count": 8, "original_text": "Part one. Part two"},
  {"chunk_id": 2, "original_file": "a.txt", "original_line_num": 2, "chunk_num": 1, "total_chunks": 1, "char_count": 5, "original_text": null}
]`)

	c, e := LoadPreprocessed(dir, textchunk.New(4))
	if e != nil {
		t.Fatal(e)
	}
	got := c.Chunks()
	if len(got) != 3 {
		t.Fatalf("preprocessed lines must not be chunked again: %+v", got)
	}
	if got[1].Number != 2 || got[1].Total != 2 || got[1].Content != "Part two" {
		t.Errorf("chunk 1 = %+v", got[1])
	}
	if got[2].Number != 1 {
		t.Errorf("chunk 2 = %+v", got[2])
	}
}

func TestLoadPreprocessedWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TextFileName, strings.Repeat("word ", 6)+"\n")

	c, e := LoadPreprocessed(dir, textchunk.New(10))
	if e != nil {
		t.Fatal(e)
	}
	if c.Len() < 2 {
		t.Fatalf("expected default chunking, got %+v", c.Chunks())
	}
	for _, chunk := range c.Chunks() {
		if len([]rune(chunk.Content)) > 10 {
			t.Errorf("chunk %q exceeds budget", chunk.Content)
		}
	}
}
