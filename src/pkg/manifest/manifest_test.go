package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"synth-ocr/src/pkg/selector"
)

func records() []Record {
	return []Record{
		{Name: "t0000c01f01", Kind: "text", Seq: 0, TextIndex: 3, Chunk: 1, Font: 1, Text: "alpha", Seed: 11},
		{Name: "t0001c02f02", Kind: "text", Seq: 1, TextIndex: 4, Chunk: 2, Font: 2, Text: "<b>&", Augmented: true, Transforms: []string{"blur"}},
		{Name: "s0000c01f01", Kind: "special", Seq: 0, TextIndex: 0, Chunk: 1, Font: 1, Text: "%$#"},
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	w, e := Open(path)
	if e != nil {
		t.Fatal(e)
	}
	for _, r := range records() {
		if e := w.Append(r); e != nil {
			t.Fatal(e)
		}
	}
	if w.Count() != 3 {
		t.Fatalf("count = %d", w.Count())
	}
	if e := w.Close(); e != nil {
		t.Fatal(e)
	}
}

func TestWriteRead(t *testing.T) {
	for _, name := range []string{"manifest-a.jsonl", "manifest-a.jsonl.br"} {
		path := filepath.Join(t.TempDir(), name)
		write(t, path)

		got, e := Read(path)
		if e != nil {
			t.Fatalf("%s: %v", name, e)
		}
		if len(got) != 3 {
			t.Fatalf("%s: got %d records", name, len(got))
		}
		if got[1].Text != "<b>&" || !got[1].Augmented || got[1].Transforms[0] != "blur" {
			t.Errorf("%s: record 1 = %+v", name, got[1])
		}
		if got[0].Seed != 11 {
			t.Errorf("%s: seed lost", name)
		}
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "manifest-20240101-000000.000.jsonl"))
	write(t, filepath.Join(dir, "manifest-20240102-000000.000.jsonl.br"))
	if err := os.WriteFile(filepath.Join(dir, "notes.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, e := Load(dir)
	if e != nil {
		t.Fatal(e)
	}
	if len(got) != 6 {
		t.Fatalf("got %d records, want 6", len(got))
	}
}

func TestCreateNamesByTime(t *testing.T) {
	dir := t.TempDir()
	w, e := Create(dir, true)
	if e != nil {
		t.Fatal(e)
	}
	if e := w.Close(); e != nil {
		t.Fatal(e)
	}
	paths, e := Find(dir)
	if e != nil {
		t.Fatal(e)
	}
	if len(paths) != 1 || filepath.Ext(paths[0]) != ".br" {
		t.Fatalf("unexpected manifests %v", paths)
	}
	got, e := Read(paths[0])
	if e != nil || len(got) != 0 {
		t.Fatalf("empty manifest read back as %v, %v", got, e)
	}
}

func TestHistoryFiltersKind(t *testing.T) {
	combos := History(records(), "text")
	want := []selector.Combination{{Text: 3, Chunk: 1, Font: 1}, {Text: 4, Chunk: 2, Font: 2}}
	if len(combos) != len(want) {
		t.Fatalf("got %v", combos)
	}
	for i := range want {
		if combos[i] != want[i] {
			t.Errorf("combo %d = %v, want %v", i, combos[i], want[i])
		}
	}
}

func TestRecordTimeSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest-x.jsonl")
	w, e := Open(path)
	if e != nil {
		t.Fatal(e)
	}
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if e := w.Append(Record{Name: "t0000c01f01", CreatedAt: at}); e != nil {
		t.Fatal(e)
	}
	if e := w.Close(); e != nil {
		t.Fatal(e)
	}
	got, e := Read(path)
	if e != nil {
		t.Fatal(e)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Fatalf("created_at = %v", got[0].CreatedAt)
	}
}
