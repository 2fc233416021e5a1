package verify

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/writer"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "ab", 2},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"مرحبا", "مرحب", 1},
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCER(t *testing.T) {
	if CER("", "") != 0 || CER("", "x") != 1 {
		t.Fatal("unexpected CER for empty reference")
	}
	if got := CER("abcd", "abed"); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("CER = %v, want 0.25", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Hello \t  world\n"); got != "Hello world" {
		t.Fatalf("got %q", got)
	}
}

// mapEngine answers from a table keyed by sample base name.
type mapEngine map[string]string

func (m mapEngine) Recognize(imagePath string) (string, *xerr.Error) {
	name := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	text, ok := m[name]
	if !ok {
		return "", xerr.NewError(os.ErrNotExist, "recognize", name)
	}
	return text + "\n", nil
}

func TestRunScoresSamples(t *testing.T) {
	dir := t.TempDir()
	w, e := writer.New(dir, false)
	if e != nil {
		t.Fatal(e)
	}
	truths := map[string]string{
		"t0000c01f01": "exact match",
		"t0001c01f01": "abcd",
		"t0002c01f01": "unreadable",
	}
	var records []manifest.Record
	for _, name := range []string{"t0000c01f01", "t0001c01f01", "t0002c01f01"} {
		if e := w.Save(writer.Sample{Name: name, Image: imaging.New(40, 20, color.White), Transcript: truths[name]}); e != nil {
			t.Fatal(e)
		}
		records = append(records, manifest.Record{Name: name})
	}

	engine := mapEngine{"t0000c01f01": "exact  match", "t0001c01f01": "abed"}
	cfg := DefaultValueConfig()
	cfg.MaxMeanCER = 0.2

	report, e := Run(engine, records, dir, cfg, 1)
	if e != nil {
		t.Fatal(e)
	}
	if report.Checked != 2 || report.Failed != 1 || report.Exact != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if math.Abs(report.MeanCER-0.125) > 1e-9 {
		t.Fatalf("mean CER = %v", report.MeanCER)
	}
	if !report.Passed {
		t.Fatal("0.125 is under the 0.2 gate")
	}
	if report.Results[0].Name != "t0001c01f01" {
		t.Fatalf("results not sorted worst first: %+v", report.Results)
	}
	if _, err := os.Stat(filepath.Join(dir, ReportFileName)); err != nil {
		t.Fatalf("report not written: %v", err)
	}
}

func TestPickIsBoundedAndStable(t *testing.T) {
	records := make([]manifest.Record, 20)
	for i := range records {
		records[i].Seq = i
	}
	a := pick(records, 5, 9)
	b := pick(records, 5, 9)
	if len(a) != 5 {
		t.Fatalf("picked %d", len(a))
	}
	seen := map[int]bool{}
	for i := range a {
		if a[i].Seq != b[i].Seq {
			t.Fatal("same seed picked different samples")
		}
		if seen[a[i].Seq] {
			t.Fatal("sample picked twice")
		}
		seen[a[i].Seq] = true
	}
	if len(pick(records, 0, 1)) != 20 {
		t.Fatal("n <= 0 should take everything")
	}
}
