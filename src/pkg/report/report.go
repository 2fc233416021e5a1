/*
Package report summarizes a generated dataset from its manifest records as
an email-safe HTML page (inline CSS only), used both as a standalone file
and as the body of the run notification.
*/
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"synth-ocr/src/pkg/generator"
	"synth-ocr/src/pkg/manifest"
)

/*
Input is everything a report is built from. Stats is optional; without it
the report only knows what the manifest recorded.
*/
type Input struct {
	Title   string
	Records []manifest.Record
	Stats   map[string]generator.Stats
	Seed    *uint64
	MaxRows int
}

/*
Row is one bar in a breakdown card.
*/
type Row struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percent    float64 `json:"percent"`
	Color      string  `json:"color"`
	BarPercent int     `json:"bar_percent"`
}

/*
Report is the computed summary rendered by RenderHTML.
*/
type Report struct {
	Title       string                     `json:"title"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Samples     int                        `json:"samples"`
	Kinds       []Row                      `json:"kinds"`
	Fonts       []Row                      `json:"fonts"`
	Transforms  []Row                      `json:"transforms"`
	Effects     []Row                      `json:"effects"`
	Augmented   int                        `json:"augmented"`
	Background  int                        `json:"background"`
	FirstAt     time.Time                  `json:"first_at"`
	LastAt      time.Time                  `json:"last_at"`
	Stats       map[string]generator.Stats `json:"stats,omitempty"`
	Notes       []string                   `json:"notes"`
}

/*
Build aggregates the records: counts per content kind, per font, per
augmentation transform and per backdrop effect.
*/
func Build(in Input) Report {
	r := Report{
		Title:       in.Title,
		GeneratedAt: time.Now(),
		Samples:     len(in.Records),
		Stats:       in.Stats,
	}
	if r.Title == "" {
		r.Title = "Synthetic OCR dataset"
	}

	kinds := map[string]int64{}
	fontCounts := map[string]int64{}
	transforms := map[string]int64{}
	effects := map[string]int64{}

	for _, rec := range in.Records {
		kinds[rec.Kind]++
		fontCounts[fontLabel(rec)]++
		if rec.Augmented {
			r.Augmented++
		}
		if rec.Background {
			r.Background++
		}
		for _, t := range rec.Transforms {
			transforms[t]++
		}
		for _, fx := range rec.Effects {
			effects[fx]++
		}
		if !rec.CreatedAt.IsZero() {
			if r.FirstAt.IsZero() || rec.CreatedAt.Before(r.FirstAt) {
				r.FirstAt = rec.CreatedAt
			}
			if rec.CreatedAt.After(r.LastAt) {
				r.LastAt = rec.CreatedAt
			}
		}
	}

	total := int64(len(in.Records))
	r.Kinds = buildRows(kinds, total, in.MaxRows)
	r.Fonts = buildRows(fontCounts, total, in.MaxRows)
	r.Transforms = buildRows(transforms, int64(r.Augmented), in.MaxRows)
	r.Effects = buildRows(effects, int64(r.Background), in.MaxRows)

	r.Notes = append(r.Notes, "Font, kind and share percentages are relative to all samples in the manifest.")
	r.Notes = append(r.Notes, "Transform percentages are relative to augmented samples, effect percentages to samples with a backdrop.")
	if in.Seed != nil {
		r.Notes = append(r.Notes, fmt.Sprintf("Random seed: %d. Rerunning with this seed and the same inputs reproduces the dataset.", *in.Seed))
	}
	for kind, s := range in.Stats {
		if s.Exhausted > 0 {
			r.Notes = append(r.Notes, fmt.Sprintf("%s: %d requested samples were not generated because every combination was used.", kind, s.Exhausted))
		}
	}
	sort.Strings(r.Notes[2:])

	tl.Log(tl.Info1, palette.Green, "Built report over %s samples", formatIntHuman(total))
	return r
}

func fontLabel(rec manifest.Record) string {
	if rec.FontFile != "" {
		return fmt.Sprintf("f%02d %s", rec.Font, rec.FontFile)
	}
	return fmt.Sprintf("f%02d", rec.Font)
}

/*
buildRows converts counts into rows sorted by count (then key), assigns
colors, and groups overflow into "Other".
*/
func buildRows(counts map[string]int64, total int64, maxRows int) []Row {
	rows := make([]Row, 0, len(counts))
	for key, count := range counts {
		rows = append(rows, newRow(key, displayName(key), count, total))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})

	if maxRows < 3 {
		maxRows = 12
	}
	if len(rows) > maxRows {
		keep := rows[:maxRows-1]
		otherCount := int64(0)
		for _, row := range rows[maxRows-1:] {
			otherCount += row.Count
		}
		rows = append(keep, newRow("other", "Other", otherCount, total))
	}

	paletteColors := []string{
		"#2563EB", "#7C3AED", "#059669", "#DB2777", "#D97706",
		"#0EA5E9", "#65A30D", "#9333EA", "#F43F5E", "#14B8A6",
		"#4F46E5", "#B45309",
	}
	for index := range rows {
		rows[index].Color = paletteColors[index%len(paletteColors)]
	}
	return rows
}

func newRow(key, label string, count, total int64) Row {
	percent := 0.0
	if total > 0 {
		percent = float64(count) / float64(total) * 100.0
	}
	barPercent := int(math.Round(percent))
	if count > 0 && barPercent == 0 {
		barPercent = 1
	}
	if barPercent > 100 {
		barPercent = 100
	}
	return Row{Key: key, Label: label, Count: count, Percent: percent, BarPercent: barPercent}
}

/*
displayName maps known keys to nicer names and falls back to a title-cased variant.
*/
func displayName(key string) string {
	known := map[string]string{
		"text":       "Text",
		"special":    "Special characters",
		"scan_lines": "Scan lines",
	}
	if name, ok := known[key]; ok {
		return name
	}
	if strings.HasPrefix(key, "f") && strings.Contains(key, " ") {
		return key
	}

	parts := strings.Split(key, "_")
	for index, part := range parts {
		if part == "" {
			continue
		}
		parts[index] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
