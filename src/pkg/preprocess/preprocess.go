/*
Package preprocess turns a directory of raw .txt files into a single chunked
text.txt plus metadata.json, so generation runs can reuse the same chunking
and keep every chunk traceable to its source file and line.
*/
package preprocess

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/corpus"
	"synth-ocr/src/pkg/textchunk"
)

const (
	StatsJSONFileName = "preprocessing_stats.json"
	StatsTextFileName = "preprocessing_stats.txt"
)

type Config struct {
	RawTextDir        string `json:"raw_text_dir"`
	ProcessedDir      string `json:"processed_dir"`
	MaxLineLength     int    `json:"-"`
	SaveStats         bool   `json:"save_stats"`
	OverwriteExisting bool   `json:"overwrite_existing"`
}

type Stats struct {
	Skipped           bool        `json:"skipped,omitempty"`
	TotalFiles        int         `json:"total_files"`
	TotalRawLines     int         `json:"total_raw_lines"`
	TotalChunks       int         `json:"total_chunks"`
	ChunkDistribution map[int]int `json:"chunk_distribution"`
}

// ExpansionFactor is chunks per raw line.
func (s Stats) ExpansionFactor() float64 {
	if s.TotalRawLines == 0 {
		return 0
	}
	return float64(s.TotalChunks) / float64(s.TotalRawLines)
}

type statsFile struct {
	GeneratedAt time.Time `json:"generated_at"`
	MaxChars    int       `json:"max_chars"`
	Stats       Stats     `json:"stats"`
}

/*
Run preprocesses every *.txt file of cfg.RawTextDir in name order.

When text.txt already exists in the processed directory and overwriting is
off, nothing is written and the returned stats are marked skipped.
*/
func Run(cfg Config) (stats Stats, e *xerr.Error) {
	textPath := filepath.Join(cfg.ProcessedDir, corpus.TextFileName)
	if !cfg.OverwriteExisting {
		if _, err := os.Stat(textPath); err == nil {
			tl.Log(
				tl.Notice, palette.Yellow, "Preprocessed files already exist in '%s', set %s to regenerate",
				cfg.ProcessedDir, "overwrite_existing",
			)
			return Stats{Skipped: true}, nil
		}
	}

	files, err := filepath.Glob(filepath.Join(cfg.RawTextDir, "*.txt"))
	if err != nil {
		return stats, xerr.NewError(err, "list raw text files", cfg.RawTextDir)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return stats, xerr.NewError(errors.New("no .txt files"), "find raw text files", cfg.RawTextDir)
	}
	tl.Log(tl.Info, palette.Cyan, "Found %d text file(s) to process in '%s'", len(files), cfg.RawTextDir)

	chunker := textchunk.New(cfg.MaxLineLength)
	stats = Stats{TotalFiles: len(files), ChunkDistribution: map[int]int{}}
	var chunks []string
	var metadata []corpus.ChunkMetadata

	for _, file := range files {
		lines, e := corpus.ReadLines(file)
		if e != nil {
			return stats, e
		}
		before := len(chunks)
		for lineIndex, line := range lines {
			parts := chunker.Split(line)
			stats.ChunkDistribution[len(parts)]++
			for n, part := range parts {
				m := corpus.ChunkMetadata{
					ChunkID:         len(chunks),
					OriginalFile:    filepath.Base(file),
					OriginalLineNum: lineIndex + 1,
					ChunkNum:        n + 1,
					TotalChunks:     len(parts),
					CharCount:       len([]rune(part)),
				}
				if len(parts) > 1 {
					original := line
					m.OriginalText = &original
				}
				chunks = append(chunks, part)
				metadata = append(metadata, m)
			}
		}
		stats.TotalRawLines += len(lines)
		tl.Log(
			tl.Info1, palette.Blue, "%s: %d lines -> %d chunks",
			filepath.Base(file), len(lines), len(chunks)-before,
		)
	}
	stats.TotalChunks = len(chunks)

	e = save(cfg, chunks, metadata, stats)
	if e != nil {
		return stats, e
	}

	tl.Log(
		tl.Notice, palette.GreenBold, "Preprocessing complete: %d files, %d lines, %d chunks (%.2fx)",
		stats.TotalFiles, stats.TotalRawLines, stats.TotalChunks, stats.ExpansionFactor(),
	)
	return stats, nil
}

func save(cfg Config, chunks []string, metadata []corpus.ChunkMetadata, stats Stats) *xerr.Error {
	err := os.MkdirAll(cfg.ProcessedDir, 0o755)
	if err != nil {
		return xerr.NewError(err, "create processed directory", cfg.ProcessedDir)
	}

	textPath := filepath.Join(cfg.ProcessedDir, corpus.TextFileName)
	err = os.WriteFile(textPath, []byte(strings.Join(chunks, "\n")+"\n"), 0o644)
	if err != nil {
		return xerr.NewError(err, "write chunked text", textPath)
	}

	e := writeJSON(filepath.Join(cfg.ProcessedDir, corpus.MetadataFileName), metadata)
	if e != nil || !cfg.SaveStats {
		return e
	}

	now := time.Now()
	e = writeJSON(
		filepath.Join(cfg.ProcessedDir, StatsJSONFileName),
		statsFile{GeneratedAt: now, MaxChars: cfg.MaxLineLength, Stats: stats},
	)
	if e != nil {
		return e
	}

	reportPath := filepath.Join(cfg.ProcessedDir, StatsTextFileName)
	err = os.WriteFile(reportPath, []byte(Report(stats, cfg.MaxLineLength, now)), 0o644)
	if err != nil {
		return xerr.NewError(err, "write preprocessing report", reportPath)
	}
	return nil
}

// Report renders stats as the human-readable preprocessing_stats.txt.
func Report(stats Stats, maxChars int, generatedAt time.Time) string {
	rule := strings.Repeat("=", 70)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nTEXT PREPROCESSING STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Max characters per chunk: %d\n\n", maxChars)
	fmt.Fprintf(&b, "Total files processed: %d\n", stats.TotalFiles)
	fmt.Fprintf(&b, "Total raw lines: %d\n", stats.TotalRawLines)
	fmt.Fprintf(&b, "Total chunks created: %d\n", stats.TotalChunks)
	fmt.Fprintf(&b, "Expansion factor: %.2fx\n\n", stats.ExpansionFactor())
	fmt.Fprintf(&b, "Chunk Distribution:\n%s\n", strings.Repeat("-", 70))

	counts := make([]int, 0, len(stats.ChunkDistribution))
	for n := range stats.ChunkDistribution {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for _, n := range counts {
		lines := stats.ChunkDistribution[n]
		pct := 0.0
		if stats.TotalRawLines > 0 {
			pct = float64(lines) / float64(stats.TotalRawLines) * 100
		}
		fmt.Fprintf(&b, "  %d chunk(s): %5d lines (%5.2f%%)\n", n, lines, pct)
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}

func writeJSON(path string, value any) *xerr.Error {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return xerr.NewError(err, "marshal value to JSON", path)
	}
	err = os.WriteFile(path, jsonBytes, 0o644)
	if err != nil {
		return xerr.NewError(err, "write JSON file", path)
	}
	tl.Log(tl.Info1, palette.Green, "Saved JSON data to '%s'", path)
	return nil
}
