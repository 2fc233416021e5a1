/*
Package corpus loads the source text of a run and exposes it as renderable
chunks. A line longer than the line budget becomes several chunks, each one
an independent unit for the selector.
*/
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/selector"
	"synth-ocr/src/pkg/textchunk"
)

// Chunk is one renderable piece of a source line.
type Chunk struct {
	Text    int    `json:"text_index"`
	Number  int    `json:"chunk"`
	Total   int    `json:"total_chunks"`
	Content string `json:"content"`
}

func (c Chunk) Unit() selector.Unit {
	return selector.Unit{Text: c.Text, Chunk: c.Number}
}

type Corpus struct {
	Source string
	lines  int
	chunks []Chunk
	index  map[selector.Unit]int
}

/*
Load reads path as UTF-8, one entry per line. Lines are trimmed and empty
ones dropped. Every line is split with chunker. A missing file or a file
without any text is a setup error.
*/
func Load(path string, chunker *textchunk.Chunker) (c *Corpus, e *xerr.Error) {
	lines, e := ReadLines(path)
	if e != nil {
		return nil, e
	}
	if len(lines) == 0 {
		return nil, xerr.NewError(fmt.Errorf("no text lines"), "load corpus", path)
	}

	c = FromLines(lines, chunker)
	c.Source = path
	tl.Log(
		tl.Info, palette.Green, "Loaded %d lines from '%s', expanded to %d chunks",
		c.lines, path, len(c.chunks),
	)
	return c, nil
}

// FromLines chunks already trimmed, non-empty lines.
func FromLines(lines []string, chunker *textchunk.Chunker) *Corpus {
	c := &Corpus{lines: len(lines), index: make(map[selector.Unit]int)}
	for i, line := range lines {
		parts := chunker.Split(line)
		for n, part := range parts {
			c.add(Chunk{Text: i, Number: n + 1, Total: len(parts), Content: part})
		}
	}
	return c
}

func (c *Corpus) add(chunk Chunk) {
	c.index[chunk.Unit()] = len(c.chunks)
	c.chunks = append(c.chunks, chunk)
}

// Lines is the number of source lines before chunking.
func (c *Corpus) Lines() int {
	return c.lines
}

func (c *Corpus) Len() int {
	return len(c.chunks)
}

func (c *Corpus) Chunks() []Chunk {
	return append([]Chunk(nil), c.chunks...)
}

// Units lists every chunk as a selector unit, in corpus order.
func (c *Corpus) Units() []selector.Unit {
	units := make([]selector.Unit, len(c.chunks))
	for i, chunk := range c.chunks {
		units[i] = chunk.Unit()
	}
	return units
}

func (c *Corpus) Lookup(u selector.Unit) (Chunk, bool) {
	i, ok := c.index[u]
	if !ok {
		return Chunk{}, false
	}
	return c.chunks[i], true
}

// ReadLines returns the trimmed, non-empty lines of a UTF-8 file.
func ReadLines(path string) (lines []string, e *xerr.Error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, xerr.NewError(err, "open text file", path)
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerr.NewError(err, "scan text file", path)
	}
	return lines, nil
}
