package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/selector"
	"synth-ocr/src/pkg/textchunk"
)

const (
	TextFileName     = "text.txt"
	MetadataFileName = "metadata.json"
)

// ChunkMetadata describes one line of a preprocessed text.txt.
type ChunkMetadata struct {
	ChunkID         int     `json:"chunk_id"`
	OriginalFile    string  `json:"original_file"`
	OriginalLineNum int     `json:"original_line_num"`
	ChunkNum        int     `json:"chunk_num"`
	TotalChunks     int     `json:"total_chunks"`
	CharCount       int     `json:"char_count"`
	OriginalText    *string `json:"original_text"`
}

/*
LoadPreprocessed reads text.txt and metadata.json from dir.

Each line of text.txt is already a chunk; its chunk number comes from the
metadata entry with the same chunk_id. When metadata.json is missing the
lines are chunked again with chunker, as Load would do.
*/
func LoadPreprocessed(dir string, chunker *textchunk.Chunker) (c *Corpus, e *xerr.Error) {
	textPath := filepath.Join(dir, TextFileName)
	lines, e := ReadLines(textPath)
	if e != nil {
		return nil, e
	}
	if len(lines) == 0 {
		return nil, xerr.NewError(fmt.Errorf("no text lines"), "load preprocessed corpus", textPath)
	}

	metadataPath := filepath.Join(dir, MetadataFileName)
	metadata, e := ReadMetadata(metadataPath)
	if e != nil {
		return nil, e
	}
	if metadata == nil {
		tl.Log(
			tl.Warning, palette.Yellow, "Metadata file not found at '%s', using default chunking",
			metadataPath,
		)
		c = FromLines(lines, chunker)
		c.Source = textPath
		return c, nil
	}

	byID := make(map[int]ChunkMetadata, len(metadata))
	for _, m := range metadata {
		byID[m.ChunkID] = m
	}

	c = &Corpus{Source: textPath, lines: len(lines), index: make(map[selector.Unit]int)}
	for i, line := range lines {
		chunk := Chunk{Text: i, Number: 1, Total: 1, Content: line}
		if m, ok := byID[i]; ok && m.ChunkNum > 0 {
			chunk.Number = m.ChunkNum
			chunk.Total = max(m.TotalChunks, m.ChunkNum)
		}
		c.add(chunk)
	}

	tl.Log(tl.Info, palette.Green, "Loaded %d preprocessed chunks with metadata from '%s'", len(lines), dir)
	return c, nil
}

// ReadMetadata returns nil without an error when the file does not exist.
func ReadMetadata(path string) ([]ChunkMetadata, *xerr.Error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, xerr.NewError(err, "read chunk metadata", path)
	}
	var metadata []ChunkMetadata
	err = json.Unmarshal(data, &metadata)
	if err != nil {
		return nil, xerr.NewError(err, "decode chunk metadata", path)
	}
	return metadata, nil
}
