package fonts

import (
	"encoding/json"
	"os"
	"path/filepath"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type IndexEntry struct {
	FontFile string `json:"font_file"`
	Index    int    `json:"index"`
	Style    Style  `json:"style"`
}

// Index maps a font code to the file it was assigned to.
func (c *Catalog) Index() map[string]IndexEntry {
	index := make(map[string]IndexEntry, len(c.fonts))
	for _, f := range c.fonts {
		index[f.Code()] = IndexEntry{FontFile: f.File(), Index: f.Index, Style: f.Style}
	}
	return index
}

/*
SaveIndex writes font_index.json into dir (the font directory when dir is
empty) and logs the style distribution.
*/
func (c *Catalog) SaveIndex(dir string) (path string, e *xerr.Error) {
	if dir == "" {
		dir = c.dir
	}
	path = filepath.Join(dir, IndexFileName)

	jsonBytes, err := json.MarshalIndent(c.Index(), "", "  ")
	if err != nil {
		return path, xerr.NewError(err, "marshal font index", path)
	}
	err = os.WriteFile(path, jsonBytes, 0o644)
	if err != nil {
		return path, xerr.NewError(err, "write font index", path)
	}

	counts := c.StyleCounts()
	tl.Log(
		tl.Info1, palette.Green, "Saved font index to '%s' (regular: %d, bold: %d, italic: %d, bold_italic: %d)",
		path, counts[Regular], counts[Bold], counts[Italic], counts[BoldItalic],
	)
	return path, nil
}

// ReadIndex loads a font_index.json written by SaveIndex.
func ReadIndex(path string) (map[string]IndexEntry, *xerr.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerr.NewError(err, "read font index", path)
	}
	var index map[string]IndexEntry
	err = json.Unmarshal(data, &index)
	if err != nil {
		return nil, xerr.NewError(err, "decode font index", path)
	}
	return index, nil
}
