/*
Package fonts discovers the font files of a run and gives each one a stable
1-based index. The index is what ends up in every sample name (f01, f02, ...)
and in font_index.json next to the fonts.
*/
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

const IndexFileName = "font_index.json"

type Style string

const (
	Regular    Style = "regular"
	Bold       Style = "bold"
	Italic     Style = "italic"
	BoldItalic Style = "bold_italic"
)

var Styles = []Style{Regular, Bold, Italic, BoldItalic}

type Font struct {
	Index  int
	Path   string
	Family string
	Style  Style
	Parsed *opentype.Font
}

// File is the base name of the font file.
func (f *Font) File() string {
	return filepath.Base(f.Path)
}

// Code is the font part of a sample name.
func (f *Font) Code() string {
	return Code(f.Index)
}

func Code(index int) string {
	return fmt.Sprintf("f%02d", index)
}

type Catalog struct {
	dir   string
	fonts []*Font
}

/*
Discover loads every .ttf / .otf file directly inside dir.

Files are sorted by name before indexing, so the same directory always
produces the same indices. An empty directory or a font that does not parse
is a setup error.
*/
func Discover(dir string) (c *Catalog, e *xerr.Error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerr.NewError(err, "read font directory", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isFontFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, xerr.NewError(fmt.Errorf("no .ttf or .otf files"), "discover fonts", dir)
	}

	c, e = Load(paths)
	if e != nil {
		return nil, e
	}
	c.dir = dir

	tl.Log(tl.Info, palette.Green, "Loaded %d fonts from '%s'", len(c.fonts), dir)
	return c, nil
}

// Load parses the given files in order, assigning indices from 1.
func Load(paths []string) (*Catalog, *xerr.Error) {
	c := &Catalog{}
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, xerr.NewError(err, "read font file", path)
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, xerr.NewError(err, "parse font file", path)
		}

		family, style := describe(parsed, path)
		c.fonts = append(c.fonts, &Font{
			Index:  i + 1,
			Path:   path,
			Family: family,
			Style:  style,
			Parsed: parsed,
		})
		tl.Log(tl.Verbose, palette.Blue, "Font %s: '%s' (%s)", Code(i+1), filepath.Base(path), style)
	}
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.fonts)
}

func (c *Catalog) Dir() string {
	return c.dir
}

// Get resolves a 1-based font index.
func (c *Catalog) Get(index int) (*Font, bool) {
	if index < 1 || index > len(c.fonts) {
		return nil, false
	}
	return c.fonts[index-1], true
}

func (c *Catalog) Fonts() []*Font {
	return append([]*Font(nil), c.fonts...)
}

func (c *Catalog) StyleCounts() map[Style]int {
	counts := make(map[Style]int, len(Styles))
	for _, style := range Styles {
		counts[style] = 0
	}
	for _, f := range c.fonts {
		counts[f.Style]++
	}
	return counts
}

func isFontFile(name string) bool {
	ext := filepath.Ext(name)
	switch ext {
	case ".ttf", ".TTF", ".otf", ".OTF":
		return true
	}
	return false
}

func describe(f *opentype.Font, path string) (family string, style Style) {
	var buf sfnt.Buffer
	family, _ = f.Name(&buf, sfnt.NameIDFamily)
	subfamily, err := f.Name(&buf, sfnt.NameIDSubfamily)
	if err != nil || subfamily == "" {
		return family, StyleFromFileName(filepath.Base(path))
	}
	return family, StyleFromName(subfamily)
}

// StyleFromName reads a style out of a subfamily name such as "Bold Oblique".
func StyleFromName(name string) Style {
	name = strings.ToLower(name)
	bold := strings.Contains(name, "bold")
	italic := strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	}
	return Regular
}

/*
StyleFromFileName is the fallback for fonts without a subfamily name.
Joined spellings like "BoldItalic" and a trailing "i" before the extension
("Arimoi.ttf") are recognized.
*/
func StyleFromFileName(name string) Style {
	lower := strings.ToLower(name)
	stem := strings.TrimSuffix(lower, filepath.Ext(lower))
	switch {
	case strings.Contains(stem, "bolditalic"), strings.Contains(stem, "bold_italic"),
		strings.Contains(stem, "boldoblique"), strings.HasSuffix(stem, "bi"):
		return BoldItalic
	case strings.Contains(stem, "bold"):
		return Bold
	case strings.Contains(stem, "italic"), strings.Contains(stem, "oblique"),
		strings.HasSuffix(stem, "i") && len(stem) > 1:
		return Italic
	}
	return Regular
}
