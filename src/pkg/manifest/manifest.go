/*
Package manifest records every persisted sample of a run as one JSON line.

The manifest is the provenance trail of a dataset: reports and verification
read it, and later runs load it as history so that combinations already on
disk are never generated again.
*/
package manifest

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/selector"
)

const (
	FilePrefix = "manifest-"
	PlainExt   = ".jsonl"
	BrotliExt  = ".jsonl.br"
	timeLayout = "20060102-150405.000"
)

type Record struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Seq        int       `json:"seq"`
	TextIndex  int       `json:"text_index"`
	Chunk      int       `json:"chunk"`
	Font       int       `json:"font"`
	FontFile   string    `json:"font_file"`
	Text       string    `json:"text"`
	FontSize   int       `json:"font_size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Background bool      `json:"background"`
	Effects    []string  `json:"effects,omitempty"`
	Augmented  bool      `json:"augmented"`
	Transforms []string  `json:"transforms,omitempty"`
	Seed       uint64    `json:"seed"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r Record) Combination() selector.Combination {
	return selector.Combination{Text: r.TextIndex, Chunk: r.Chunk, Font: r.Font}
}

/*
Writer appends records to a manifest file. Append is safe for concurrent
use; every record is flushed to the underlying file before Append returns
unless the manifest is brotli-compressed, which is only complete after Close.
*/
type Writer struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	brw   *brotli.Writer
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

// Create opens a new manifest in dir named after the current time.
func Create(dir string, compress bool) (w *Writer, e *xerr.Error) {
	ext := PlainExt
	if compress {
		ext = BrotliExt
	}
	path := filepath.Join(dir, FilePrefix+time.Now().Format(timeLayout)+ext)
	return Open(path)
}

// Open creates (or truncates) a manifest at path; a .br suffix turns on compression.
func Open(path string) (w *Writer, e *xerr.Error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, xerr.NewError(err, "create manifest", path)
	}

	w = &Writer{path: path, file: file}
	var sink io.Writer = file
	if strings.HasSuffix(path, ".br") {
		w.brw = brotli.NewWriterLevel(file, brotli.DefaultCompression)
		sink = w.brw
	}
	w.buf = bufio.NewWriter(sink)
	w.enc = json.NewEncoder(w.buf)
	w.enc.SetEscapeHTML(false)

	tl.Log(tl.Info1, palette.Blue, "Writing manifest to '%s'", path)
	return w, nil
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Append(r Record) *xerr.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.enc.Encode(r)
	if err != nil {
		return xerr.NewError(err, "encode manifest record", r.Name)
	}
	err = w.buf.Flush()
	if err != nil {
		return xerr.NewError(err, "flush manifest", w.path)
	}
	w.count++
	return nil
}

func (w *Writer) Close() *xerr.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.buf.Flush()
	if err != nil {
		return xerr.NewError(err, "flush manifest", w.path)
	}
	if w.brw != nil {
		err = w.brw.Close()
		if err != nil {
			return xerr.NewError(err, "close brotli stream", w.path)
		}
	}
	err = w.file.Close()
	if err != nil {
		return xerr.NewError(err, "close manifest", w.path)
	}

	tl.Log(tl.Info, palette.Green, "Manifest '%s' closed with %d records", w.path, w.count)
	return nil
}

// Read decodes every record of one manifest file, plain or brotli.
func Read(path string) (records []Record, e *xerr.Error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, xerr.NewError(err, "open manifest", path)
	}
	defer func() {
		_ = file.Close()
	}()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".br") {
		reader = brotli.NewReader(file)
	}

	dec := json.NewDecoder(reader)
	for {
		var r Record
		err := dec.Decode(&r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, xerr.NewError(err, "decode manifest record", path)
		}
		records = append(records, r)
	}
	return records, nil
}

/*
Load reads path when it is a manifest file, or every manifest inside it (in
name order, hence chronological) when it is a directory.
*/
func Load(path string) (records []Record, e *xerr.Error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, xerr.NewError(err, "stat manifest path", path)
	}
	if !info.IsDir() {
		return Read(path)
	}

	paths, e := Find(path)
	if e != nil {
		return nil, e
	}
	for _, p := range paths {
		part, e := Read(p)
		if e != nil {
			return records, e
		}
		records = append(records, part...)
	}
	tl.Log(tl.Info1, palette.Blue, "Loaded %d records from %d manifests in '%s'", len(records), len(paths), path)
	return records, nil
}

// Find lists the manifest files directly inside dir, sorted by name.
func Find(dir string) ([]string, *xerr.Error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerr.NewError(err, "read manifest directory", dir)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, FilePrefix) {
			continue
		}
		if strings.HasSuffix(name, PlainExt) || strings.HasSuffix(name, BrotliExt) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// History returns the combinations of records of the given content kind.
func History(records []Record, kind string) []selector.Combination {
	var combos []selector.Combination
	for _, r := range records {
		if r.Kind == kind {
			combos = append(combos, r.Combination())
		}
	}
	return combos
}
