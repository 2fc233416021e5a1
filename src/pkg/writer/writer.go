/*
Package writer persists generated samples as training pairs: <name>.tif
next to <name>.gt.txt, plus an optional tesseract <name>.box file.
*/
package writer

import (
	"errors"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

const (
	ImageExt       = ".tif"
	GroundTruthExt = ".gt.txt"
	BoxExt         = ".box"
)

var ErrAlreadyPersisted = errors.New("sample already persisted")

type Sample struct {
	Name       string
	Image      image.Image
	Transcript string
	// Box is the .box file content; empty means no box file.
	Box string
}

type Writer struct {
	dir          string
	skipExisting bool
}

// New prepares dir for output. With skipExisting set, Save refuses to overwrite a complete sample.
func New(dir string, skipExisting bool) (*Writer, *xerr.Error) {
	e := ensureOutputDirectory(dir)
	if e != nil {
		return nil, e
	}
	return &Writer{dir: dir, skipExisting: skipExisting}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) SkipExisting() bool {
	return w.skipExisting
}

// Path returns the file name for sample name with the given extension.
func (w *Writer) Path(name, ext string) string {
	return filepath.Join(w.dir, name+ext)
}

// Exists reports whether both the image and the ground truth of name are on disk.
func (w *Writer) Exists(name string) bool {
	return fileExists(w.Path(name, ImageExt)) && fileExists(w.Path(name, GroundTruthExt))
}

/*
Save writes the image first and the ground truth last, so a sample counts as
persisted (Exists) only once its transcript is on disk.
*/
func (w *Writer) Save(s Sample) (e *xerr.Error) {
	if w.skipExisting && w.Exists(s.Name) {
		return xerr.NewError(ErrAlreadyPersisted, "save sample", s.Name)
	}

	imagePath := w.Path(s.Name, ImageExt)
	err := imaging.Save(s.Image, imagePath)
	if err != nil {
		return xerr.NewError(err, "save sample image", imagePath)
	}

	if s.Box != "" {
		e = saveTextToFile(w.Path(s.Name, BoxExt), s.Box)
		if e != nil {
			return e
		}
	}

	e = saveTextToFile(w.Path(s.Name, GroundTruthExt), s.Transcript)
	if e != nil {
		return e
	}

	tl.Log(tl.Verbose, palette.Green, "Saved sample '%s'", s.Name)
	return nil
}
