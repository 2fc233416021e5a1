package verify

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Engine turns an image file into text.
type Engine interface {
	Recognize(imagePath string) (string, *xerr.Error)
}

// Tesseract runs gosseract with one line per image.
type Tesseract struct {
	Language string
}

/*
Recognize performs OCR on the given image path using gosseract.

Samples hold exactly one rendered line, so the page segmentation mode is
PSM_SINGLE_LINE. Interword spaces are preserved so that the comparison with
the ground truth sees the same spacing the renderer produced.
*/
func (t Tesseract) Recognize(imagePath string) (ocrText string, e *xerr.Error) {
	tl.Log(tl.Verbose, palette.Cyan, "Running OCR on '%s'", imagePath)

	client := gosseract.NewClient()
	defer func() {
		_ = client.Close()
	}()

	err := client.SetLanguage(t.Language)
	if err != nil {
		return "", xerr.NewError(err, fmt.Sprintf("unable to client.SetLanguage(%q)", t.Language), imagePath)
	}

	err = client.SetVariable("preserve_interword_spaces", "1")
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetVariable(\"preserve_interword_spaces\", \"1\")", imagePath)
	}

	err = client.SetPageSegMode(gosseract.PSM_SINGLE_LINE)
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetPageSegMode(PSM_SINGLE_LINE)", imagePath)
	}

	err = client.SetImage(imagePath)
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetImage(imagePath)", imagePath)
	}

	ocrText, err = client.Text()
	if err != nil {
		return "", xerr.NewError(err, "unable to run OCR on image", imagePath)
	}

	tl.Log(
		tl.Debug, palette.Green, "OCR completed for '%s' (text length: %d)",
		imagePath, len(ocrText),
	)
	return ocrText, nil
}
