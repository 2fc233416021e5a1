package verify

import (
	"image/color"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
binarizeForOCR reads a sample, cleans it up for tesseract and saves the
result as PNG at destinationPath.

The steps are:
  - Convert to grayscale.
  - Resize to double height (keeping aspect ratio).
  - Apply a mild sharpening.
  - Increase contrast.
  - Threshold to pure black/white.
*/
func binarizeForOCR(sourcePath string, destinationPath string, threshold uint8) (e *xerr.Error) {
	originalImage, openErr := imaging.Open(sourcePath)
	if openErr != nil {
		return xerr.NewError(openErr, "open sample for OCR preprocessing", sourcePath)
	}

	grayscaleImage := imaging.Grayscale(originalImage)
	resizedImage := imaging.Resize(grayscaleImage, 0, grayscaleImage.Bounds().Dy()*2, imaging.Lanczos)
	sharpenedImage := imaging.Sharpen(resizedImage, 1.0)
	highContrastImage := imaging.AdjustContrast(sharpenedImage, 40.0)

	binarizedImage := imaging.AdjustFunc(highContrastImage, func(c color.NRGBA) color.NRGBA {
		// Grayscale already, red is the brightness.
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	})

	saveErr := imaging.Save(binarizedImage, destinationPath)
	if saveErr != nil {
		return xerr.NewError(saveErr, "save binarized sample", destinationPath)
	}

	tl.Log(tl.Debug, palette.Green, "Saved binarized sample to '%s'", destinationPath)
	return nil
}
