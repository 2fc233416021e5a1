package main

import (
	"flag"
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/config"
	"synth-ocr/src/pkg/preprocess"
	"synth-ocr/src/pkg/util"
)

/*
main splits the raw text files of input.raw_text_dir into chunks and writes
the processed corpus that generation reads with input.use_preprocessed.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	kind := flag.String("kind", "text", "Which line length to chunk with: text or special.")
	overwrite := flag.Bool("overwrite", false, "Regenerate even if processed files already exist.")

	// Parse and load config. Fonts are not needed here, so the config is not validated.
	flag.Parse()
	util.RequiredFlag(kind, "kind")
	util.EnsureFlags()
	cfg, e := config.Load(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	maxLen := cfg.TextProcessing.MaxLineLengthText
	switch *kind {
	case "text":
	case "special":
		maxLen = cfg.TextProcessing.MaxLineLengthSpecial
	default:
		xerr.QuitIfError(fmt.Errorf("unknown kind '%s'", *kind), "Unable to pick line length")
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "%s '%s' into '%s' (max %d characters per chunk)",
		"Preprocessing", cfg.Input.RawTextDir, cfg.Input.ProcessedDir, maxLen,
	)

	stats, e := preprocess.Run(preprocess.Config{
		RawTextDir:        cfg.Input.RawTextDir,
		ProcessedDir:      cfg.Input.ProcessedDir,
		MaxLineLength:     maxLen,
		SaveStats:         cfg.TextProcessing.SaveStats,
		OverwriteExisting: cfg.TextProcessing.OverwriteExisting || *overwrite,
	})
	e.QuitIf(xerr.ErrorTypeError)

	if stats.Skipped {
		return
	}
	tl.LogJSON(tl.Info, palette.CyanDim, "preprocessing stats", stats)
}
