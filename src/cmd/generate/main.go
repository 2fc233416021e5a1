package main

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/config"
	"synth-ocr/src/pkg/dataset"
	"synth-ocr/src/pkg/email"
	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/report"
	"synth-ocr/src/pkg/util"
)

const reportFileName = "report.html"

/*
main generates a dataset as described by the configuration file.

Flags override the sample count, the seed and the output directory of the
configuration. After the run an HTML report is written next to the samples
and, when notifications are enabled, emailed.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	samples := flag.Int("samples", 0, "Total number of samples. 0 keeps dataset.total_samples from the config.")
	seed := flag.String("seed", "", "Random seed. Empty keeps advanced.random_seed from the config.")
	outputDir := flag.String("out", "", "Output directory. Empty keeps dataset.output_dir from the config.")

	// Parse and initialize config.
	flag.Parse()
	util.EnsureFlags()
	cfg := config.InitializeConfig(*configPath)

	if *samples > 0 {
		cfg.Dataset.TotalSamples = *samples
	}
	if *seed != "" {
		value, err := strconv.ParseUint(*seed, 10, 64)
		xerr.QuitIfError(err, "Unable to parse -seed")
		cfg.Advanced.RandomSeed = &value
	}
	if *outputDir != "" {
		cfg.Dataset.OutputDir = *outputDir
	}
	if cfg.Notify.Enabled {
		config.CheckIfEnvVarsPresent(email.EnvVars(cfg.Notify.Provider)...)
	}

	tl.Log(tl.Notice, palette.BlueBold, "%s dataset generation. Config path: '%s'", "Running", *configPath)

	summary, e := dataset.Run(cfg)
	e.QuitIf(xerr.ErrorTypeError)

	records, e := manifest.Load(summary.Manifest)
	e.QuitIf(xerr.ErrorTypeError)

	rep := report.Build(report.Input{
		Title:   "Synthetic OCR dataset " + filepath.Base(summary.OutputDir),
		Records: records,
		Stats:   summary.Kinds,
		Seed:    &summary.Seed,
	})
	htmlText, e := report.RenderHTML(rep)
	e.QuitIf(xerr.ErrorTypeError)
	reportPath := filepath.Join(summary.OutputDir, reportFileName)
	xerr.QuitIfError(os.WriteFile(reportPath, []byte(htmlText), 0o644), "Unable to write report")

	if cfg.Notify.Enabled {
		e = report.Send(cfg.Notify, rep)
		if e != nil {
			tl.Log(tl.Warning, palette.Yellow, "Run finished but the notification failed: %s: %s", e.Msg, e.ErrStr)
		}
	}

	tl.Log(tl.Notice1, palette.GreenBold, "%s. %s, report in '%s'", "Generation completed", summary.Describe(), reportPath)
}
