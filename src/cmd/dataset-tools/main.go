// Entrypoint with one subprogram per post-generation task.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/config"
	"synth-ocr/src/pkg/dataset"
	"synth-ocr/src/pkg/email"
	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/publish"
	"synth-ocr/src/pkg/report"
	"synth-ocr/src/pkg/util"
	"synth-ocr/src/pkg/verify"
)

/*
buildReport loads the manifests of datasetDir and, when present, its run
summary, and aggregates them.
*/
func buildReport(datasetDir, title string, maxRows int) report.Report {
	records, e := manifest.Load(datasetDir)
	e.QuitIf(xerr.ErrorTypeError)

	in := report.Input{Title: title, Records: records, MaxRows: maxRows}
	summary, e := dataset.ReadSummary(datasetDir)
	if e != nil {
		tl.Log(tl.Notice, palette.Yellow, "No run summary in '%s', reporting from the manifest only", datasetDir)
	} else {
		in.Stats = summary.Kinds
		in.Seed = &summary.Seed
	}
	if in.Title == "" {
		in.Title = "Synthetic OCR dataset " + filepath.Base(filepath.Clean(datasetDir))
	}
	return report.Build(in)
}

/*
Write an HTML report of a generated dataset.
*/
func reportCmd(subprogram string, flags []string) {
	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	// custom flags
	datasetDir := subprogramCmd.String("dataset", "", "Directory of a generated dataset. Defaults to dataset.output_dir.")
	outputPath := subprogramCmd.String("out", "", "Where to write the HTML report. Defaults to <dataset>/report.html.")
	title := subprogramCmd.String("title", "", "Report title.")
	maxRows := subprogramCmd.Int("max-rows", 12, "Rows per breakdown before grouping into Other.")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	cfg := config.InitializeConfig(*configPath)
	util.PositiveFlag(maxRows, "max-rows")
	util.EnsureFlags()

	dir := orDefault(*datasetDir, cfg.Dataset.OutputDir)
	out := orDefault(*outputPath, filepath.Join(dir, "report.html"))

	rep := buildReport(dir, *title, *maxRows)
	htmlText, e := report.RenderHTML(rep)
	e.QuitIf(xerr.ErrorTypeError)

	err := os.WriteFile(out, []byte(htmlText), 0o644)
	xerr.QuitIfError(err, "Unable to write report")
	tl.Log(tl.Notice1, palette.GreenBold, "Report of %d samples written to '%s'", rep.Samples, out)
}

/*
OCR a sample of the dataset with tesseract and compare against the ground truth.
Exits with status 1 when the mean character error rate is above verify.max_mean_cer.
*/
func verifyCmd(subprogram string, flags []string) {
	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	// custom flags
	datasetDir := subprogramCmd.String("dataset", "", "Directory of a generated dataset. Defaults to dataset.output_dir.")
	sampleSize := subprogramCmd.Int("sample", 0, "How many samples to check. 0 keeps verify.sample_size.")
	language := subprogramCmd.String("language", "", "Tesseract language. Empty keeps verify.language.")
	seed := subprogramCmd.Uint64("seed", 1, "Seed for picking the samples.")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	cfg := config.InitializeConfig(*configPath)
	util.EnsureFlags()

	verifyCfg := cfg.Verify
	if *sampleSize > 0 {
		verifyCfg.SampleSize = *sampleSize
	}
	verifyCfg.Language = orDefault(*language, verifyCfg.Language)
	dir := orDefault(*datasetDir, cfg.Dataset.OutputDir)

	records, e := manifest.Load(dir)
	e.QuitIf(xerr.ErrorTypeError)

	result, e := verify.Run(verify.Tesseract{Language: verifyCfg.Language}, records, dir, verifyCfg, *seed)
	e.QuitIf(xerr.ErrorTypeError)

	if !result.Passed {
		tl.Log(tl.Error, palette.RedBold, "Mean CER %.4f is above the allowed %.4f", result.MeanCER, verifyCfg.MaxMeanCER)
		os.Exit(1)
	}
	tl.Log(tl.Notice1, palette.GreenBold, "Verification passed: %d samples, mean CER %.4f", result.Checked, result.MeanCER)
}

/*
Upload the dataset directory to S3.
*/
func publishCmd(subprogram string, flags []string) {
	config.CheckIfEnvVarsPresent("AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY")

	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	// custom flags
	datasetDir := subprogramCmd.String("dataset", "", "Directory of a generated dataset. Defaults to dataset.output_dir.")
	bucket := subprogramCmd.String("bucket", "", "Target bucket. Empty keeps publish.bucket.")
	prefix := subprogramCmd.String("prefix", "", "Key prefix. Empty keeps publish.prefix.")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	cfg := config.InitializeConfig(*configPath)

	publishCfg := cfg.Publish
	publishCfg.Bucket = orDefault(*bucket, publishCfg.Bucket)
	publishCfg.Prefix = orDefault(*prefix, publishCfg.Prefix)
	util.RequiredFlag(&publishCfg.Bucket, "bucket")
	util.EnsureFlags()
	dir := orDefault(*datasetDir, cfg.Dataset.OutputDir)

	uploader, e := publish.NewUploader(publishCfg)
	e.QuitIf(xerr.ErrorTypeError)

	result, e := publish.Dir(context.Background(), uploader, publishCfg, dir)
	e.QuitIf(xerr.ErrorTypeError)
	tl.Log(tl.Notice1, palette.GreenBold, "Published %d files (%d bytes) to s3://%s/%s", result.Files, result.Bytes, publishCfg.Bucket, publishCfg.Prefix)
}

/*
Send the dataset report through a provider to check its credentials,
regardless of notify.enabled.
*/
func testNotifyCmd(subprogram string, flags []string) {
	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	// custom flags
	datasetDir := subprogramCmd.String("dataset", "", "Directory of a generated dataset. Defaults to dataset.output_dir.")
	provider := subprogramCmd.String("provider", "", "Provider to use. Empty keeps notify.provider.")
	recipient := subprogramCmd.String("recipient", "", "Send to this address instead of notify.recipients.")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	cfg := config.InitializeConfig(*configPath)
	util.EnsureFlags()

	notifyCfg := cfg.Notify
	notifyCfg.Enabled = true
	if *provider != "" {
		notifyCfg.Provider = email.Provider(*provider)
	}
	if *recipient != "" {
		notifyCfg.Recipients = []string{*recipient}
	}
	config.CheckIfEnvVarsPresent(email.EnvVars(notifyCfg.Provider)...)

	rep := buildReport(orDefault(*datasetDir, cfg.Dataset.OutputDir), "", 12)
	e := report.Send(notifyCfg, rep)
	e.QuitIf("error")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	// Check if there are enough arguments
	if len(os.Args) < 2 {
		tl.Log(tl.Error, palette.Red, "Usage: %s", "go run src/cmd/dataset-tools/main.go subprogram_name (report, verify, publish, test-notify)")
		os.Exit(1)
	}
	subprogram := os.Args[1]
	flags := os.Args[2:]

	// Switch subprogram based on the first argument
	switch subprogram {
	case "report":
		reportCmd(subprogram, flags)
	case "verify":
		verifyCmd(subprogram, flags)
	case "publish":
		publishCmd(subprogram, flags)
	case "test-notify":
		testNotifyCmd(subprogram, flags)
	default:
		tl.Log(tl.Error, palette.Red, "Unknown subprogram: %s", subprogram)
		os.Exit(1)
	}
}
