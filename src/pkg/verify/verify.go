/*
Package verify checks a generated dataset by reading a sample of it back
with tesseract and scoring the result against the ground truth.
*/
package verify

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/manifest"
	"synth-ocr/src/pkg/writer"
)

const ReportFileName = "verify.json"

type Config struct {
	Language   string `json:"language"`
	SampleSize int    `json:"sample_size"`
	Binarize   bool   `json:"binarize"`
	Threshold  uint8  `json:"threshold"`
	WorstCount int    `json:"worst_count"`
	// MaxMeanCER fails the check when exceeded; 0 disables the gate.
	MaxMeanCER float64 `json:"max_mean_cer"`
}

func DefaultValueConfig() Config {
	return Config{
		Language:   "eng",
		SampleSize: 50,
		Binarize:   true,
		Threshold:  160,
		WorstCount: 5,
	}
}

type SampleResult struct {
	Name       string  `json:"name"`
	Truth      string  `json:"truth"`
	Recognized string  `json:"recognized"`
	Distance   int     `json:"distance"`
	CER        float64 `json:"cer"`
	Background bool    `json:"background"`
	Augmented  bool    `json:"augmented"`
}

type Report struct {
	Checked int            `json:"checked"`
	Failed  int            `json:"failed"`
	Exact   int            `json:"exact"`
	MeanCER float64        `json:"mean_cer"`
	Passed  bool           `json:"passed"`
	Results []SampleResult `json:"results"`
}

/*
Run OCRs up to cfg.SampleSize samples of records, drawn with seed, from
datasetDir. Samples that cannot be read or recognized are counted as failed
and skipped. Results are sorted worst first; the report is also written to
datasetDir/verify.json.
*/
func Run(engine Engine, records []manifest.Record, datasetDir string, cfg Config, seed uint64) (report Report, e *xerr.Error) {
	picked := pick(records, cfg.SampleSize, seed)
	tl.Log(tl.Notice, palette.BlueBold, "Verifying %d of %d samples in '%s'", len(picked), len(records), datasetDir)

	tmpDir, err := os.MkdirTemp("", "synth-ocr-verify-")
	if err != nil {
		return report, xerr.NewError(err, "create temporary directory", os.TempDir())
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	total := 0.0
	for _, r := range picked {
		result, e := check(engine, r, datasetDir, tmpDir, cfg)
		if e != nil {
			report.Failed++
			tl.Log(tl.Warning, palette.Yellow, "Cannot verify '%s': %s: %s", r.Name, e.Msg, e.ErrStr)
			continue
		}
		report.Results = append(report.Results, result)
		total += result.CER
		if result.Distance == 0 {
			report.Exact++
		}
	}

	report.Checked = len(report.Results)
	if report.Checked > 0 {
		report.MeanCER = total / float64(report.Checked)
	}
	report.Passed = report.Checked > 0 && (cfg.MaxMeanCER <= 0 || report.MeanCER <= cfg.MaxMeanCER)

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].CER > report.Results[j].CER
	})

	tl.Log(
		tl.Notice1, palette.GreenBold, "Verified %d samples: mean CER %.4f, %d exact, %d failed",
		report.Checked, report.MeanCER, report.Exact, report.Failed,
	)
	for i := 0; i < min(cfg.WorstCount, len(report.Results)); i++ {
		r := report.Results[i]
		tl.Log(tl.Info, palette.Purple, "CER %.3f '%s': expected '%s', got '%s'", r.CER, r.Name, r.Truth, r.Recognized)
	}

	e = writer.SaveJSONToFile(filepath.Join(datasetDir, ReportFileName), report)
	return report, e
}

func check(engine Engine, r manifest.Record, datasetDir, tmpDir string, cfg Config) (result SampleResult, e *xerr.Error) {
	truthPath := filepath.Join(datasetDir, r.Name+writer.GroundTruthExt)
	truth, err := os.ReadFile(truthPath)
	if err != nil {
		return result, xerr.NewError(err, "read ground truth", truthPath)
	}

	imagePath := filepath.Join(datasetDir, r.Name+writer.ImageExt)
	if cfg.Binarize {
		cleanPath := filepath.Join(tmpDir, r.Name+".png")
		e = binarizeForOCR(imagePath, cleanPath, cfg.Threshold)
		if e != nil {
			return result, e
		}
		imagePath = cleanPath
	}

	recognized, e := engine.Recognize(imagePath)
	if e != nil {
		return result, e
	}

	want := Normalize(string(truth))
	got := Normalize(recognized)
	return SampleResult{
		Name:       r.Name,
		Truth:      want,
		Recognized: got,
		Distance:   Distance(want, got),
		CER:        CER(want, got),
		Background: r.Background,
		Augmented:  r.Augmented,
	}, nil
}

// pick draws up to n records without replacement; n <= 0 takes them all.
func pick(records []manifest.Record, n int, seed uint64) []manifest.Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	picked := make([]manifest.Record, 0, n)
	for _, i := range rng.Perm(len(records))[:n] {
		picked = append(picked, records[i])
	}
	return picked
}
