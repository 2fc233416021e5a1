package generator

import (
	"fmt"
	"time"
)

/*
Stats is the end-of-run summary of one generator.

Every requested slot ends up in exactly one of Successful, Failed,
SkippedDuplicate or Exhausted, so
Requested - Successful - Failed == SkippedDuplicate + Exhausted.
*/
type Stats struct {
	Requested        int `json:"requested"`
	Successful       int `json:"successful"`
	Failed           int `json:"failed"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Exhausted        int `json:"exhausted"`

	// Redraws counts font draws the selector rejected because the pair was taken.
	Redraws    int           `json:"redraws"`
	Augmented  int           `json:"augmented"`
	Background int           `json:"background"`
	Duration   time.Duration `json:"duration"`
}

// Shortfall is how many requested samples were not written by this run.
func (s Stats) Shortfall() int {
	return s.Requested - s.Successful
}

func (s Stats) Balanced() bool {
	return s.Requested-s.Successful-s.Failed == s.SkippedDuplicate+s.Exhausted
}

func (s Stats) Add(o Stats) Stats {
	s.Requested += o.Requested
	s.Successful += o.Successful
	s.Failed += o.Failed
	s.SkippedDuplicate += o.SkippedDuplicate
	s.Exhausted += o.Exhausted
	s.Redraws += o.Redraws
	s.Augmented += o.Augmented
	s.Background += o.Background
	s.Duration += o.Duration
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"requested=%d successful=%d failed=%d skipped_duplicate=%d exhausted=%d",
		s.Requested, s.Successful, s.Failed, s.SkippedDuplicate, s.Exhausted,
	)
}
