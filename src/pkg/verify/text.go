package verify

import (
	"regexp"
	"strings"
)

// whitespaceRegexp matches any whitespace run, including the trailing newline tesseract appends.
var whitespaceRegexp = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace runs into single spaces and trims the ends.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(s, " "))
}

// Distance is the Levenshtein edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

/*
CER is the character error rate of hypothesis against reference: edit
distance over reference length. An empty reference scores 0 against an
empty hypothesis and 1 against anything else.
*/
func CER(reference, hypothesis string) float64 {
	n := len([]rune(reference))
	if n == 0 {
		if hypothesis == "" {
			return 0
		}
		return 1
	}
	return float64(Distance(reference, hypothesis)) / float64(n)
}
