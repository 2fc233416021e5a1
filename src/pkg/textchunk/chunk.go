/*
Package textchunk splits source lines into render-ready chunks that fit a
maximum character budget, preferring sentence punctuation, then whitespace,
and only hard-cutting when a single unit cannot fit.

Lengths are counted in runes.
*/
package textchunk

import "unicode"

// DefaultTerminals are the cut characters tried before whitespace:
// latin and arabic-script sentence marks plus the arabic comma and semicolon.
var DefaultTerminals = []rune{'.', '!', '?', '،', '؛', '؟'}

/*
Chunk is one piece of a split line.

Sep is the whitespace consumed at the cut that follows Text (empty after a
hard cut or at the end of the line). Concatenating Text+Sep over all chunks
reproduces the input exactly.
*/
type Chunk struct {
	Text string
	Sep  string
	Hard bool
}

type Chunker struct {
	maxLen    int
	terminals map[rune]bool
}

/*
New creates a Chunker with the given maximum chunk length.

maxLen below 1 is raised to 1. When no terminals are passed DefaultTerminals
is used.
*/
func New(maxLen int, terminals ...rune) *Chunker {
	if maxLen < 1 {
		maxLen = 1
	}
	if len(terminals) == 0 {
		terminals = DefaultTerminals
	}
	set := make(map[rune]bool, len(terminals))
	for _, r := range terminals {
		set[r] = true
	}
	return &Chunker{maxLen: maxLen, terminals: set}
}

// MaxLen returns the chunk budget.
func (c *Chunker) MaxLen() int {
	return c.maxLen
}

// Split returns only the chunk texts, in order. It never returns an empty slice.
func (c *Chunker) Split(text string) []string {
	chunks := c.Chunks(text)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}

// Chunks splits text into chunks with their cut separators.
func (c *Chunker) Chunks(text string) []Chunk {
	runes := []rune(text)
	if len(runes) <= c.maxLen {
		return []Chunk{{Text: text}}
	}

	chunks := make([]Chunk, 0, len(runes)/c.maxLen+1)
	for len(runes) > 0 {
		if len(runes) <= c.maxLen {
			chunks = append(chunks, Chunk{Text: string(runes)})
			break
		}

		end, next, hard := c.cut(runes)
		chunks = append(chunks, Chunk{
			Text: string(runes[:end]),
			Sep:  string(runes[end:next]),
			Hard: hard,
		})
		runes = runes[next:]
	}
	return chunks
}

/*
cut finds the next boundary in runes, which is longer than maxLen.

It returns the end of the chunk text, the start of the remainder (anything in
between is whitespace dropped at the cut), and whether the cut was a hard one.
next is always > 0 so the caller makes progress.
*/
func (c *Chunker) cut(runes []rune) (end int, next int, hard bool) {
	// Rightmost terminal at a position <= maxLen (index <= maxLen-1), never at index 0.
	for i := c.maxLen - 1; i >= 1; i-- {
		if c.terminals[runes[i]] {
			end = i + 1
			return end, skipSpace(runes, end), false
		}
	}

	// Rightmost whitespace at index <= maxLen; the chunk ends where that run starts.
	for i := c.maxLen; i >= 1; i-- {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		start := i
		for start > 0 && unicode.IsSpace(runes[start-1]) {
			start--
		}
		if start == 0 {
			break
		}
		return start, skipSpace(runes, start), false
	}

	return c.maxLen, c.maxLen, true
}

func skipSpace(runes []rune, from int) int {
	for from < len(runes) && unicode.IsSpace(runes[from]) {
		from++
	}
	return from
}

// Split is a shorthand for New(maxLen).Split(text).
func Split(text string, maxLen int) []string {
	return New(maxLen).Split(text)
}
