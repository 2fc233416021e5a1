/*
Package selector picks (text chunk, font) combinations without repetition.

Text units are visited through a shuffled ring so that every unit is drawn
about equally often over a long run. For each unit a font is drawn uniformly;
already used pairs are redrawn a bounded number of times, after which the
cursor moves on to the next unit. Only when a whole pass over the ring
misses does Next scan the first unit with free fonts in order, so a draw
costs O(1) amortized and never loops forever as the space fills up.
*/
package selector

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrExhausted is returned by Next once every unit has been paired with every font.
var ErrExhausted = errors.New("combination space exhausted")

// DefaultMaxFontAttempts bounds random font redraws per unit before the cursor moves on.
const DefaultMaxFontAttempts = 8

// Unit is one renderable chunk: the source line index and its 1-based chunk number.
type Unit struct {
	Text  int `json:"text_index"`
	Chunk int `json:"chunk"`
}

// Combination is an emitted (text, chunk, font) triple. Font is the 1-based catalog index.
type Combination struct {
	Text  int `json:"text_index"`
	Chunk int `json:"chunk"`
	Font  int `json:"font"`
}

func (c Combination) Unit() Unit {
	return Unit{Text: c.Text, Chunk: c.Chunk}
}

func (c Combination) String() string {
	return fmt.Sprintf("text=%d chunk=%02d font=%02d", c.Text, c.Chunk, c.Font)
}

type Options struct {
	// MaxFontAttempts bounds random redraws for a unit; <= 0 uses DefaultMaxFontAttempts.
	MaxFontAttempts int
	// History lists combinations emitted by earlier runs; they are never emitted again.
	History []Combination
}

/*
Selector hands out unique combinations.

Next holds the selector lock for the whole check-and-insert, so a Selector
may be shared by several workers.
*/
type Selector struct {
	mu sync.Mutex

	rng         *rand.Rand
	units       []Unit
	fonts       int
	maxAttempts int

	order       []int
	cursor      int
	used        map[Combination]struct{}
	usedPerUnit []int
	usedTotal   int
	redraws     int
}

/*
New builds a Selector over units and fontCount fonts (indices 1..fontCount).

The visiting order is shuffled with rng, which must be the run's seeded
source for the sequence to be reproducible.
*/
func New(units []Unit, fontCount int, rng *rand.Rand, opts Options) *Selector {
	maxAttempts := opts.MaxFontAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFontAttempts
	}
	if fontCount < 0 {
		fontCount = 0
	}

	s := &Selector{
		rng:         rng,
		units:       append([]Unit(nil), units...),
		fonts:       fontCount,
		maxAttempts: maxAttempts,
		order:       make([]int, len(units)),
		used:        make(map[Combination]struct{}),
		usedPerUnit: make([]int, len(units)),
	}
	for i := range s.order {
		s.order[i] = i
	}
	rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	if len(opts.History) > 0 {
		index := make(map[Unit]int, len(units))
		for i, u := range s.units {
			index[u] = i
		}
		for _, c := range opts.History {
			ui, ok := index[c.Unit()]
			if !ok || c.Font < 1 || c.Font > s.fonts {
				continue
			}
			s.markUsed(ui, c)
		}
	}

	return s
}

// Next returns a combination that has not been returned before, or ErrExhausted.
func (s *Selector) Next() (c Combination, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.units) == 0 || s.usedTotal >= len(s.units)*s.fonts {
		return c, ErrExhausted
	}

	fallback := -1
	for step := 0; step < len(s.order); step++ {
		pos := s.cursor
		ui := s.order[pos]
		s.cursor = (s.cursor + 1) % len(s.order)
		if s.usedPerUnit[ui] >= s.fonts {
			continue
		}
		if fallback < 0 {
			fallback = pos
		}

		unit := s.units[ui]
		font, ok := s.drawFont(unit)
		if !ok {
			continue
		}
		c = Combination{Text: unit.Text, Chunk: unit.Chunk, Font: font}
		s.markUsed(ui, c)
		return c, nil
	}

	if fallback < 0 {
		return c, ErrExhausted
	}

	// Every unit with free fonts missed its draws.
	ui := s.order[fallback]
	s.cursor = (fallback + 1) % len(s.order)
	unit := s.units[ui]
	c = Combination{Text: unit.Text, Chunk: unit.Chunk, Font: s.scanFont(unit)}
	s.markUsed(ui, c)
	return c, nil
}

// drawFont makes up to maxAttempts uniform draws for an unused font of unit.
func (s *Selector) drawFont(unit Unit) (int, bool) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		font := 1 + s.rng.IntN(s.fonts)
		if !s.isUsed(Combination{Text: unit.Text, Chunk: unit.Chunk, Font: font}) {
			return font, true
		}
		s.redraws++
	}
	return 0, false
}

// scanFont assumes the unit still has at least one unused font.
func (s *Selector) scanFont(unit Unit) int {
	start := s.rng.IntN(s.fonts)
	for k := 0; k < s.fonts; k++ {
		font := (start+k)%s.fonts + 1
		if !s.isUsed(Combination{Text: unit.Text, Chunk: unit.Chunk, Font: font}) {
			return font
		}
	}
	panic("selector: unit reported free fonts but none found")
}

func (s *Selector) isUsed(c Combination) bool {
	_, ok := s.used[c]
	return ok
}

func (s *Selector) markUsed(ui int, c Combination) {
	if s.isUsed(c) {
		return
	}
	s.used[c] = struct{}{}
	s.usedPerUnit[ui]++
	s.usedTotal++
}

// IsUsed reports whether c was emitted (or loaded from history).
func (s *Selector) IsUsed(c Combination) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isUsed(c)
}

// Capacity is the size of the whole unit × font space.
func (s *Selector) Capacity() int {
	return len(s.units) * s.fonts
}

// Remaining is the number of combinations Next can still return.
func (s *Selector) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)*s.fonts - s.usedTotal
}

// Redraws counts random font draws that hit an already used pair.
func (s *Selector) Redraws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redraws
}
