package printing

import (
	"errors"
	"sort"
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// Key returns the map key ResolveAll uses to find an entry's candidates.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve picks the printing for entry out of candidates.
//
// Candidates whose name does not match the entry are ignored. Set and
// collector hints are tried first; when they do not single out one
// printing, the preference ladder is applied:
//
//  1. earlier position in PreferredSets
//  2. showcase, if PreferShowcase
//  3. extended art, borderless or full art, if PreferExtraArt
//  4. normal treatment, if neither of the above is set
//  5. oldest release first with PreferOlderSets, newest otherwise
//  6. set code, collector number, ID and input order
//
// Resolve returns a *NotFoundError only when no candidate matches the name.
func Resolve(entry deck.DeckEntry, candidates []Printing, prefs Preferences) (Printing, error) {
	pool := matchName(entry, candidates)
	if len(pool) == 0 {
		return Printing{}, &NotFoundError{Name: entry.DisplayName()}
	}

	if entry.HasHint() && (!prefs.IgnoreSetAndCollector || entry.Pinned) {
		narrowed := matchHints(entry, pool)
		switch len(narrowed) {
		case 0:
			// Stale or mistyped hints fall back to the full ladder.
		case 1:
			return narrowed[0].Printing, nil
		default:
			pool = narrowed
		}
	}

	pool = applyLadder(pool, prefs)
	return pool[0].Printing, nil
}

// ResolveAll resolves every entry against candidates keyed by Key(entry.Name).
// Entries without a match are left out of the result and reported together
// in the returned error.
func ResolveAll(entries []deck.DeckEntry, candidates map[string][]Printing, prefs Preferences) ([]Resolution, error) {
	resolved := make([]Resolution, 0, len(entries))
	var errs []error

	for _, entry := range entries {
		p, err := Resolve(entry, candidates[Key(entry.Name)], prefs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved = append(resolved, Resolution{Entry: entry, Printing: p})
	}

	return resolved, errors.Join(errs...)
}

// candidate remembers the input position for the final tie-break.
type candidate struct {
	Printing
	pos int
}

func matchName(entry deck.DeckEntry, candidates []Printing) []candidate {
	want := []string{entry.Name}
	if entry.AltName != "" {
		want = append(want, entry.AltName, entry.DisplayName())
	}

	var pool []candidate
	for i, p := range candidates {
		if nameMatches(p, want) {
			pool = append(pool, candidate{Printing: p, pos: i})
		}
	}
	return pool
}

func nameMatches(p Printing, want []string) bool {
	names := append([]string{p.Name}, p.FaceNames...)
	for _, have := range names {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(have), w) {
				return true
			}
		}
	}
	return false
}

func matchHints(entry deck.DeckEntry, pool []candidate) []candidate {
	var narrowed []candidate
	for _, c := range pool {
		if entry.SetHint != "" && !strings.EqualFold(c.SetCode, entry.SetHint) {
			continue
		}
		if entry.CollectorHint != "" && !strings.EqualFold(c.CollectorNumber, entry.CollectorHint) {
			continue
		}
		narrowed = append(narrowed, c)
	}

	if len(narrowed) > 1 && entry.FinishHint != deck.FinishAny {
		if byFinish := filter(narrowed, func(c candidate) bool { return c.HasFinish(entry.FinishHint) }); len(byFinish) > 0 {
			narrowed = byFinish
		}
	}
	return narrowed
}

func applyLadder(pool []candidate, prefs Preferences) []candidate {
	if len(prefs.PreferredSets) > 0 {
		pool = keepLowest(pool, func(c candidate) int {
			for i, set := range prefs.PreferredSets {
				if strings.EqualFold(c.SetCode, strings.TrimSpace(set)) {
					return i
				}
			}
			return len(prefs.PreferredSets)
		})
	}

	if prefs.PreferShowcase {
		pool = keepLowest(pool, func(c candidate) int {
			return rankIf(c.Treatment == TreatmentShowcase)
		})
	}

	if prefs.PreferExtraArt {
		pool = keepLowest(pool, func(c candidate) int {
			return rankIf(c.Treatment.IsExtraArt())
		})
	}

	if !prefs.PreferShowcase && !prefs.PreferExtraArt {
		pool = keepLowest(pool, func(c candidate) int {
			return rankIf(c.Treatment == TreatmentNormal)
		})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if !a.ReleaseDate.Equal(b.ReleaseDate) {
			// Unknown dates rank last in either direction.
			if a.ReleaseDate.IsZero() || b.ReleaseDate.IsZero() {
				return b.ReleaseDate.IsZero()
			}
			if prefs.PreferOlderSets {
				return a.ReleaseDate.Before(b.ReleaseDate)
			}
			return a.ReleaseDate.After(b.ReleaseDate)
		}
		if a.SetCode != b.SetCode {
			return a.SetCode < b.SetCode
		}
		if a.CollectorNumber != b.CollectorNumber {
			return a.CollectorNumber < b.CollectorNumber
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.pos < b.pos
	})
	return pool
}

// keepLowest keeps the candidates sharing the lowest rank.
func keepLowest(pool []candidate, rank func(candidate) int) []candidate {
	best := -1
	var kept []candidate
	for _, c := range pool {
		r := rank(c)
		switch {
		case best < 0 || r < best:
			best = r
			kept = append(kept[:0], c)
		case r == best:
			kept = append(kept, c)
		}
	}
	return kept
}

func rankIf(preferred bool) int {
	if preferred {
		return 0
	}
	return 1
}

func filter(pool []candidate, keep func(candidate) bool) []candidate {
	var out []candidate
	for _, c := range pool {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
