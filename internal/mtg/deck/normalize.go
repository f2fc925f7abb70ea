package deck

import (
	"fmt"
	"strings"
)

// InvalidEntryError is returned by Normalize when a raw entry violates the
// deck model invariants.
type InvalidEntryError struct {
	Index  int
	Name   string
	Reason string
}

// Error implements the error interface for InvalidEntryError.
func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid deck entry %d (%q): %s", e.Index, e.Name, e.Reason)
}

type mergeKey struct {
	name    string
	section Section
}

// mergeState tracks per-field conflicts while entries are folded together.
type mergeState struct {
	entry DeckEntry

	setConflict    bool
	numberConflict bool
	altConflict    bool
	finishConflict bool
	allPinned      bool
}

// Normalize merges raw entries into deck entries keyed by trimmed,
// case-preserved name and section. Quantities are summed and hints survive
// only when every contributing entry agrees on them. Output order is the
// order in which each key was first seen.
func Normalize(raw []RawEntry) ([]DeckEntry, error) {
	states := make(map[mergeKey]*mergeState, len(raw))
	order := make([]mergeKey, 0, len(raw))

	for i, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, &InvalidEntryError{Index: i, Name: r.Name, Reason: "empty card name"}
		}
		if r.Quantity < 1 {
			return nil, &InvalidEntryError{Index: i, Name: name, Reason: fmt.Sprintf("quantity %d is not positive", r.Quantity)}
		}
		if !r.Section.Valid() {
			return nil, &InvalidEntryError{Index: i, Name: name, Reason: fmt.Sprintf("unknown section %q", r.Section)}
		}

		key := mergeKey{name: name, section: r.Section}
		st, ok := states[key]
		if !ok {
			states[key] = &mergeState{
				entry: DeckEntry{
					Name:          name,
					AltName:       strings.TrimSpace(r.AltName),
					SetHint:       strings.TrimSpace(r.SetHint),
					CollectorHint: strings.TrimSpace(r.CollectorHint),
					Quantity:      r.Quantity,
					Section:       r.Section,
					FinishHint:    r.FinishHint,
				},
				allPinned: r.Pinned,
			}
			order = append(order, key)
			continue
		}

		st.entry.Quantity += r.Quantity
		st.allPinned = st.allPinned && r.Pinned
		mergeField(&st.entry.SetHint, &st.setConflict, strings.TrimSpace(r.SetHint))
		mergeField(&st.entry.CollectorHint, &st.numberConflict, strings.TrimSpace(r.CollectorHint))
		mergeField(&st.entry.AltName, &st.altConflict, strings.TrimSpace(r.AltName))

		finish := string(st.entry.FinishHint)
		mergeField(&finish, &st.finishConflict, string(r.FinishHint))
		st.entry.FinishHint = Finish(finish)
	}

	entries := make([]DeckEntry, 0, len(order))
	for _, key := range order {
		st := states[key]
		e := st.entry
		e.Pinned = st.allPinned && !st.setConflict && !st.numberConflict && e.HasHint()
		entries = append(entries, e)
	}

	return entries, nil
}

// mergeField keeps *dst only while every merged value equals it. After the
// first disagreement the field is cleared and stays cleared.
func mergeField(dst *string, conflict *bool, value string) {
	if *conflict {
		return
	}
	if *dst != value {
		*dst = ""
		*conflict = true
	}
}
