// Package deck holds the canonical in-memory deck model shared by the
// decklist parsers and the printing resolver.
package deck

import (
	"fmt"
	"strings"
)

// Section identifies which part of a deck an entry belongs to.
type Section string

const (
	SectionMain  Section = "main"
	SectionSide  Section = "side"
	SectionMaybe Section = "maybe"
)

// Valid reports whether s is one of the known sections.
func (s Section) Valid() bool {
	switch s {
	case SectionMain, SectionSide, SectionMaybe:
		return true
	}
	return false
}

// Finish is the foil treatment a decklist line asks for.
type Finish string

const (
	FinishAny     Finish = ""
	FinishFoil    Finish = "foil"
	FinishNonfoil Finish = "nonfoil"
)

// RawEntry is a single card line as produced by a format parser.
type RawEntry struct {
	Name          string
	AltName       string // Back face or other half of a multi-faced card
	SetHint       string
	CollectorHint string
	Quantity      int
	Section       Section
	FinishHint    Finish

	// Pinned marks hints that name an exact printing and must be honored
	// even when the user asked to ignore set and collector numbers.
	Pinned bool
}

// DeckEntry is the deduplicated form of one or more RawEntry values
// sharing a name and section.
type DeckEntry struct {
	Name          string
	AltName       string
	SetHint       string
	CollectorHint string
	Quantity      int
	Section       Section
	FinishHint    Finish
	Pinned        bool
}

// HasHint reports whether the entry names a set or collector number.
func (e DeckEntry) HasHint() bool {
	return e.SetHint != "" || e.CollectorHint != ""
}

// DisplayName returns the full name including the alternate face, if any.
func (e DeckEntry) DisplayName() string {
	if e.AltName == "" {
		return e.Name
	}
	return e.Name + " // " + e.AltName
}

// Raw converts the entry back into a RawEntry.
func (e DeckEntry) Raw() RawEntry {
	return RawEntry{
		Name:          e.Name,
		AltName:       e.AltName,
		SetHint:       e.SetHint,
		CollectorHint: e.CollectorHint,
		Quantity:      e.Quantity,
		Section:       e.Section,
		FinishHint:    e.FinishHint,
		Pinned:        e.Pinned,
	}
}

// String implements fmt.Stringer.
func (e DeckEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Quantity, e.DisplayName())
	if e.SetHint != "" || e.CollectorHint != "" {
		fmt.Fprintf(&b, " (%s) %s", e.SetHint, e.CollectorHint)
	}
	if e.Section != SectionMain {
		fmt.Fprintf(&b, " [%s]", e.Section)
	}
	return b.String()
}

// SplitFaces splits a multi-faced card name of the form "Front // Back"
// into its front and alternate names. Names without "//" are returned as is.
func SplitFaces(name string) (front, alt string) {
	front, alt, found := strings.Cut(name, "//")
	if !found {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(front), strings.TrimSpace(alt)
}
