// Package printing chooses one concrete printing for every deck entry.
//
// Resolution is a pure function of the entry, the candidate printings and
// the run's Preferences: the same inputs always produce the same choice.
package printing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// Treatment is the visual treatment of a printing.
type Treatment string

const (
	TreatmentNormal      Treatment = "normal"
	TreatmentShowcase    Treatment = "showcase"
	TreatmentExtendedArt Treatment = "extended_art"
	TreatmentBorderless  Treatment = "borderless"
	TreatmentFullArt     Treatment = "full_art"
	TreatmentEtched      Treatment = "etched"
	TreatmentOther       Treatment = "other"
)

// IsExtraArt reports whether t shows more art than a normal frame.
func (t Treatment) IsExtraArt() bool {
	switch t {
	case TreatmentExtendedArt, TreatmentBorderless, TreatmentFullArt:
		return true
	}
	return false
}

// Printing is one physical printing of a card as reported by a catalog.
type Printing struct {
	ID              string
	Name            string
	FaceNames       []string
	SetCode         string
	CollectorNumber string
	ReleaseDate     time.Time
	Treatment       Treatment
	IsPromo         bool
	IsToken         bool
	Layout          string
	Finishes        []deck.Finish

	// RelatedTokenNames lists the tokens this card creates.
	RelatedTokenNames []string

	FrontImageURL string
	BackImageURL  string // Empty for single-faced layouts
}

// String implements fmt.Stringer.
func (p Printing) String() string {
	return fmt.Sprintf("%s (%s) %s", p.Name, strings.ToUpper(p.SetCode), p.CollectorNumber)
}

// HasFinish reports whether the printing exists in finish f.
func (p Printing) HasFinish(f deck.Finish) bool {
	if f == deck.FinishAny {
		return true
	}
	for _, have := range p.Finishes {
		if have == f {
			return true
		}
	}
	return false
}

// Preferences are the user's choices for a run. They are built once and
// passed by value; nothing in the pipeline modifies them.
type Preferences struct {
	IgnoreSetAndCollector bool
	PreferOlderSets       bool
	PreferredSets         []string
	PreferShowcase        bool
	PreferExtraArt        bool
	IncludeTokens         bool
}

// Resolution pairs a deck entry with the printing chosen for it.
type Resolution struct {
	Entry    deck.DeckEntry
	Printing Printing

	// Token is set for entries added by token expansion. Source names the
	// card that produced the token.
	Token  bool
	Source string
}

// NotFoundError is returned when no candidate printing matches an entry.
type NotFoundError struct {
	Name string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("card not found: %s", e.Name)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// NotFoundNames returns the names of every NotFoundError in err, including
// those joined by ResolveAll.
func NotFoundNames(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var names []string
		for _, e := range joined.Unwrap() {
			names = append(names, NotFoundNames(e)...)
		}
		return names
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return []string{nf.Name}
	}
	return nil
}
