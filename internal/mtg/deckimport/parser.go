// Package deckimport parses decklists exported by the common deck building
// sites and clients into raw deck entries.
package deckimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// Dialect names a supported decklist format.
type Dialect string

const (
	DialectSimple       Dialect = "simple"
	DialectMTGA         Dialect = "mtga"
	DialectMTGO         Dialect = "mtgo"
	DialectArchidekt    Dialect = "archidekt"
	DialectDeckstats    Dialect = "deckstats"
	DialectMoxfield     Dialect = "moxfield"
	DialectScryfallJSON Dialect = "scryfall_json"
	DialectMPCFillXML   Dialect = "mpcfill_xml"
)

// Dialects returns every supported dialect in a stable order.
func Dialects() []Dialect {
	return []Dialect{
		DialectSimple,
		DialectMTGA,
		DialectMTGO,
		DialectArchidekt,
		DialectDeckstats,
		DialectMoxfield,
		DialectScryfallJSON,
		DialectMPCFillXML,
	}
}

// ParseDialect validates a user supplied dialect name (case-insensitive).
func ParseDialect(name string) (Dialect, error) {
	want := Dialect(strings.ToLower(strings.TrimSpace(name)))
	for _, d := range Dialects() {
		if d == want {
			return d, nil
		}
	}
	return "", fmt.Errorf("unrecognized deck format %q", name)
}

// Parser converts a raw decklist document into raw deck entries.
type Parser interface {
	Parse(input []byte) ([]deck.RawEntry, error)
}

// ForDialect returns the parser for d.
func ForDialect(d Dialect) (Parser, error) {
	switch d {
	case DialectSimple:
		return simpleParser{}, nil
	case DialectMTGA:
		return mtgaParser{}, nil
	case DialectMTGO:
		return mtgoParser{}, nil
	case DialectArchidekt:
		return archidektParser{}, nil
	case DialectDeckstats:
		return deckstatsParser{}, nil
	case DialectMoxfield:
		return moxfieldParser{}, nil
	case DialectScryfallJSON:
		return scryfallJSONParser{}, nil
	case DialectMPCFillXML:
		return mpcfillXMLParser{}, nil
	}
	return nil, fmt.Errorf("unrecognized deck format %q", d)
}

// Parse parses input with the parser registered for d.
func Parse(d Dialect, input []byte) ([]deck.RawEntry, error) {
	p, err := ForDialect(d)
	if err != nil {
		return nil, err
	}
	return p.Parse(input)
}

// splitLines splits a text document into trimmed lines, tolerating CRLF.
func splitLines(input []byte) []string {
	lines := strings.Split(string(input), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	}
	return lines
}

// parseQuantity parses a positive card count.
func parseQuantity(d Dialect, line int, s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, lineError(d, line, "invalid quantity %q", s)
	}
	if q < 1 {
		return 0, lineError(d, line, "quantity must be positive, got %d", q)
	}
	return q, nil
}

// newEntry builds a raw entry, splitting "Front // Back" names.
func newEntry(quantity int, name string, section deck.Section) deck.RawEntry {
	front, alt := deck.SplitFaces(name)
	return deck.RawEntry{
		Name:     front,
		AltName:  alt,
		Quantity: quantity,
		Section:  section,
	}
}

// finishFromMarker maps the "*F*" and "*E*" suffixes used by Archidekt and
// Moxfield exports. Etched cards only exist as foils.
func finishFromMarker(marker string) deck.Finish {
	switch strings.ToUpper(marker) {
	case "F", "E":
		return deck.FinishFoil
	}
	return deck.FinishAny
}

// requireEntries rejects documents that produced no cards at all.
func requireEntries(d Dialect, entries []deck.RawEntry) ([]deck.RawEntry, error) {
	if len(entries) == 0 {
		return nil, &FormatError{Dialect: d, Reason: "no cards found in import"}
	}
	return entries, nil
}
