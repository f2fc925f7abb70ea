package deckimport

import (
	"regexp"
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

var (
	// "4 Lightning Bolt (M21) 123", "4x Lightning Bolt" or "4 Lightning Bolt"
	// Group 1: quantity, Group 2: card name, Group 3: set code, Group 4: collector number
	arenaLineRegex = regexp.MustCompile(`^(\d+)[xX]?\s+(.+?)(?:\s+\(([A-Za-z0-9]+)\)\s+(\S+))?$`)

	// "4 Lightning Bolt"
	countLineRegex = regexp.MustCompile(`^(\d+)\s+(.+)$`)

	// "1 Lulu, Loyal Hollyphant (CLB) 477 *E*"
	// Group 1: quantity, Group 2: card name, Group 3: set code, Group 4: collector number, Group 5: finish
	moxfieldLineRegex = regexp.MustCompile(`^(\d+)\s+(.+?)(?:\s+\(([A-Za-z0-9]+)\)\s+(\S+))?(?:\s+\*([FEfe])\*)?$`)

	// Arena section headers: "Deck", "Sideboard", "About", ...
	arenaHeaderRegex = regexp.MustCompile(`(?i)^(about|deck|commander|companion|sideboard|maybeboard)\s*:?$`)

	// MTGO and Moxfield board markers: "SIDEBOARD:"
	boardMarkerRegex = regexp.MustCompile(`(?i)^(sideboard|maybeboard)\s*:?$`)
)

// simpleParser parses a plain list of card names, one per line.
//
//	Isshin, Two Heavens as One
//	Arid Mesa
//	Battlefield Forge
type simpleParser struct{}

func (simpleParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	for _, line := range splitLines(input) {
		if line == "" {
			continue
		}
		entries = append(entries, newEntry(1, line, deck.SectionMain))
	}
	return requireEntries(DialectSimple, entries)
}

// mtgaParser parses the MTG Arena export format.
//
//	About
//	Name Death & Taxes
//
//	Companion
//	1 Yorion, Sky Nomad
//
//	Deck
//	2 Arid Mesa
//	4 Lightning Bolt (M21) 123
//
//	Sideboard
//	1 Containment Priest
//
// In a list without any section header, the first blank line after main
// deck cards starts the sideboard. Once a header has been seen, blank lines
// are only separators.
type mtgaParser struct{}

func (mtgaParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	section := deck.SectionMain
	inAbout := false
	sawHeader := false
	cardsInBlock := 0

	for i, line := range splitLines(input) {
		lineNo := i + 1

		if line == "" {
			inAbout = false
			if !sawHeader && section == deck.SectionMain && cardsInBlock > 0 {
				section = deck.SectionSide
				cardsInBlock = 0
			}
			continue
		}

		if m := arenaHeaderRegex.FindStringSubmatch(line); m != nil {
			inAbout = false
			sawHeader = true
			cardsInBlock = 0
			switch strings.ToLower(m[1]) {
			case "about":
				inAbout = true
			case "sideboard":
				section = deck.SectionSide
			case "maybeboard":
				section = deck.SectionMaybe
			default:
				section = deck.SectionMain
			}
			continue
		}

		if inAbout {
			continue
		}

		m := arenaLineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(DialectMTGA, lineNo, "could not parse %q", line)
		}

		quantity, err := parseQuantity(DialectMTGA, lineNo, m[1])
		if err != nil {
			return nil, err
		}

		entry := newEntry(quantity, m[2], section)
		entry.SetHint = m[3]
		entry.CollectorHint = m[4]
		entries = append(entries, entry)
		cardsInBlock++
	}

	return requireEntries(DialectMTGA, entries)
}

// mtgoParser parses the MTGO text export.
//
//	1 Abzan Battle Priest
//	2 Witch Enchanter
//
//	SIDEBOARD:
//	1 Containment Priest
type mtgoParser struct{}

func (mtgoParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	section := deck.SectionMain

	for i, line := range splitLines(input) {
		lineNo := i + 1

		if line == "" {
			continue
		}

		if m := boardMarkerRegex.FindStringSubmatch(line); m != nil {
			section = boardSection(m[1])
			continue
		}

		m := countLineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(DialectMTGO, lineNo, "could not parse %q", line)
		}

		quantity, err := parseQuantity(DialectMTGO, lineNo, m[1])
		if err != nil {
			return nil, err
		}

		entries = append(entries, newEntry(quantity, m[2], section))
	}

	return requireEntries(DialectMTGO, entries)
}

// moxfieldParser parses the Moxfield "MTGO with set" export.
//
//	1 Lulu, Loyal Hollyphant (CLB) 477 *E*
//	1 Pegasus Guardian // Rescue the Foal (CLB) 36
//	4 Plains (MOM) 277
//
//	SIDEBOARD:
//	1 Containment Priest (M21) 13
type moxfieldParser struct{}

func (moxfieldParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	section := deck.SectionMain

	for i, line := range splitLines(input) {
		lineNo := i + 1

		if line == "" {
			continue
		}

		if m := boardMarkerRegex.FindStringSubmatch(line); m != nil {
			section = boardSection(m[1])
			continue
		}

		m := moxfieldLineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(DialectMoxfield, lineNo, "could not parse %q", line)
		}

		quantity, err := parseQuantity(DialectMoxfield, lineNo, m[1])
		if err != nil {
			return nil, err
		}

		entry := newEntry(quantity, m[2], section)
		entry.SetHint = m[3]
		entry.CollectorHint = m[4]
		entry.FinishHint = finishFromMarker(m[5])
		entries = append(entries, entry)
	}

	return requireEntries(DialectMoxfield, entries)
}

func boardSection(marker string) deck.Section {
	if strings.EqualFold(marker, "maybeboard") {
		return deck.SectionMaybe
	}
	return deck.SectionSide
}
