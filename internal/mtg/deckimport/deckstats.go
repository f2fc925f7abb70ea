package deckimport

import (
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// deckstatsParser parses the deckstats.net export.
//
//	//Main
//	1 [2XM#310] Ash Barrens
//	1 Blinkmoth Nexus
//
//	//Sideboard
//	1 [2XM#315] Darksteel Citadel
//
//	//Maybeboard
//	1 [MID#159] Smoldering Egg // Ashmouth Dragon
//
// Comment lines name the section for the cards that follow. Custom
// category names ("//Lands") stay in the main deck.
type deckstatsParser struct{}

func (deckstatsParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	section := deck.SectionMain

	for i, line := range splitLines(input) {
		lineNo := i + 1

		if line == "" {
			continue
		}

		if comment, ok := strings.CutPrefix(line, "//"); ok {
			section = commentSection(comment)
			continue
		}

		m := countLineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(DialectDeckstats, lineNo, "could not parse %q", line)
		}

		quantity, err := parseQuantity(DialectDeckstats, lineNo, m[1])
		if err != nil {
			return nil, err
		}

		entry, err := parseDeckstatsCard(lineNo, m[2], section)
		if err != nil {
			return nil, err
		}
		entry.Quantity = quantity
		entries = append(entries, entry)
	}

	return requireEntries(DialectDeckstats, entries)
}

func parseDeckstatsCard(lineNo int, rest string, section deck.Section) (deck.RawEntry, error) {
	// Drop annotations such as "# !Commander".
	if hash := strings.Index(rest, " #"); hash >= 0 {
		rest = strings.TrimSpace(rest[:hash])
	}

	var setCode, number string
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return deck.RawEntry{}, lineError(DialectDeckstats, lineNo, "unterminated printing bracket in %q", rest)
		}
		printing := rest[1:end]
		setCode, number, _ = strings.Cut(printing, "#")
		setCode = strings.TrimSpace(setCode)
		number = strings.TrimSpace(number)
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest == "" {
		return deck.RawEntry{}, lineError(DialectDeckstats, lineNo, "missing card name")
	}

	entry := newEntry(1, rest, section)
	entry.SetHint = setCode
	entry.CollectorHint = number
	return entry, nil
}

func commentSection(comment string) deck.Section {
	switch strings.ToLower(strings.TrimSpace(comment)) {
	case "sideboard":
		return deck.SectionSide
	case "maybeboard":
		return deck.SectionMaybe
	}
	return deck.SectionMain
}
