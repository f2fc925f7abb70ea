package deckimport

import (
	"regexp"
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

var (
	// "1x Ashnod's Altar ..." - quantity with optional "x"
	archidektCountRegex = regexp.MustCompile(`^(\d+)[xX]?\s+(.+)$`)

	// "Ashnod's Altar (ema) 218"
	archidektPrintingRegex = regexp.MustCompile(`^(.+?)\s+\(([A-Za-z0-9]+)\)\s+(\S+)$`)

	archidektHeaderRegex = regexp.MustCompile(`(?i)^(mainboard|main|deck|commander|sideboard|maybeboard)\s*:?$`)
)

// archidektParser parses the Archidekt text export.
//
//	1x Agadeem's Awakening // Agadeem, the Undercrypt (znr) 90 [Resilience,Land]
//	1x Ancient Cornucopia (big) 16 [Maybeboard{noDeck}{noPrice},Mana Advantage]
//	1x Ashnod's Altar (ema) 218 *F* [Mana Advantage]
//	2x Boseiju Reaches Skyward // Branch of Boseiju (neo) 177 [Ramp] ^Have,#37d67a^
//
// Category tags override the positional section: a "Maybeboard" tag moves
// the card to the maybeboard and a "Sideboard" tag to the sideboard.
type archidektParser struct{}

func (archidektParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var entries []deck.RawEntry
	section := deck.SectionMain

	for i, line := range splitLines(input) {
		lineNo := i + 1

		if line == "" {
			continue
		}

		if m := archidektHeaderRegex.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "sideboard":
				section = deck.SectionSide
			case "maybeboard":
				section = deck.SectionMaybe
			default:
				section = deck.SectionMain
			}
			continue
		}

		m := archidektCountRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(DialectArchidekt, lineNo, "could not parse %q", line)
		}

		quantity, err := parseQuantity(DialectArchidekt, lineNo, m[1])
		if err != nil {
			return nil, err
		}

		entry, err := parseArchidektCard(lineNo, m[2], section)
		if err != nil {
			return nil, err
		}
		entry.Quantity = quantity
		entries = append(entries, entry)
	}

	return requireEntries(DialectArchidekt, entries)
}

// parseArchidektCard parses everything after the quantity.
func parseArchidektCard(lineNo int, rest string, section deck.Section) (deck.RawEntry, error) {
	var tags []string

	if open := strings.Index(rest, "["); open >= 0 {
		end := strings.Index(rest[open:], "]")
		if end < 0 {
			return deck.RawEntry{}, lineError(DialectArchidekt, lineNo, "unterminated tag list in %q", rest)
		}
		tags = strings.Split(rest[open+1:open+end], ",")
		rest = rest[:open] + rest[open+end+1:]
	}

	// Collection markers such as "^Have,#37d67a^" carry no card data.
	if caret := strings.Index(rest, "^"); caret >= 0 {
		if strings.Count(rest[caret:], "^") < 2 {
			return deck.RawEntry{}, lineError(DialectArchidekt, lineNo, "unterminated marker in %q", rest)
		}
		rest = rest[:caret]
	}

	finish := deck.FinishAny
	for _, marker := range []string{"*F*", "*E*"} {
		if strings.Contains(rest, marker) {
			finish = deck.FinishFoil
			rest = strings.ReplaceAll(rest, marker, "")
		}
	}
	rest = strings.TrimSpace(rest)

	name, setCode, number := rest, "", ""
	if m := archidektPrintingRegex.FindStringSubmatch(rest); m != nil {
		name, setCode, number = m[1], m[2], m[3]
	}
	if strings.TrimSpace(name) == "" {
		return deck.RawEntry{}, lineError(DialectArchidekt, lineNo, "missing card name")
	}

	entry := newEntry(1, name, tagSection(tags, section))
	entry.SetHint = setCode
	entry.CollectorHint = number
	entry.FinishHint = finish
	return entry, nil
}

// tagSection applies board overrides from Archidekt category tags. Tags may
// carry flags in braces, e.g. "Maybeboard{noDeck}{noPrice}".
func tagSection(tags []string, section deck.Section) deck.Section {
	for _, tag := range tags {
		if brace := strings.Index(tag, "{"); brace >= 0 {
			tag = tag[:brace]
		}
		tag = strings.ToLower(strings.TrimSpace(tag))

		if strings.Contains(tag, "maybeboard") {
			return deck.SectionMaybe
		}
		if tag == "sideboard" {
			section = deck.SectionSide
		}
	}
	return section
}
