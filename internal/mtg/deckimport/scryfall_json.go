package deckimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// scryfallDeck is the subset of a Scryfall deck builder export we need.
type scryfallDeck struct {
	Entries json.RawMessage `json:"entries"`
}

// scryfallDeckEntry is one row of a deck section.
type scryfallDeckEntry struct {
	Count      *int                `json:"count"`
	CardDigest *scryfallCardDigest `json:"card_digest"`
}

type scryfallCardDigest struct {
	Name            string `json:"name"`
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
}

// scryfallJSONParser parses the Scryfall deck builder JSON export.
//
//	{"entries": {"mainboard": [{"count": 1, "card_digest": {"name": "...", "set": "...", "collector_number": "..."}}]}}
//
// Printings in this export are exact, so their hints are pinned.
type scryfallJSONParser struct{}

func (scryfallJSONParser) Parse(input []byte) ([]deck.RawEntry, error) {
	var doc scryfallDeck
	if err := json.Unmarshal(input, &doc); err != nil {
		return nil, &FormatError{Dialect: DialectScryfallJSON, Reason: "invalid JSON document", Err: err}
	}

	raw := bytes.TrimSpace(doc.Entries)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &FormatError{Dialect: DialectScryfallJSON, Reason: `missing "entries" object`}
	}

	sections, err := decodeOrderedSections(raw)
	if err != nil {
		return nil, &FormatError{Dialect: DialectScryfallJSON, Reason: "invalid entries object", Err: err}
	}

	var entries []deck.RawEntry
	for _, s := range sections {
		section := jsonSection(s.key)
		for _, row := range s.rows {
			// Empty slots in the deck builder have a null digest.
			if row.CardDigest == nil {
				continue
			}
			if strings.TrimSpace(row.CardDigest.Name) == "" {
				return nil, &FormatError{Dialect: DialectScryfallJSON, Reason: fmt.Sprintf("entry in %q has no card name", s.key)}
			}

			quantity := 1
			if row.Count != nil {
				quantity = *row.Count
			}
			if quantity < 1 {
				return nil, &FormatError{Dialect: DialectScryfallJSON, Reason: fmt.Sprintf("%s: quantity must be positive, got %d", row.CardDigest.Name, quantity)}
			}

			entry := newEntry(quantity, row.CardDigest.Name, section)
			entry.SetHint = row.CardDigest.Set
			entry.CollectorHint = row.CardDigest.CollectorNumber
			entry.Pinned = entry.SetHint != "" || entry.CollectorHint != ""
			entries = append(entries, entry)
		}
	}

	return requireEntries(DialectScryfallJSON, entries)
}

type orderedSection struct {
	key  string
	rows []scryfallDeckEntry
}

// decodeOrderedSections decodes the entries object keeping the document
// order of its keys, which a map would lose.
func decodeOrderedSections(raw []byte) ([]orderedSection, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var sections []orderedSection
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var rows []scryfallDeckEntry
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("section %q: %w", key, err)
		}
		sections = append(sections, orderedSection{key: key, rows: rows})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return sections, nil
}

// jsonSection maps a Scryfall deck section key. "outside" holds cards
// kept outside the game (wish targets and the like) and is treated as
// sideboard. Commanders, lands and any unknown key belong to the main deck.
func jsonSection(key string) deck.Section {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "sideboard", "outside":
		return deck.SectionSide
	case "maybeboard":
		return deck.SectionMaybe
	}
	return deck.SectionMain
}
