package deckimport

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
)

// mpcfillXMLParser parses an MPCFill print order.
//
//	<order>
//	  <details><quantity>3</quantity><bracket>18</bracket></details>
//	  <fronts>
//	    <card><id>1a2b</id><slots>0,1</slots><name>Lightning Bolt.png</name></card>
//	    <card><id>3c4d</id><slots>2</slots><name>Delver of Secrets.png</name></card>
//	  </fronts>
//	  <backs>
//	    <card><id>5e6f</id><slots>2</slots><name>Insectile Aberration.png</name></card>
//	  </backs>
//	</order>
//
// Quantities come from the number of slots a front image fills. Print
// orders have no sideboard, so every card is in the main deck.
type mpcfillXMLParser struct{}

type mpcfillFront struct {
	name  string
	back  string
	slots []int
}

func (mpcfillXMLParser) Parse(input []byte) ([]deck.RawEntry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(input); err != nil {
		return nil, &FormatError{Dialect: DialectMPCFillXML, Reason: "invalid XML document", Err: err}
	}

	order := doc.SelectElement("order")
	if order == nil {
		return nil, mpcfillError("missing <order> element")
	}

	quantityEl := order.FindElement("./details/quantity")
	if quantityEl == nil {
		return nil, mpcfillError("missing <details><quantity> element")
	}
	total, err := strconv.Atoi(strings.TrimSpace(quantityEl.Text()))
	if err != nil || total < 1 {
		return nil, mpcfillError(fmt.Sprintf("invalid order quantity %q", quantityEl.Text()))
	}

	frontsEl := order.SelectElement("fronts")
	if frontsEl == nil {
		return nil, mpcfillError("missing <fronts> element")
	}

	owner := make([]*mpcfillFront, total)
	var fronts []*mpcfillFront

	for _, card := range frontsEl.SelectElements("card") {
		name, slots, err := readMPCFillCard(card, total)
		if err != nil {
			return nil, err
		}

		front := &mpcfillFront{name: name, slots: slots}
		for _, slot := range slots {
			if owner[slot] != nil {
				return nil, mpcfillError(fmt.Sprintf("slot %d is used by both %q and %q", slot, owner[slot].name, name))
			}
			owner[slot] = front
		}
		fronts = append(fronts, front)
	}

	if backsEl := order.SelectElement("backs"); backsEl != nil {
		for _, card := range backsEl.SelectElements("card") {
			name, slots, err := readMPCFillCard(card, total)
			if err != nil {
				return nil, err
			}

			front := owner[slots[0]]
			if front == nil {
				return nil, mpcfillError(fmt.Sprintf("back %q fills slot %d which has no front", name, slots[0]))
			}
			if front.back == "" {
				front.back = name
			}
		}
	}

	sort.SliceStable(fronts, func(i, j int) bool {
		return fronts[i].slots[0] < fronts[j].slots[0]
	})

	entries := make([]deck.RawEntry, 0, len(fronts))
	for _, front := range fronts {
		entry := newEntry(len(front.slots), front.name, deck.SectionMain)
		if entry.AltName == "" {
			entry.AltName = front.back
		}
		entries = append(entries, entry)
	}

	return requireEntries(DialectMPCFillXML, entries)
}

// readMPCFillCard reads the name and sorted slot list of a <card> element.
func readMPCFillCard(card *etree.Element, total int) (string, []int, error) {
	nameEl := card.SelectElement("name")
	if nameEl == nil || strings.TrimSpace(nameEl.Text()) == "" {
		return "", nil, mpcfillError("card is missing <name>")
	}
	name := imageCardName(nameEl.Text())

	slotsEl := card.SelectElement("slots")
	if slotsEl == nil || strings.TrimSpace(slotsEl.Text()) == "" {
		return "", nil, mpcfillError(fmt.Sprintf("card %q is missing <slots>", name))
	}

	var slots []int
	for _, field := range strings.Split(slotsEl.Text(), ",") {
		slot, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return "", nil, mpcfillError(fmt.Sprintf("card %q has invalid slot %q", name, field))
		}
		if slot < 0 || slot >= total {
			return "", nil, mpcfillError(fmt.Sprintf("card %q slot %d is outside the order of %d cards", name, slot, total))
		}
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	return name, slots, nil
}

// imageCardName turns an uploaded image file name into a card name.
func imageCardName(fileName string) string {
	fileName = strings.TrimSpace(fileName)
	// "Dr. Julius Jumblemorph" has a dot but no extension.
	if ext := filepath.Ext(fileName); ext != "" && len(ext) <= 5 && !strings.Contains(ext, " ") {
		fileName = strings.TrimSuffix(fileName, ext)
	}
	return strings.TrimSpace(fileName)
}

func mpcfillError(reason string) *FormatError {
	return &FormatError{Dialect: DialectMPCFillXML, Reason: reason}
}
