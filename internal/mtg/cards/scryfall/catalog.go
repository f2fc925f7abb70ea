package scryfall

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ramonehamilton/cardfetch/internal/mtg/catalog"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// maxPages bounds pagination in case an API returns a next_page cycle.
const maxPages = 50

// Catalog serves printings straight from the Scryfall API.
type Catalog struct {
	client *Client
	logger zerolog.Logger
}

// NewCatalog creates an online catalog on top of client.
func NewCatalog(client *Client, logger zerolog.Logger) *Catalog {
	return &Catalog{client: client, logger: logger}
}

// Lookup implements catalog.Client. It resolves the exact name, then walks
// the card's prints search to collect every paper printing.
func (c *Catalog) Lookup(ctx context.Context, name string) ([]printing.Printing, error) {
	card, err := c.client.GetCardNamed(ctx, name)
	if err != nil {
		if IsNotFound(err) {
			c.logger.Debug().Str("card", name).Msg("Card not found on Scryfall")
			return []printing.Printing{}, nil
		}
		return nil, c.unavailable(ctx, name, err)
	}

	if card.PrintsSearchURI == "" {
		return paperPrintings([]Card{*card}), nil
	}

	cards, err := c.collect(ctx, card.PrintsSearchURI)
	if err != nil {
		return nil, c.unavailable(ctx, name, err)
	}
	if len(cards) == 0 {
		cards = []Card{*card}
	}

	printings := paperPrintings(cards)
	c.logger.Debug().Str("card", name).Int("printings", len(printings)).Msg("Looked up printings")
	return printings, nil
}

// LookupTokens implements catalog.Client.
func (c *Catalog) LookupTokens(ctx context.Context, name string) ([]printing.Printing, error) {
	query := fmt.Sprintf(`!"%s" t:token`, strings.ReplaceAll(name, `"`, ""))
	params := url.Values{
		"unique":         {"prints"},
		"include_extras": {"true"},
	}

	first, err := c.client.SearchCards(ctx, query, params)
	if err != nil {
		if IsNotFound(err) {
			return []printing.Printing{}, nil
		}
		return nil, c.unavailable(ctx, name, err)
	}

	cards := first.Data
	if first.HasMore && first.NextPage != "" {
		rest, err := c.collect(ctx, first.NextPage)
		if err != nil {
			return nil, c.unavailable(ctx, name, err)
		}
		cards = append(cards, rest...)
	}

	return paperPrintings(cards), nil
}

// collect follows next_page links starting at pageURL.
func (c *Catalog) collect(ctx context.Context, pageURL string) ([]Card, error) {
	var cards []Card
	for page := 0; pageURL != "" && page < maxPages; page++ {
		result, err := c.client.GetPage(ctx, pageURL)
		if err != nil {
			if IsNotFound(err) {
				break
			}
			return nil, err
		}
		cards = append(cards, result.Data...)

		if !result.HasMore {
			break
		}
		pageURL = result.NextPage
	}
	return cards, nil
}

// unavailable wraps transport errors; a cancelled context is returned as is.
func (c *Catalog) unavailable(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &catalog.UnavailableError{Name: name, Err: err}
}

// Compile-time check.
var _ catalog.Client = (*Catalog)(nil)

// paperPrintings converts cards, dropping digital-only printings.
func paperPrintings(cards []Card) []printing.Printing {
	printings := make([]printing.Printing, 0, len(cards))
	for _, card := range cards {
		if card.Digital {
			continue
		}
		printings = append(printings, card.ToPrinting())
	}
	return printings
}

// doubleSidedLayouts have a second face with its own image.
var doubleSidedLayouts = map[string]bool{
	"transform":          true,
	"modal_dfc":          true,
	"double_faced_token": true,
	"reversible_card":    true,
}

// IsDoubleSided reports whether layout prints art on both sides.
func IsDoubleSided(layout string) bool {
	return doubleSidedLayouts[layout]
}

// ToPrinting converts a Scryfall card into the resolver's printing model.
func (card Card) ToPrinting() printing.Printing {
	p := printing.Printing{
		ID:              card.ID,
		Name:            card.Name,
		SetCode:         strings.ToLower(card.SetCode),
		CollectorNumber: card.CollectorNumber,
		Treatment:       card.Treatment(),
		IsPromo:         card.Promo,
		IsToken:         card.IsToken(),
		Layout:          card.Layout,
		Finishes:        card.finishes(),
	}

	if released, err := time.Parse("2006-01-02", card.ReleasedAt); err == nil {
		p.ReleaseDate = released
	}

	for _, face := range card.CardFaces {
		p.FaceNames = append(p.FaceNames, face.Name)
	}

	seen := map[string]bool{strings.ToLower(card.Name): true}
	for _, part := range card.AllParts {
		key := strings.ToLower(part.Name)
		if part.Component != "token" || seen[key] {
			continue
		}
		seen[key] = true
		p.RelatedTokenNames = append(p.RelatedTokenNames, part.Name)
	}

	p.FrontImageURL = card.ImageURIs.Best()
	if p.FrontImageURL == "" && len(card.CardFaces) > 0 {
		p.FrontImageURL = card.CardFaces[0].ImageURIs.Best()
	}
	if IsDoubleSided(card.Layout) && len(card.CardFaces) > 1 {
		p.BackImageURL = card.CardFaces[1].ImageURIs.Best()
	}

	return p
}

// Treatment classifies the card frame.
func (card Card) Treatment() printing.Treatment {
	switch {
	case card.hasFrameEffect("showcase"):
		return printing.TreatmentShowcase
	case card.hasFrameEffect("extendedart"):
		return printing.TreatmentExtendedArt
	case card.BorderColor == "borderless":
		return printing.TreatmentBorderless
	case card.FullArt:
		return printing.TreatmentFullArt
	case card.hasFrameEffect("etched"):
		return printing.TreatmentEtched
	case card.Textless, card.Oversized, card.BorderColor == "gold":
		return printing.TreatmentOther
	}
	return printing.TreatmentNormal
}

// IsToken reports whether the card is a token rather than a playable card.
func (card Card) IsToken() bool {
	switch card.Layout {
	case "token", "double_faced_token", "emblem":
		return true
	}
	return strings.Contains(card.TypeLine, "Token")
}

func (card Card) hasFrameEffect(effect string) bool {
	for _, e := range card.FrameEffects {
		if e == effect {
			return true
		}
	}
	return false
}

// finishes maps Scryfall finishes; etched cards are foils.
func (card Card) finishes() []deck.Finish {
	var out []deck.Finish
	seen := make(map[deck.Finish]bool)
	for _, f := range card.Finishes {
		var finish deck.Finish
		switch f {
		case "nonfoil":
			finish = deck.FinishNonfoil
		case "foil", "etched":
			finish = deck.FinishFoil
		default:
			continue
		}
		if !seen[finish] {
			seen[finish] = true
			out = append(out, finish)
		}
	}
	return out
}
