// Package tokens adds the tokens created by a deck's cards.
package tokens

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ramonehamilton/cardfetch/internal/mtg/catalog"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// Warning records a token that could not be added.
type Warning struct {
	Token  string
	Source string
	Err    error
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	return fmt.Sprintf("token %q (from %s): %v", w.Token, w.Source, w.Err)
}

// Expander resolves related tokens through a catalog.
type Expander struct {
	catalog catalog.Client
	logger  zerolog.Logger
}

// NewExpander creates an Expander.
func NewExpander(catalog catalog.Client, logger zerolog.Logger) *Expander {
	return &Expander{catalog: catalog, logger: logger}
}

// Expand returns one resolution per distinct token referenced by resolved,
// in the order tokens are first referenced. It does nothing unless
// prefs.IncludeTokens is set. Tokens that cannot be looked up or resolved
// are reported as warnings; only context cancellation is an error.
func (x *Expander) Expand(ctx context.Context, resolved []printing.Resolution, prefs printing.Preferences) ([]printing.Resolution, []Warning, error) {
	if !prefs.IncludeTokens {
		return nil, nil, nil
	}

	var tokens []printing.Resolution
	var warnings []Warning
	seen := make(map[string]bool)

	for _, res := range resolved {
		for _, name := range res.Printing.RelatedTokenNames {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			entry := deck.DeckEntry{Name: strings.TrimSpace(name), Quantity: 1, Section: deck.SectionMain}
			source := res.Printing.Name

			candidates, err := x.catalog.LookupTokens(ctx, entry.Name)
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				warnings = append(warnings, x.warn(entry.Name, source, err))
				continue
			}

			p, err := printing.Resolve(entry, candidates, prefs)
			if err != nil {
				warnings = append(warnings, x.warn(entry.Name, source, err))
				continue
			}

			tokens = append(tokens, printing.Resolution{
				Entry:    entry,
				Printing: p,
				Token:    true,
				Source:   source,
			})
		}
	}

	return tokens, warnings, nil
}

func (x *Expander) warn(token, source string, err error) Warning {
	x.logger.Warn().Err(err).Str("token", token).Str("source", source).Msg("Dropping token")
	return Warning{Token: token, Source: source, Err: err}
}
