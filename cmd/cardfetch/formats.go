package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deckimport"
)

var formatDescriptions = map[deckimport.Dialect]string{
	deckimport.DialectSimple:       "one card name per line",
	deckimport.DialectMTGA:         "MTG Arena export, 4 Name (SET) 123",
	deckimport.DialectMTGO:         "MTGO .txt export, 4 Name",
	deckimport.DialectArchidekt:    "Archidekt text export with [Category] tags",
	deckimport.DialectDeckstats:    "deckstats.net export with //section comments",
	deckimport.DialectMoxfield:     "Moxfield export, 1 Name (SET) 123 *F*",
	deckimport.DialectScryfallJSON: "Scryfall deck JSON export",
	deckimport.DialectMPCFillXML:   "MPCFill print order XML",
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported decklist formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, d := range deckimport.Dialects() {
				fmt.Fprintf(out, "%-14s %s\n", d, formatDescriptions[d])
			}
		},
	}
}
