package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/cardfetch/internal/logging"
	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/importer"
	"github.com/ramonehamilton/cardfetch/internal/storage"
)

func newCatalogCmd(g *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local card catalog used by fetch --offline",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "catalog-db", "", "Local catalog database path")

	catalogPath := func() string {
		if dbPath != "" {
			return dbPath
		}
		return g.cfg.Catalog.DBPath
	}

	cmd.AddCommand(newCatalogImportCmd(g, catalogPath), newCatalogStatusCmd(catalogPath))
	return cmd
}

func newCatalogImportCmd(g *globalOptions, catalogPath func() string) *cobra.Command {
	var force bool
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import Scryfall bulk data into the local catalog",
		Long: `Download Scryfall's default_cards bulk file and load every paper printing
into the local catalog. Nothing is downloaded when the catalog already holds
the latest file, unless --force is given. --file imports a bulk file that was
downloaded by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			path := catalogPath()
			db, err := storage.Open(storage.DefaultConfig(path))
			if err != nil {
				return fmt.Errorf("failed to open local catalog: %w", err)
			}
			defer func() { _ = db.Close() }()

			client, err := newScryfallClient(g.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			progress := startImportProgress(out, logging.GetLogger("catalog"))

			options := importer.DefaultBulkImportOptions()
			options.Force = force
			options.Progress = progress.Update
			bi := importer.NewBulkImporter(client, storage.NewCatalog(db), options, logging.GetLogger("importer"))

			var stats *importer.ImportStats
			if file != "" {
				stats, err = bi.ImportLocal(ctx, file)
			} else {
				stats, err = bi.Import(ctx)
			}
			progress.Stop(err)
			if err != nil {
				return err
			}

			if stats.UpToDate {
				fmt.Fprintf(out, "Catalog %s is already up to date\n", path)
				return nil
			}
			fmt.Fprintf(out, "Imported %s printings into %s from %s (%d skipped, %d errors) in %s\n",
				humanize.Comma(int64(stats.ImportedCards)), path, humanize.Bytes(uint64(stats.BulkFileSize)),
				stats.SkippedCards, stats.ErrorCards, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Import even if the catalog is up to date")
	cmd.Flags().StringVar(&file, "file", "", "Import a local bulk JSON file (plain or gzip) instead of downloading")
	return cmd
}

func newCatalogStatusCmd(catalogPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the local catalog holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := catalogPath()
			db, err := storage.Open(storage.DefaultConfig(path))
			if err != nil {
				return fmt.Errorf("failed to open local catalog: %w", err)
			}
			defer func() { _ = db.Close() }()

			cat := storage.NewCatalog(db)
			count, err := cat.Count(cmd.Context())
			if err != nil {
				return err
			}
			last, err := cat.LastImport(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog:   %s\n", path)
			fmt.Fprintf(out, "Printings: %d\n", count)
			if last == nil {
				fmt.Fprintln(out, "Imported:  never")
				return nil
			}
			fmt.Fprintf(out, "Imported:  %s from %s (data from %s)\n",
				last.ImportedAt.Local().Format(time.DateTime), last.Source, last.BulkUpdatedAt.Format(time.DateOnly))
			return nil
		},
	}
}
