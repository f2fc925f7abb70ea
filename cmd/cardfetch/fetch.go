package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/cardfetch/internal/config"
	"github.com/ramonehamilton/cardfetch/internal/logging"
	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/artwork"
	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/scryfall"
	"github.com/ramonehamilton/cardfetch/internal/mtg/catalog"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckfetch"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckimport"
	"github.com/ramonehamilton/cardfetch/internal/storage"
)

type fetchOptions struct {
	ignoreSetAndCollector bool
	preferOlderSets       bool
	preferSets            []string
	preferShowcase        bool
	preferExtraArt        bool
	tokens                bool

	offline        bool
	catalogDB      string
	frontDir       string
	doubleSidedDir string
	noDownload     bool
	watch          bool
	concurrency    int
}

func newFetchCmd(g *globalOptions) *cobra.Command {
	o := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <deck_path> <format>",
		Short: "Resolve a decklist and download its artwork",
		Long: `Resolve every card in a decklist to one printing and download the artwork.

Cards go to the front directory, sideboard and maybeboard cards to
subdirectories of it, and the backs of double-sided cards to the
double-sided directory. Run "cardfetch formats" for the accepted formats.`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			var names []string
			for _, d := range deckimport.Dialects() {
				names = append(names, string(d))
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g.cfg, o, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&o.ignoreSetAndCollector, "ignore_set_and_collector_number", "i", false, "Ignore set and collector number hints in the decklist")
	flags.BoolVar(&o.preferOlderSets, "prefer_older_sets", false, "Prefer the oldest printing instead of the newest")
	flags.StringArrayVarP(&o.preferSets, "prefer_set", "s", nil, "Prefer printings from this set code (repeatable, earlier wins)")
	flags.BoolVar(&o.preferShowcase, "prefer_showcase", false, "Prefer showcase printings")
	flags.BoolVar(&o.preferExtraArt, "prefer_extra_art", false, "Prefer extended art, borderless and full art printings")
	flags.BoolVar(&o.tokens, "tokens", false, "Also fetch the tokens the deck's cards create")

	flags.BoolVar(&o.offline, "offline", false, "Use the local catalog instead of the Scryfall API")
	flags.StringVar(&o.catalogDB, "catalog-db", "", "Local catalog database path")
	flags.StringVar(&o.frontDir, "front-dir", "", "Directory for front faces")
	flags.StringVar(&o.doubleSidedDir, "double-sided-dir", "", "Directory for back faces of double-sided cards")
	flags.BoolVar(&o.noDownload, "no-download", false, "Resolve only, do not download artwork")
	flags.BoolVar(&o.watch, "watch", false, "Re-run whenever the deck file changes")
	flags.IntVar(&o.concurrency, "concurrency", 0, "Parallel catalog lookups")

	return cmd
}

// applyFlags overrides config values with the flags the user set.
func (o *fetchOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	r := &cfg.Resolve

	if flags.Changed("ignore_set_and_collector_number") {
		r.IgnoreSetAndCollector = o.ignoreSetAndCollector
	}
	if flags.Changed("prefer_older_sets") {
		r.PreferOlderSets = o.preferOlderSets
	}
	if flags.Changed("prefer_set") {
		r.PreferSets = o.preferSets
	}
	if flags.Changed("prefer_showcase") {
		r.PreferShowcase = o.preferShowcase
	}
	if flags.Changed("prefer_extra_art") {
		r.PreferExtraArt = o.preferExtraArt
	}
	if flags.Changed("tokens") {
		r.Tokens = o.tokens
	}
	if flags.Changed("concurrency") {
		r.Concurrency = o.concurrency
	}

	if o.offline {
		cfg.Catalog.Source = config.SourceLocal
	}
	if o.catalogDB != "" {
		cfg.Catalog.DBPath = o.catalogDB
	}
	if o.frontDir != "" {
		cfg.Output.FrontDir = o.frontDir
	}
	if o.doubleSidedDir != "" {
		cfg.Output.DoubleSidedDir = o.doubleSidedDir
	}
	if o.noDownload {
		cfg.Output.Download = false
	}
}

func runFetch(cmd *cobra.Command, base *config.Config, o *fetchOptions, deckPath, format string) error {
	dialect, err := deckimport.ParseDialect(format)
	if err != nil {
		return err
	}

	cfg := *base
	o.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, err := newScryfallClient(&cfg)
	if err != nil {
		return err
	}

	cat, closeCatalog, err := openCatalog(ctx, &cfg, client)
	if err != nil {
		return err
	}
	defer closeCatalog()

	var downloader *artwork.Downloader
	if cfg.Output.Download {
		rateLimit, _ := cfg.GetRateLimit()
		downloader = artwork.NewDownloader(client, artwork.Options{
			FrontDir:       filepath.Clean(cfg.Output.FrontDir),
			DoubleSidedDir: filepath.Clean(cfg.Output.DoubleSidedDir),
			RateLimit:      rateLimit,
		}, logging.GetLogger("artwork"))
	}

	svc := deckfetch.NewService(cat, downloader, deckfetch.Options{
		Concurrency: cfg.Resolve.Concurrency,
	}, logging.GetLogger("deckfetch"))

	req := deckfetch.Request{
		Path:     deckPath,
		Dialect:  dialect,
		Prefs:    cfg.Preferences(),
		Download: cfg.Output.Download,
	}

	out := newSummaryWriter(cmd.OutOrStdout())

	if o.watch {
		debounce, _ := cfg.GetDebounce()
		err := svc.Watch(ctx, req, debounce, func(report *deckfetch.Report, err error) {
			out.Print(report, err)
		})
		stats := svc.Metrics().Stats()
		logger := logging.GetLogger("fetch")
		logger.Info().
			Uint64("runs", stats.Runs).
			Uint64("failed_runs", stats.FailedRuns).
			Uint64("lookups", stats.Lookups).
			Float64("lookup_p95_ms", stats.LookupLatency.P95).
			Str("uptime", stats.Uptime).
			Msg("Stopped watching")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	report, err := svc.Run(ctx, req)
	out.Print(report, err)
	return err
}

// openCatalog returns the catalog selected by cfg and a function releasing it.
func openCatalog(ctx context.Context, cfg *config.Config, client *scryfall.Client) (catalog.Client, func(), error) {
	if cfg.Catalog.Source != config.SourceLocal {
		return scryfall.NewCatalog(client, logging.GetLogger("scryfall")), func() {}, nil
	}

	db, err := storage.Open(storage.DefaultConfig(cfg.Catalog.DBPath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local catalog: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger := logging.GetLogger("storage")
			logger.Warn().Err(err).Msg("Failed to close catalog database")
		}
	}

	local := storage.NewCatalog(db)
	last, err := local.LastImport(ctx)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	if last == nil {
		closeDB()
		return nil, nil, fmt.Errorf("local catalog %s is empty; run \"cardfetch catalog import\" first", cfg.Catalog.DBPath)
	}

	return local, closeDB, nil
}
