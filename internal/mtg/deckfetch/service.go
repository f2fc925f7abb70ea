// Package deckfetch runs the full pipeline: parse a decklist, normalize it,
// resolve every entry to a printing, add tokens and download artwork.
package deckfetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/cardfetch/internal/metrics"
	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/artwork"
	"github.com/ramonehamilton/cardfetch/internal/mtg/catalog"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckimport"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
	"github.com/ramonehamilton/cardfetch/internal/mtg/tokens"
)

// DefaultConcurrency is the number of catalog lookups in flight at once.
const DefaultConcurrency = 4

// UnresolvedError lists every deck card that matched no printing.
type UnresolvedError struct {
	Names []string
}

// Error implements the error interface for UnresolvedError.
func (e *UnresolvedError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("card not found: %s", e.Names[0])
	}
	return fmt.Sprintf("%d cards not found: %s", len(e.Names), strings.Join(e.Names, ", "))
}

// IsUnresolved returns true if err is or wraps an UnresolvedError.
func IsUnresolved(err error) bool {
	var ue *UnresolvedError
	return errors.As(err, &ue)
}

// Options configures a Service.
type Options struct {
	// Concurrency bounds parallel catalog lookups. Values below 1 use
	// DefaultConcurrency.
	Concurrency int
}

// Service wires the pipeline stages together.
type Service struct {
	catalog    catalog.Client
	expander   *tokens.Expander
	downloader *artwork.Downloader
	options    Options
	metrics    *metrics.PipelineMetrics
	logger     zerolog.Logger
}

// NewService creates a Service. downloader may be nil when artwork is never
// requested.
func NewService(cat catalog.Client, downloader *artwork.Downloader, options Options, logger zerolog.Logger) *Service {
	if options.Concurrency < 1 {
		options.Concurrency = DefaultConcurrency
	}
	return &Service{
		catalog:    cat,
		expander:   tokens.NewExpander(cat, logger),
		downloader: downloader,
		options:    options,
		metrics:    metrics.NewPipelineMetrics(),
		logger:     logger,
	}
}

// Metrics returns counters accumulated over every run of this Service.
func (s *Service) Metrics() *metrics.PipelineMetrics {
	return s.metrics
}

// Request describes one pipeline run.
type Request struct {
	// Path is read when Input is nil.
	Path    string
	Input   []byte
	Dialect deckimport.Dialect
	Prefs   printing.Preferences

	// Download writes artwork for the resolved cards and tokens.
	Download bool
}

// Report is the outcome of a run.
type Report struct {
	RunID       string
	Entries     []deck.DeckEntry
	Resolutions []printing.Resolution
	Tokens      []printing.Resolution
	Warnings    []tokens.Warning

	// Unavailable names the cards whose catalog lookup failed.
	Unavailable []string

	// Lookups summarizes this run's catalog lookup latency.
	Lookups metrics.LatencyStats

	Artwork  *artwork.Result
	Duration time.Duration
}

// All returns the card resolutions followed by the token resolutions.
func (r *Report) All() []printing.Resolution {
	all := make([]printing.Resolution, 0, len(r.Resolutions)+len(r.Tokens))
	all = append(all, r.Resolutions...)
	return append(all, r.Tokens...)
}

// Run executes the pipeline. A deck with unresolved cards returns the
// partial report together with an *UnresolvedError, and nothing is
// downloaded.
func (s *Service) Run(ctx context.Context, req Request) (report *Report, err error) {
	start := time.Now()
	report = &Report{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.RecordRun(err)
	}()

	input := req.Input
	if input == nil {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return report, fmt.Errorf("failed to read deck: %w", err)
		}
		input = data
	}

	raw, err := deckimport.Parse(req.Dialect, input)
	if err != nil {
		return report, err
	}

	entries, err := deck.Normalize(raw)
	if err != nil {
		return report, fmt.Errorf("failed to normalize deck: %w", err)
	}
	report.Entries = entries
	logger.Info().
		Str("dialect", string(req.Dialect)).
		Int("raw_entries", len(raw)).
		Int("entries", len(entries)).
		Msg("Parsed deck")

	latency := metrics.NewHistogram(len(entries))
	candidates, unavailable, err := s.lookupAll(ctx, logger, entries, latency)
	if err != nil {
		return report, err
	}
	report.Unavailable = unavailable
	report.Lookups = latency.Stats()

	report.Resolutions, err = printing.ResolveAll(entries, candidates, req.Prefs)
	for _, res := range report.Resolutions {
		logger.Debug().Str("card", res.Entry.DisplayName()).Str("printing", res.Printing.String()).Msg("Resolved")
	}
	if err != nil {
		unresolved := printing.NotFoundNames(err)
		if len(unresolved) == 0 {
			return report, err
		}
		return report, &UnresolvedError{Names: unresolved}
	}

	report.Tokens, report.Warnings, err = s.expander.Expand(ctx, report.Resolutions, req.Prefs)
	if err != nil {
		return report, err
	}

	if req.Download {
		if s.downloader == nil {
			return report, errors.New("artwork download requested but no downloader is configured")
		}
		report.Artwork, err = s.downloader.Download(ctx, report.All())
		if err != nil {
			return report, fmt.Errorf("failed to download artwork: %w", err)
		}
	}

	logger.Info().
		Int("cards", len(report.Resolutions)).
		Int("tokens", len(report.Tokens)).
		Int("warnings", len(report.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("Deck resolved")

	return report, nil
}

// lookupAll fetches candidates for each distinct card name once. Names whose
// lookup failed are returned separately and map to no candidates.
func (s *Service) lookupAll(ctx context.Context, logger zerolog.Logger, entries []deck.DeckEntry, latency *metrics.Histogram) (map[string][]printing.Printing, []string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		key := printing.Key(entry.Name)
		if !seen[key] {
			seen[key] = true
			names = append(names, entry.Name)
		}
	}

	results := make([][]printing.Printing, len(names))
	failed := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			started := time.Now()
			found, err := s.catalog.Lookup(gctx, name)
			elapsed := time.Since(started)
			latency.Record(elapsed)
			s.metrics.RecordLookup(elapsed, err)

			switch {
			case err == nil:
				results[i] = found
			case catalog.IsUnavailable(err) && ctx.Err() == nil:
				logger.Warn().Err(err).Str("card", name).Msg("Catalog lookup failed, treating card as not found")
				failed[i] = true
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	candidates := make(map[string][]printing.Printing, len(names))
	var unavailable []string
	for i, name := range names {
		candidates[printing.Key(name)] = results[i]
		if failed[i] {
			unavailable = append(unavailable, name)
		}
	}
	return candidates, unavailable, nil
}
