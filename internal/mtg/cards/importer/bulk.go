// Package importer fills the offline catalog from Scryfall bulk data.
package importer

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/scryfall"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
	"github.com/ramonehamilton/cardfetch/internal/storage"
)

// BulkType is the Scryfall bulk file holding one entry per printing.
const BulkType = "default_cards"

// BulkImporter handles importing card data from Scryfall bulk files.
type BulkImporter struct {
	client  *scryfall.Client
	catalog *storage.Catalog
	options BulkImportOptions
	logger  zerolog.Logger
}

// BulkImportOptions configures the bulk import process.
type BulkImportOptions struct {
	// BatchSize is the number of printings to insert per transaction.
	BatchSize int

	// DataDir is the directory to store downloaded bulk files.
	DataDir string

	// MaxAge is the maximum age of a bulk file before re-downloading.
	MaxAge time.Duration

	// Progress is an optional callback receiving the running import count.
	Progress func(imported int)

	// Force imports even when the catalog already holds the latest bulk file.
	Force bool
}

// DefaultBulkImportOptions returns sensible default options.
func DefaultBulkImportOptions() BulkImportOptions {
	return BulkImportOptions{
		BatchSize: 500,
		DataDir:   filepath.Join(xdg.CacheHome, "cardfetch", "bulk"),
		MaxAge:    24 * time.Hour,
	}
}

// NewBulkImporter creates a new bulk importer.
func NewBulkImporter(client *scryfall.Client, catalog *storage.Catalog, options BulkImportOptions, logger zerolog.Logger) *BulkImporter {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBulkImportOptions().BatchSize
	}
	return &BulkImporter{
		client:  client,
		catalog: catalog,
		options: options,
		logger:  logger,
	}
}

// ImportStats contains statistics about the import process.
type ImportStats struct {
	TotalCards     int
	ImportedCards  int
	SkippedCards   int
	ErrorCards     int
	UpToDate       bool
	Duration       time.Duration
	BulkFileURL    string
	BulkFileSize   int64
	DownloadTime   time.Duration
	ProcessingTime time.Duration
}

// Import downloads the latest default_cards file and loads it into the
// catalog. Nothing is downloaded when the catalog is already current.
func (bi *BulkImporter) Import(ctx context.Context) (*ImportStats, error) {
	startTime := time.Now()
	stats := &ImportStats{}

	if err := os.MkdirAll(bi.options.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	bi.logger.Info().Msg("Fetching bulk data information from Scryfall")

	bulkData, err := bi.client.GetBulkData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk data info: %w", err)
	}

	var defaultCards *scryfall.BulkData
	for i := range bulkData.Data {
		if bulkData.Data[i].Type == BulkType {
			defaultCards = &bulkData.Data[i]
			break
		}
	}
	if defaultCards == nil {
		return nil, fmt.Errorf("%s bulk data not found", BulkType)
	}

	stats.BulkFileURL = defaultCards.DownloadURI
	stats.BulkFileSize = defaultCards.Size

	if !bi.options.Force {
		last, err := bi.catalog.LastImport(ctx)
		if err != nil {
			return nil, err
		}
		if last != nil && !last.BulkUpdatedAt.Before(defaultCards.UpdatedAt) {
			bi.logger.Info().Time("updatedAt", last.BulkUpdatedAt).Msg("Catalog is up to date")
			stats.UpToDate = true
			stats.Duration = time.Since(startTime)
			return stats, nil
		}
	}

	downloadStart := time.Now()
	filePath, err := bi.downloadBulkFile(ctx, defaultCards)
	if err != nil {
		return nil, fmt.Errorf("failed to download bulk file: %w", err)
	}
	stats.DownloadTime = time.Since(downloadStart)

	processStart := time.Now()
	if err := bi.ImportFile(ctx, filePath, stats); err != nil {
		return nil, err
	}
	stats.ProcessingTime = time.Since(processStart)

	if err := bi.catalog.RecordImport(ctx, storage.ImportRecord{
		Source:        BulkType,
		BulkUpdatedAt: defaultCards.UpdatedAt,
		PrintingCount: stats.ImportedCards,
	}); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)

	bi.logger.Info().
		Int("total", stats.TotalCards).
		Int("imported", stats.ImportedCards).
		Int("skipped", stats.SkippedCards).
		Int("errors", stats.ErrorCards).
		Dur("download", stats.DownloadTime).
		Dur("processing", stats.ProcessingTime).
		Msg("Import complete")

	return stats, nil
}

// downloadBulkFile downloads the bulk file unless a fresh copy exists.
func (bi *BulkImporter) downloadBulkFile(ctx context.Context, bulkInfo *scryfall.BulkData) (string, error) {
	fileName := filepath.Base(bulkInfo.DownloadURI)
	filePath := filepath.Join(bi.options.DataDir, fileName)

	if !bi.options.Force {
		if info, err := os.Stat(filePath); err == nil {
			if age := time.Since(info.ModTime()); age < bi.options.MaxAge {
				bi.logger.Debug().Dur("age", age.Round(time.Minute)).Str("path", filePath).Msg("Using existing bulk file")
				return filePath, nil
			}
		}
	}

	bi.logger.Info().Str("file", fileName).Int64("bytes", bulkInfo.Size).Msg("Downloading bulk file")

	body, err := bi.client.Download(ctx, bulkInfo.DownloadURI)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	tmpFile, err := os.CreateTemp(bi.options.DataDir, "bulk-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	written, err := io.Copy(tmpFile, body)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	bi.logger.Debug().Int64("bytes", written).Msg("Downloaded bulk file")
	return filePath, nil
}

// ImportLocal loads a bulk file that was downloaded by hand and records it
// as an import of that file's modification time.
func (bi *BulkImporter) ImportLocal(ctx context.Context, filePath string) (*ImportStats, error) {
	startTime := time.Now()
	stats := &ImportStats{BulkFileURL: filePath}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bulk file: %w", err)
	}
	stats.BulkFileSize = info.Size()

	if err := bi.ImportFile(ctx, filePath, stats); err != nil {
		return nil, err
	}
	stats.ProcessingTime = time.Since(startTime)

	if err := bi.catalog.RecordImport(ctx, storage.ImportRecord{
		Source:        filepath.Base(filePath),
		BulkUpdatedAt: info.ModTime(),
		PrintingCount: stats.ImportedCards,
	}); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// ImportFile loads a bulk file (plain or gzip-compressed JSON array).
func (bi *BulkImporter) ImportFile(ctx context.Context, filePath string, stats *ImportStats) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return bi.ImportReader(ctx, file, stats)
}

// ImportReader streams cards out of a bulk JSON array without holding the
// whole file in memory.
func (bi *BulkImporter) ImportReader(ctx context.Context, r io.Reader, stats *ImportStats) error {
	reader, err := decompress(r)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(reader)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read bulk file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("bulk file is not a JSON array")
	}

	batch := make([]printing.Printing, 0, bi.options.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := bi.catalog.SavePrintings(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		stats.ImportedCards += len(batch)
		if bi.options.Progress != nil {
			bi.options.Progress(stats.ImportedCards)
		}
		batch = batch[:0]
		return nil
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.TotalCards++

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode card %d: %w", stats.TotalCards, err)
		}

		var card scryfall.Card
		if err := json.Unmarshal(raw, &card); err != nil || card.ID == "" {
			stats.ErrorCards++
			bi.logger.Debug().Err(err).Int("index", stats.TotalCards).Msg("Skipping malformed card")
			continue
		}

		// Only English paper printings are useful for proxies.
		if card.Digital || (card.Lang != "" && card.Lang != "en") {
			stats.SkippedCards++
			continue
		}

		batch = append(batch, card.ToPrinting())
		if len(batch) >= bi.options.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read end of bulk file: %w", err)
	}

	return flush()
}

// decompress transparently unwraps gzip input.
func decompress(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	}
	return buffered, nil
}
