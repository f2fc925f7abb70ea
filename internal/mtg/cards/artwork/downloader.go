// Package artwork saves card images laid out for the card maker: one file
// per copy, with back faces in a parallel double-sided directory.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/scryfall"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// maxImageSize caps a single image download.
const maxImageSize = 64 << 20

// Fetcher opens an image stream. *scryfall.Client implements it.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures where images are written.
type Options struct {
	FrontDir       string
	DoubleSidedDir string

	// RateLimit is the minimum delay between image requests.
	RateLimit time.Duration
}

// DefaultOptions mirrors the card maker's game/ directory layout.
func DefaultOptions() Options {
	return Options{
		FrontDir:       filepath.Join("game", "front"),
		DoubleSidedDir: filepath.Join("game", "double_sided"),
		RateLimit:      100 * time.Millisecond,
	}
}

// Downloader writes artwork for resolved deck entries.
type Downloader struct {
	fetcher Fetcher
	options Options
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(fetcher Fetcher, options Options, logger zerolog.Logger) *Downloader {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(options.RateLimit), 1)
	}
	return &Downloader{
		fetcher: fetcher,
		options: options,
		limiter: limiter,
		logger:  logger,
	}
}

// Result summarizes a download run.
type Result struct {
	Written   int
	Unchanged int
	Files     []string
}

// Download saves every copy of every resolution. Entries are numbered from 1
// in order so file names sort like the deck.
func (d *Downloader) Download(ctx context.Context, resolutions []printing.Resolution) (*Result, error) {
	result := &Result{}

	for i, res := range resolutions {
		index := i + 1
		subdir := sectionDir(res)
		name := CleanName(res.Entry.DisplayName())
		if name == "" {
			name = CleanName(res.Printing.Name)
		}

		if res.Printing.FrontImageURL == "" {
			return result, fmt.Errorf("%s has no image", res.Printing)
		}
		if err := d.save(ctx, result, res.Printing.FrontImageURL, filepath.Join(d.options.FrontDir, subdir), index, name, res.Entry.Quantity); err != nil {
			return result, fmt.Errorf("failed to save %s: %w", res.Printing, err)
		}

		if scryfall.IsDoubleSided(res.Printing.Layout) && res.Printing.BackImageURL != "" {
			if err := d.save(ctx, result, res.Printing.BackImageURL, filepath.Join(d.options.DoubleSidedDir, subdir), index, name, res.Entry.Quantity); err != nil {
				return result, fmt.Errorf("failed to save back of %s: %w", res.Printing, err)
			}
		}
	}

	return result, nil
}

// save fetches one image and writes it once per copy.
func (d *Downloader) save(ctx context.Context, result *Result, url, dir string, index int, name string, copies int) error {
	image, err := d.fetch(ctx, url)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	digest := blake2b.Sum256(image)
	for n := 1; n <= copies; n++ {
		path := filepath.Join(dir, FileName(index, name, n))
		result.Files = append(result.Files, path)

		if sameContent(path, digest) {
			result.Unchanged++
			continue
		}
		if err := writeFile(dir, path, image); err != nil {
			return err
		}
		result.Written++
		d.logger.Debug().Str("path", path).Msg("Saved artwork")
	}
	return nil
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := d.fetcher.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	image, err := io.ReadAll(io.LimitReader(body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image from %s", url)
	}
	return image, nil
}

// writeFile writes through a temp file so readers never see a partial image.
func writeFile(dir, path string, data []byte) error {
	tempFile, err := os.CreateTemp(dir, "download-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, bytes.NewReader(data)); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save image: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}

func sameContent(path string, digest [blake2b.Size256]byte) bool {
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return blake2b.Sum256(existing) == digest
}

// sectionDir returns the subdirectory for a resolution's section. Tokens
// always go with the main deck.
func sectionDir(res printing.Resolution) string {
	if res.Token {
		return ""
	}
	switch res.Entry.Section {
	case deck.SectionSide:
		return "sideboard"
	case deck.SectionMaybe:
		return "maybeboard"
	}
	return ""
}

// FileName returns "<index><name><copy>.png".
func FileName(index int, cleanName string, n int) string {
	return fmt.Sprintf("%d%s%d.png", index, cleanName, n)
}

// CleanName strips everything but letters, digits and underscores.
func CleanName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, name)
}
