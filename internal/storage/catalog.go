package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramonehamilton/cardfetch/internal/mtg/catalog"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

const releaseDateLayout = "2006-01-02"

// Catalog is the offline printing catalog.
type Catalog struct {
	db *DB
}

// NewCatalog creates a catalog backed by db.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// ImportRecord describes one completed bulk import.
type ImportRecord struct {
	Source        string
	BulkUpdatedAt time.Time
	PrintingCount int
	ImportedAt    time.Time
}

// SavePrintings upserts printings and their name index in one transaction.
func (c *Catalog) SavePrintings(ctx context.Context, printings []printing.Printing) error {
	if len(printings) == 0 {
		return nil
	}

	return c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		upsert, err := tx.PrepareContext(ctx, `
			INSERT INTO printings (
				id, name, face_names, set_code, collector_number, released_at, treatment,
				is_promo, is_token, layout, finishes, related_tokens, front_image_url, back_image_url
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				face_names = excluded.face_names,
				set_code = excluded.set_code,
				collector_number = excluded.collector_number,
				released_at = excluded.released_at,
				treatment = excluded.treatment,
				is_promo = excluded.is_promo,
				is_token = excluded.is_token,
				layout = excluded.layout,
				finishes = excluded.finishes,
				related_tokens = excluded.related_tokens,
				front_image_url = excluded.front_image_url,
				back_image_url = excluded.back_image_url,
				imported_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare printing upsert: %w", err)
		}
		defer func() { _ = upsert.Close() }()

		clearNames, err := tx.PrepareContext(ctx, `DELETE FROM printing_names WHERE printing_id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare name cleanup: %w", err)
		}
		defer func() { _ = clearNames.Close() }()

		insertName, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO printing_names (printing_id, name_key) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare name insert: %w", err)
		}
		defer func() { _ = insertName.Close() }()

		for _, p := range printings {
			faceNames, finishes, tokens, err := encodeLists(p)
			if err != nil {
				return err
			}

			var released *string
			if !p.ReleaseDate.IsZero() {
				s := p.ReleaseDate.Format(releaseDateLayout)
				released = &s
			}

			if _, err := upsert.ExecContext(ctx,
				p.ID, p.Name, faceNames, p.SetCode, p.CollectorNumber, released, string(p.Treatment),
				p.IsPromo, p.IsToken, p.Layout, finishes, tokens, p.FrontImageURL, p.BackImageURL,
			); err != nil {
				return fmt.Errorf("failed to save printing %s: %w", p.ID, err)
			}

			if _, err := clearNames.ExecContext(ctx, p.ID); err != nil {
				return fmt.Errorf("failed to clear names for %s: %w", p.ID, err)
			}
			for _, name := range append([]string{p.Name}, p.FaceNames...) {
				key := printing.Key(name)
				if key == "" {
					continue
				}
				if _, err := insertName.ExecContext(ctx, p.ID, key); err != nil {
					return fmt.Errorf("failed to index name %q: %w", name, err)
				}
			}
		}
		return nil
	})
}

// Lookup implements catalog.Client.
func (c *Catalog) Lookup(ctx context.Context, name string) ([]printing.Printing, error) {
	return c.lookup(ctx, name, false)
}

// LookupTokens implements catalog.Client.
func (c *Catalog) LookupTokens(ctx context.Context, name string) ([]printing.Printing, error) {
	return c.lookup(ctx, name, true)
}

func (c *Catalog) lookup(ctx context.Context, name string, tokens bool) ([]printing.Printing, error) {
	query := `
		SELECT p.id, p.name, p.face_names, p.set_code, p.collector_number, p.released_at, p.treatment,
		       p.is_promo, p.is_token, p.layout, p.finishes, p.related_tokens, p.front_image_url, p.back_image_url
		FROM printings p
		JOIN printing_names n ON n.printing_id = p.id
		WHERE n.name_key = ? AND p.is_token = ?
		ORDER BY p.id
	`

	rows, err := c.db.Conn().QueryContext(ctx, query, printing.Key(name), tokens)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &catalog.UnavailableError{Name: name, Err: err}
	}
	defer func() { _ = rows.Close() }()

	printings := []printing.Printing{}
	for rows.Next() {
		p, err := scanPrinting(rows)
		if err != nil {
			return nil, &catalog.UnavailableError{Name: name, Err: err}
		}
		printings = append(printings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, &catalog.UnavailableError{Name: name, Err: fmt.Errorf("error iterating printings: %w", err)}
	}

	return printings, nil
}

// Count returns the number of stored printings.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM printings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count printings: %w", err)
	}
	return count, nil
}

// RecordImport stores the outcome of a bulk import.
func (c *Catalog) RecordImport(ctx context.Context, rec ImportRecord) error {
	_, err := c.db.Conn().ExecContext(ctx,
		`INSERT INTO catalog_imports (source, bulk_updated_at, printing_count) VALUES (?, ?, ?)`,
		rec.Source, rec.BulkUpdatedAt.UTC(), rec.PrintingCount,
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// LastImport returns the most recent import, or nil if none has run.
func (c *Catalog) LastImport(ctx context.Context) (*ImportRecord, error) {
	query := `
		SELECT source, bulk_updated_at, printing_count, imported_at
		FROM catalog_imports
		ORDER BY id DESC
		LIMIT 1
	`

	var rec ImportRecord
	var bulkUpdatedAt, importedAt sql.NullTime
	err := c.db.Conn().QueryRowContext(ctx, query).Scan(&rec.Source, &bulkUpdatedAt, &rec.PrintingCount, &importedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last import: %w", err)
	}

	rec.BulkUpdatedAt = bulkUpdatedAt.Time
	rec.ImportedAt = importedAt.Time
	return &rec, nil
}

// Compile-time check.
var _ catalog.Client = (*Catalog)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrinting(row rowScanner) (printing.Printing, error) {
	var p printing.Printing
	var faceNames, finishes, tokens, treatment string
	var released sql.NullString

	err := row.Scan(
		&p.ID, &p.Name, &faceNames, &p.SetCode, &p.CollectorNumber, &released, &treatment,
		&p.IsPromo, &p.IsToken, &p.Layout, &finishes, &tokens, &p.FrontImageURL, &p.BackImageURL,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan printing: %w", err)
	}

	p.Treatment = printing.Treatment(treatment)
	if released.Valid {
		if t, err := time.Parse(releaseDateLayout, released.String); err == nil {
			p.ReleaseDate = t
		}
	}

	if p.FaceNames, err = decodeList(faceNames); err != nil {
		return p, fmt.Errorf("printing %s: invalid face names: %w", p.ID, err)
	}
	if p.RelatedTokenNames, err = decodeList(tokens); err != nil {
		return p, fmt.Errorf("printing %s: invalid related tokens: %w", p.ID, err)
	}
	finishNames, err := decodeList(finishes)
	if err != nil {
		return p, fmt.Errorf("printing %s: invalid finishes: %w", p.ID, err)
	}
	for _, f := range finishNames {
		p.Finishes = append(p.Finishes, deck.Finish(f))
	}

	return p, nil
}

func encodeLists(p printing.Printing) (faceNames, finishes, tokens string, err error) {
	finishNames := make([]string, 0, len(p.Finishes))
	for _, f := range p.Finishes {
		finishNames = append(finishNames, string(f))
	}

	if faceNames, err = encodeList(p.FaceNames); err != nil {
		return "", "", "", fmt.Errorf("failed to encode printing %s: %w", p.ID, err)
	}
	if finishes, err = encodeList(finishNames); err != nil {
		return "", "", "", fmt.Errorf("failed to encode printing %s: %w", p.ID, err)
	}
	if tokens, err = encodeList(p.RelatedTokenNames); err != nil {
		return "", "", "", fmt.Errorf("failed to encode printing %s: %w", p.ID, err)
	}
	return faceNames, finishes, tokens, nil
}

func encodeList(list []string) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	return string(b), err
}

// decodeList reads a JSON string array, keeping empty lists nil.
func decodeList(raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
