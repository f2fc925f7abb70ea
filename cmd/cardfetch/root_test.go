package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deckfetch"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckimport"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
	"github.com/ramonehamilton/cardfetch/internal/storage"
)

// isolate points every XDG directory into a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, env := range []string{"XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_STATE_HOME", "XDG_CACHE_HOME"} {
		t.Setenv(env, filepath.Join(dir, env))
	}
	xdg.Reload()
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func seedCatalog(t *testing.T, path string) {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(path))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cat := storage.NewCatalog(db)
	ctx := context.Background()
	require.NoError(t, cat.SavePrintings(ctx, []printing.Printing{
		{ID: "lea-161", Name: "Lightning Bolt", SetCode: "lea", CollectorNumber: "161",
			ReleaseDate: time.Date(1993, 8, 5, 0, 0, 0, 0, time.UTC), Treatment: printing.TreatmentNormal},
		{ID: "m10-146", Name: "Lightning Bolt", SetCode: "m10", CollectorNumber: "146",
			ReleaseDate: time.Date(2009, 7, 17, 0, 0, 0, 0, time.UTC), Treatment: printing.TreatmentNormal},
	}))
	require.NoError(t, cat.RecordImport(ctx, storage.ImportRecord{Source: "test", BulkUpdatedAt: time.Now(), PrintingCount: 2}))
}

func TestFormats(t *testing.T) {
	isolate(t)
	out, err := execute(t, "formats")
	require.NoError(t, err)
	for _, d := range deckimport.Dialects() {
		assert.Contains(t, out, string(d))
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cardfetch dev")
}

func TestFetch_Offline(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "catalog.db")
	seedCatalog(t, dbPath)

	deckPath := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(deckPath, []byte("Deck\n4 Lightning Bolt\n"), 0o644))

	out, err := execute(t, "fetch", deckPath, "MTGA", "--offline", "--catalog-db", dbPath, "--no-download", "--prefer_older_sets")
	require.NoError(t, err)
	assert.Contains(t, out, "Lightning Bolt")
	assert.Contains(t, out, "LEA #161")
	assert.Contains(t, out, "Resolved 1 card(s)")

	out, err = execute(t, "fetch", deckPath, "mtga", "--offline", "--catalog-db", dbPath, "--no-download", "-s", "m10")
	require.NoError(t, err)
	assert.Contains(t, out, "M10 #146")
}

func TestFetch_WatchStopsOnCancel(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "catalog.db")
	seedCatalog(t, dbPath)

	deckPath := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(deckPath, []byte("Lightning Bolt\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out, err := executeContext(t, ctx, "fetch", deckPath, "simple", "--offline", "--catalog-db", dbPath, "--no-download", "--watch", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Resolved 1 card(s)")
}

func TestFetch_Unresolved(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "catalog.db")
	seedCatalog(t, dbPath)

	deckPath := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(deckPath, []byte("Lightning Bolt\nBlack Lotus\n"), 0o644))

	out, err := execute(t, "fetch", deckPath, "simple", "--offline", "--catalog-db", dbPath, "--no-download")
	require.Error(t, err)
	assert.True(t, deckfetch.IsUnresolved(err))
	assert.Contains(t, out, "Not found:")
	assert.Contains(t, out, "Black Lotus")
}

func TestFetch_EmptyOfflineCatalog(t *testing.T) {
	dir := isolate(t)
	deckPath := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(deckPath, []byte("Lightning Bolt\n"), 0o644))

	_, err := execute(t, "fetch", deckPath, "simple", "--offline", "--catalog-db", filepath.Join(dir, "empty.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog import")
}

func TestFetch_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "fetch", "deck.txt", "cockatrice")
	assert.Error(t, err, "unknown format")

	_, err = execute(t, "fetch", "deck.txt")
	assert.Error(t, err, "missing format argument")

	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[catalog]\nsource = \"mtgjson\"\n"), 0o644))
	_, err = execute(t, "--config", configPath, "formats")
	assert.Error(t, err, "invalid config")

	_, err = execute(t, "fetch", "deck.txt", "simple", "--concurrency", "0", "--no-download")
	assert.Error(t, err, "concurrency below 1")
}

func TestCatalogImportFileAndStatus(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "catalog.db")

	bulkPath := filepath.Join(dir, "default-cards.json")
	bulk := `[
  {"id": "m10-146", "name": "Lightning Bolt", "lang": "en", "set": "m10", "collector_number": "146", "released_at": "2009-07-17", "layout": "normal"},
  {"id": "lea-161", "name": "Lightning Bolt", "lang": "en", "set": "lea", "collector_number": "161", "released_at": "1993-08-05", "layout": "normal"}
]`
	require.NoError(t, os.WriteFile(bulkPath, []byte(bulk), 0o644))

	out, err := execute(t, "catalog", "import", "--file", bulkPath, "--catalog-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 printings")

	out, err = execute(t, "catalog", "status", "--catalog-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Printings: 2")
	assert.Contains(t, out, "default-cards.json")
}
