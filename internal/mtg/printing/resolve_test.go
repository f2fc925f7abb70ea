package printing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckimport"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bolt(id, set, number, released string, treatment Treatment) Printing {
	return Printing{
		ID:              id,
		Name:            "Lightning Bolt",
		SetCode:         set,
		CollectorNumber: number,
		ReleaseDate:     date(released),
		Treatment:       treatment,
		Finishes:        []deck.Finish{deck.FinishNonfoil, deck.FinishFoil},
	}
}

func boltPrintings() []Printing {
	return []Printing{
		bolt("m10", "m10", "146", "2009-07-17", TreatmentNormal),
		bolt("lea", "lea", "161", "1993-08-05", TreatmentNormal),
		bolt("2x2", "2x2", "117", "2022-07-08", TreatmentNormal),
		bolt("sta", "sta", "42", "2021-04-23", TreatmentBorderless),
		bolt("clb", "clb", "187", "2022-06-10", TreatmentNormal),
		bolt("sld", "sld", "1001", "2023-01-13", TreatmentShowcase),
		bolt("2xm-ext", "2xm", "330", "2020-08-07", TreatmentExtendedArt),
	}
}

func entry(name string) deck.DeckEntry {
	return deck.DeckEntry{Name: name, Quantity: 1, Section: deck.SectionMain}
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(entry("Black Lotus"), boltPrintings(), Preferences{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Black Lotus", nf.Name)

	_, err = Resolve(entry("Lightning Bolt"), nil, Preferences{})
	assert.True(t, IsNotFound(err))
}

func TestResolve_Ladder(t *testing.T) {
	tests := []struct {
		name   string
		prefs  Preferences
		wantID string
	}{
		{"newest normal by default", Preferences{}, "2x2"},
		{"oldest normal", Preferences{PreferOlderSets: true}, "lea"},
		{"showcase", Preferences{PreferShowcase: true}, "sld"},
		{"extra art newest", Preferences{PreferExtraArt: true}, "sta"},
		{"extra art oldest", Preferences{PreferExtraArt: true, PreferOlderSets: true}, "2xm-ext"},
		{"showcase beats extra art", Preferences{PreferShowcase: true, PreferExtraArt: true}, "sld"},
		{"preferred set", Preferences{PreferredSets: []string{"M10"}}, "m10"},
		{"preferred set order", Preferences{PreferredSets: []string{"zzz", "clb", "m10"}}, "clb"},
		{"preferred set beats older sets", Preferences{PreferredSets: []string{"clb"}, PreferOlderSets: true}, "clb"},
		{"preferred set beats normal treatment", Preferences{PreferredSets: []string{"sta"}}, "sta"},
		{"unlisted preferred sets fall through", Preferences{PreferredSets: []string{"zzz"}, PreferOlderSets: true}, "lea"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(entry("Lightning Bolt"), boltPrintings(), tt.prefs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolve_DefaultPrefersNormalTreatment(t *testing.T) {
	candidates := []Printing{
		bolt("showcase", "sld", "1", "2024-01-01", TreatmentShowcase),
		bolt("borderless", "sta", "2", "2024-01-01", TreatmentBorderless),
		bolt("normal", "m10", "3", "2009-07-17", TreatmentNormal),
	}

	got, err := Resolve(entry("Lightning Bolt"), candidates, Preferences{})
	require.NoError(t, err)
	assert.Equal(t, TreatmentNormal, got.Treatment)

	// Without any normal printing the set code breaks the date tie.
	got, err = Resolve(entry("Lightning Bolt"), candidates[:2], Preferences{})
	require.NoError(t, err)
	assert.Equal(t, "showcase", got.ID)
}

func TestResolve_IsDeterministic(t *testing.T) {
	candidates := append(boltPrintings(),
		bolt("same-a", "2x2", "117", "2022-07-08", TreatmentNormal),
		bolt("same-b", "2x2", "117", "2022-07-08", TreatmentNormal),
	)
	prefs := Preferences{PreferOlderSets: false}

	want, err := Resolve(entry("Lightning Bolt"), candidates, prefs)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]Printing(nil), candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Resolve(entry("Lightning Bolt"), shuffled, prefs)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	}
}

func TestResolve_HintShortcut(t *testing.T) {
	e := entry("Lightning Bolt")
	e.SetHint = "CLB"
	e.CollectorHint = "187"

	got, err := Resolve(e, boltPrintings(), Preferences{PreferShowcase: true, PreferOlderSets: true})
	require.NoError(t, err)
	assert.Equal(t, "clb", got.ID)
}

func TestResolve_HintsNarrowBeforeLadder(t *testing.T) {
	candidates := []Printing{
		bolt("a", "2xm", "141", "2020-08-07", TreatmentNormal),
		bolt("b", "2xm", "330", "2020-08-07", TreatmentExtendedArt),
		bolt("c", "lea", "161", "1993-08-05", TreatmentNormal),
	}

	e := entry("Lightning Bolt")
	e.SetHint = "2xm"

	got, err := Resolve(e, candidates, Preferences{PreferOlderSets: true})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID, "set hint keeps the ladder inside 2xm")

	got, err = Resolve(e, candidates, Preferences{PreferExtraArt: true})
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestResolve_StaleHintFallsBack(t *testing.T) {
	e := entry("Lightning Bolt")
	e.SetHint = "xyz"
	e.CollectorHint = "999"

	got, err := Resolve(e, boltPrintings(), Preferences{PreferOlderSets: true})
	require.NoError(t, err)
	assert.Equal(t, "lea", got.ID)
}

func TestResolve_IgnoreSetAndCollector(t *testing.T) {
	e := entry("Lightning Bolt")
	e.SetHint = "clb"
	e.CollectorHint = "187"
	prefs := Preferences{IgnoreSetAndCollector: true, PreferOlderSets: true}

	got, err := Resolve(e, boltPrintings(), prefs)
	require.NoError(t, err)
	assert.Equal(t, "lea", got.ID)

	hintless := entry("Lightning Bolt")
	want, err := Resolve(hintless, boltPrintings(), prefs)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID, "ignored hints behave like no hints")

	e.Pinned = true
	got, err = Resolve(e, boltPrintings(), prefs)
	require.NoError(t, err)
	assert.Equal(t, "clb", got.ID, "pinned hints survive the ignore flag")
}

func TestResolve_FinishHint(t *testing.T) {
	foilOnly := bolt("foil", "sld", "77", "2023-01-13", TreatmentNormal)
	foilOnly.Finishes = []deck.Finish{deck.FinishFoil}
	nonfoilOnly := bolt("nonfoil", "sld", "77", "2023-01-13", TreatmentNormal)
	nonfoilOnly.Finishes = []deck.Finish{deck.FinishNonfoil}
	candidates := []Printing{nonfoilOnly, foilOnly}

	e := entry("Lightning Bolt")
	e.SetHint = "sld"
	e.CollectorHint = "77"
	e.FinishHint = deck.FinishFoil

	got, err := Resolve(e, candidates, Preferences{})
	require.NoError(t, err)
	assert.Equal(t, "foil", got.ID)

	e.FinishHint = deck.FinishNonfoil
	got, err = Resolve(e, candidates, Preferences{})
	require.NoError(t, err)
	assert.Equal(t, "nonfoil", got.ID)
}

func TestResolve_MatchesFaces(t *testing.T) {
	delver := Printing{
		ID:          "isd-51",
		Name:        "Delver of Secrets // Insectile Aberration",
		FaceNames:   []string{"Delver of Secrets", "Insectile Aberration"},
		SetCode:     "isd",
		ReleaseDate: date("2011-09-30"),
		Treatment:   TreatmentNormal,
	}

	tests := []deck.DeckEntry{
		entry("Delver of Secrets"),
		entry("insectile aberration"),
		{Name: "Delver of Secrets", AltName: "Insectile Aberration", Quantity: 1, Section: deck.SectionMain},
	}

	for _, e := range tests {
		got, err := Resolve(e, []Printing{delver}, Preferences{})
		require.NoError(t, err, e.DisplayName())
		assert.Equal(t, "isd-51", got.ID)
	}
}

func TestResolve_HintedScenario(t *testing.T) {
	raw, err := deckimport.Parse(deckimport.DialectMoxfield, []byte("1 Ainok Bond-Kin (2X2) 5"))
	require.NoError(t, err)
	entries, err := deck.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	candidates := []Printing{
		{ID: "ktk", Name: "Ainok Bond-Kin", SetCode: "ktk", CollectorNumber: "3", ReleaseDate: date("2014-09-26"), Treatment: TreatmentNormal},
		{ID: "2x2", Name: "Ainok Bond-Kin", SetCode: "2x2", CollectorNumber: "5", ReleaseDate: date("2022-07-08"), Treatment: TreatmentNormal},
		{ID: "cmm", Name: "Ainok Bond-Kin", SetCode: "cmm", CollectorNumber: "11", ReleaseDate: date("2023-08-04"), Treatment: TreatmentNormal},
	}

	got, err := Resolve(entries[0], candidates, Preferences{})
	require.NoError(t, err)
	assert.Equal(t, "2x2", got.ID)
}

func TestResolve_PlainListScenario(t *testing.T) {
	raw, err := deckimport.Parse(deckimport.DialectSimple, []byte("Lightning Bolt"))
	require.NoError(t, err)
	entries, err := deck.Normalize(raw)
	require.NoError(t, err)

	got, err := Resolve(entries[0], boltPrintings(), Preferences{PreferOlderSets: true, PreferredSets: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "lea", got.ID)
	assert.Equal(t, TreatmentNormal, got.Treatment)
}

func TestResolve_UnknownReleaseDatesRankLast(t *testing.T) {
	undated := bolt("undated", "aaa", "1", "2000-01-01", TreatmentNormal)
	undated.ReleaseDate = time.Time{}
	candidates := []Printing{undated, bolt("m10", "m10", "146", "2009-07-17", TreatmentNormal)}

	for _, older := range []bool{true, false} {
		got, err := Resolve(entry("Lightning Bolt"), candidates, Preferences{PreferOlderSets: older})
		require.NoError(t, err)
		assert.Equal(t, "m10", got.ID)
	}
}

func TestResolveAll(t *testing.T) {
	entries := []deck.DeckEntry{
		entry("Lightning Bolt"),
		entry("Black Lotus"),
		{Name: "lightning bolt", Quantity: 2, Section: deck.SectionSide},
	}
	candidates := map[string][]Printing{
		Key("Lightning Bolt"): boltPrintings(),
	}

	resolved, err := ResolveAll(entries, candidates, Preferences{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, []string{"Black Lotus"}, NotFoundNames(err))

	require.Len(t, resolved, 2)
	assert.Equal(t, "Lightning Bolt", resolved[0].Entry.Name)
	assert.Equal(t, deck.SectionSide, resolved[1].Entry.Section)
	assert.Equal(t, resolved[0].Printing.ID, resolved[1].Printing.ID)
}

func TestNotFoundNames(t *testing.T) {
	assert.Nil(t, NotFoundNames(nil))
	assert.Equal(t, []string{"Mox Pearl"}, NotFoundNames(&NotFoundError{Name: "Mox Pearl"}))

	_, err := ResolveAll([]deck.DeckEntry{entry("Black Lotus"), entry("Mox Sapphire")}, nil, Preferences{})
	assert.Equal(t, []string{"Black Lotus", "Mox Sapphire"}, NotFoundNames(err))
}
