package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/money"
)

func TestLoadDefault(t *testing.T) {
	set, err := catalog.Load("")
	require.NoError(t, err)

	assert.Len(t, set.Credit.Entries(), 9)
	assert.Len(t, set.Debit.Entries(), 15)
	assert.Equal(t, catalog.KindCredit, set.Credit.Kind())

	dishes, ok := set.Credit.Entry(2)
	require.True(t, ok)
	assert.Equal(t, money.MustParse("0.5"), dishes.BaseCost)

	allIn, ok := set.Debit.Entry(14)
	require.True(t, ok)
	assert.True(t, allIn.Sweep)

	fiat, ok := set.Debit.Entry(15)
	require.True(t, ok)
	assert.True(t, fiat.Variable)

	_, ok = set.Debit.Entry(99)
	assert.False(t, ok)
}

func TestSetFor(t *testing.T) {
	set, err := catalog.Load("")
	require.NoError(t, err)

	c, err := set.For(catalog.KindDebit)
	require.NoError(t, err)
	assert.Same(t, set.Debit, c)

	_, err = set.For(catalog.Kind("bonus"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `version = 1

[[credit]]
id = 1
label = "Washed the car"
base_cost = "1.5"

[[debit]]
id = 1
label = "Cinema night"
base_cost = 4

[[debit]]
id = 2
label = "Everything"
base_cost = 0
sweep = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := catalog.Load(path)
	require.NoError(t, err)

	car, ok := set.Credit.Entry(1)
	require.True(t, ok)
	assert.Equal(t, money.MustParse("1.5"), car.BaseCost)
	assert.Len(t, set.Debit.Entries(), 2)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		kind    catalog.Kind
		entries []catalog.Entry
	}{
		{name: "empty", kind: catalog.KindCredit},
		{name: "zero id", kind: catalog.KindCredit, entries: []catalog.Entry{{ID: 0, Label: "x", BaseCost: 10}}},
		{name: "missing label", kind: catalog.KindCredit, entries: []catalog.Entry{{ID: 1, BaseCost: 10}}},
		{name: "negative cost", kind: catalog.KindDebit, entries: []catalog.Entry{{ID: 1, Label: "x", BaseCost: -5}}},
		{name: "zero cost", kind: catalog.KindDebit, entries: []catalog.Entry{{ID: 1, Label: "x"}}},
		{name: "duplicate id", kind: catalog.KindDebit, entries: []catalog.Entry{
			{ID: 1, Label: "a", BaseCost: 10},
			{ID: 1, Label: "b", BaseCost: 20},
		}},
		{name: "credit sweep", kind: catalog.KindCredit, entries: []catalog.Entry{{ID: 1, Label: "x", Sweep: true}}},
		{name: "variable sweep", kind: catalog.KindDebit, entries: []catalog.Entry{{ID: 1, Label: "x", BaseCost: 10, Sweep: true, Variable: true}}},
		{name: "unknown kind", kind: catalog.Kind("bonus"), entries: []catalog.Entry{{ID: 1, Label: "x", BaseCost: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.New(tt.kind, tt.entries)
			assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
		})
	}
}

func TestParseRejectsBadPrecisionAndVersion(t *testing.T) {
	_, err := catalog.Parse(`version = 1
[[credit]]
id = 1
label = "x"
base_cost = 0.25
[[debit]]
id = 1
label = "y"
base_cost = 1
`)
	assert.Error(t, err)

	_, err = catalog.Parse(`version = 2`)
	assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
}

func TestAffordable(t *testing.T) {
	set, err := catalog.Load("")
	require.NoError(t, err)

	suitcase, _ := set.Debit.Entry(12)
	allIn, _ := set.Debit.Entry(14)
	balance := money.FromInt(50)

	assert.False(t, set.Debit.Affordable(suitcase, balance))
	assert.True(t, set.Debit.Affordable(suitcase, money.FromInt(100)))
	assert.True(t, set.Debit.Affordable(allIn, balance))

	gift, _ := set.Credit.Entry(9)
	assert.True(t, set.Credit.Affordable(gift, money.Zero))
}

func TestEntriesReturnsCopy(t *testing.T) {
	set, err := catalog.Load("")
	require.NoError(t, err)

	entries := set.Credit.Entries()
	entries[0].Label = "mutated"

	first, _ := set.Credit.Entry(entries[0].ID)
	assert.NotEqual(t, "mutated", first.Label)
}
