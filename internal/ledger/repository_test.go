package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
	"spendsync/internal/storage"
	"spendsync/internal/storage/memory"
)

func TestLoadExpensesUnset(t *testing.T) {
	repo := NewRepository(memory.New())
	l, version, err := repo.LoadExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l)
	assert.NotNil(t, l)
	assert.Zero(t, version)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())

	want := Ledger{
		expense("a", "50", "2024-03-01", core.Food),
		expense("b", "12.75", "2024-03-05", core.Transport),
	}
	want[1].Description = "bus pass"

	_, err := repo.SaveExpenses(ctx, want, storage.AnyVersion)
	require.NoError(t, err)

	got, _, err := repo.LoadExpenses(ctx)
	require.NoError(t, err)

	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))

	// Saving what was loaded leaves the stored bytes unchanged.
	before, _ := memoryValue(t, repo)
	_, err = repo.SaveExpenses(ctx, got, storage.AnyVersion)
	require.NoError(t, err)
	after, _ := memoryValue(t, repo)
	assert.Equal(t, before, after)
}

func memoryValue(t *testing.T, repo *Repository) (string, int64) {
	t.Helper()
	rec, err := repo.store.Load(context.Background(), storage.KeyExpenses)
	require.NoError(t, err)
	return string(rec.Value), rec.Version
}

func TestLoadExpensesAcceptsLegacyAmounts(t *testing.T) {
	store := memory.NewSeeded(map[string]string{
		storage.KeyExpenses: `[{"id":"1709251200000","amount":"50","category":"food","date":"2024-03-01","description":""},
			{"id":"1709251200001","amount":12.5,"category":"bills","date":"2024-03-02"}]`,
	})
	l, version, err := NewRepository(store).LoadExpenses(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	require.Len(t, l, 2)
	assert.Equal(t, "50.00", l[0].Amount.Fixed(2))
	assert.Equal(t, "12.50", l[1].Amount.Fixed(2))
}

func TestLoadExpensesCorrupt(t *testing.T) {
	cases := map[string]string{
		"not json":     `{{{`,
		"wrong shape":  `{"id":"a"}`,
		"bad amount":   `[{"id":"a","amount":"lots","category":"food","date":"2024-03-01"}]`,
		"missing id":   `[{"amount":1,"category":"food","date":"2024-03-01"}]`,
		"bad date":     `[{"id":"a","amount":1,"category":"food","date":"March"}]`,
		"empty date":   `[{"id":"a","amount":1,"category":"food","date":""}]`,
		"negative":     `[{"id":"a","amount":-5,"category":"food","date":"2024-03-01"}]`,
		"category":     `[{"id":"a","amount":1,"category":"nope","date":"2024-03-01"}]`,
		"long text":    `[{"id":"a","amount":1,"category":"food","date":"2024-03-01","description":"` + strings.Repeat("x", 201) + `"}]`,
		"duplicate id": `[{"id":"1","amount":1,"category":"food","date":"2024-03-01"},{"id":"1","amount":3,"category":"bills","date":"2024-03-02"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := memory.NewSeeded(map[string]string{storage.KeyExpenses: raw})
			_, _, err := NewRepository(store).LoadExpenses(context.Background())
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestQuarantineExpenses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded(map[string]string{storage.KeyExpenses: `not json`})
	repo := NewRepository(store)
	repo.now = func() time.Time { return time.UnixMilli(1700000000000) }

	backup, err := repo.QuarantineExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, "expenses.corrupt.1700000000000", backup)

	rec, err := store.Load(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(rec.Value))

	l, _, err := repo.LoadExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, l)

	// A readable ledger is left alone.
	backup, err = repo.QuarantineExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, backup)
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())

	_, found, err := repo.LoadProfile(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SaveProfile(ctx, core.Profile{Name: "Ada", MonthlySalary: core.MustAmount("3000")}))
	p, found, err := repo.LoadProfile(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", p.Name)
	assert.True(t, p.MonthlySalary.Equal(core.MustAmount("3000")))

	raw, _ := repo.store.Load(ctx, storage.KeyProfile)
	assert.JSONEq(t, `{"name":"Ada","monthlySalary":3000}`, string(raw.Value))
}

func TestLoadProfileCorrupt(t *testing.T) {
	store := memory.NewSeeded(map[string]string{storage.KeyProfile: `{"name":`})
	_, found, err := NewRepository(store).LoadProfile(context.Background())
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())

	theme, err := repo.LoadTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ThemeLight, theme)

	require.NoError(t, repo.SaveTheme(ctx, core.ThemeDark))
	theme, err = repo.LoadTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ThemeDark, theme)

	raw, _ := repo.store.Load(ctx, storage.KeyTheme)
	assert.False(t, strings.HasPrefix(string(raw.Value), `"`), "theme is stored as a bare string")
}
