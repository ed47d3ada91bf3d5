package settings

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/woodshop/internal/db"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/pricing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "settings-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database))
	return database
}

func TestStore_GetReturnsDefaultsWhenEmpty(t *testing.T) {
	store := NewStore(openTestDB(t))

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, Defaults(), got)

	exists, err := Exists(context.Background(), store.db)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStore_PutThenGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))

	s := Defaults()
	s.CNC.Rate = 72
	s.Labor.ExtraFee = 8
	s.Margins = pricing.Margins{Wholesale: 35, MSRP: 45}
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, s, got)

	s.CNC.Rate = 80
	require.NoError(t, store.Put(ctx, s))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 80.0, got.CNC.Rate.Float())
}

func TestStore_PutRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))

	s := Defaults()
	s.Margins.Wholesale = 100
	s.Overhead.Employees = -1

	err := store.Put(ctx, s)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	require.Equal(t, "lte", fields["margins.wholesale"])
	require.Equal(t, "gte", fields["overhead.employees"])

	exists, err := Exists(ctx, store.db)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
	require.NoError(t, Validate(pricing.RateSettings{}))
}

func TestValidate_CatalogEntriesNeedIDs(t *testing.T) {
	s := Defaults()
	s.Materials.Sheet = append(s.Materials.Sheet, pricing.SheetStock{Name: "unnamed", PricePerSheet: 10})
	require.ErrorIs(t, Validate(s), ErrInvalid)
}
