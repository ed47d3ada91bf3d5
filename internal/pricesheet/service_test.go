package pricesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/woodshop/internal/obs"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
	"github.com/Simplici0/woodshop/internal/settings"
)

type staticSettings struct {
	rates pricing.RateSettings
	err   error
}

func (s *staticSettings) Get(context.Context) (pricing.RateSettings, error) {
	return s.rates, s.err
}

func newTestService(t *testing.T, rates *staticSettings) (*Service, *obs.Metrics) {
	t.Helper()

	metrics := obs.NewMetrics("test", prometheus.NewRegistry())
	seq := 0
	svc := NewService(NewStore(openTestDB(t)), rates, WithMetrics(metrics))
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("item-%d", seq)
	}
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return svc, metrics
}

func TestSubmit_CreatesPricedItem(t *testing.T) {
	rates := &staticSettings{rates: pricing.RateSettings{
		CNC:     pricing.CNCSettings{Rate: 60},
		Margins: pricing.Margins{Wholesale: 40, MSRP: 50},
	}}
	svc, metrics := newTestService(t, rates)

	item, err := svc.Submit(context.Background(), SubmitRequest{
		Identity: Identity{Collection: "Ridge", PieceNumber: "104"},
		Input:    pricing.LineItemInput{CNC: pricing.CNCInput{Runtime: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "item-1", item.ID)
	require.EqualValues(t, 1, item.Version)
	require.Equal(t, 60.0, item.Cost)
	require.InDelta(t, 100, item.Prices.Wholesale, 1e-9)
	require.InDelta(t, 200, item.Prices.MSRP, 1e-9)
	require.Equal(t, &resync.CNC{Runtime: 1, Rate: 60, Cost: 60}, item.Details.CNC)
	require.NotNil(t, item.LastSyncedSettings)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Computations.WithLabelValues("submit")))
}

func TestSubmit_ValidatesIdentity(t *testing.T) {
	svc, _ := newTestService(t, &staticSettings{})

	cases := []Identity{
		{Collection: "Ridge"},
		{IsComponent: true},
		{IsCustom: true},
	}
	for _, id := range cases {
		_, err := svc.Submit(context.Background(), SubmitRequest{Identity: id})
		require.ErrorIs(t, err, settings.ErrInvalid, "%+v", id)
	}

	var verr *settings.ValidationError
	_, err := svc.Submit(context.Background(), SubmitRequest{Identity: Identity{IsComponent: true}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "componentName", verr.Fields[0].Field)
}

func TestSubmit_ReplaceHonoursVersion(t *testing.T) {
	ctx := context.Background()
	svc, metrics := newTestService(t, &staticSettings{rates: pricing.RateSettings{CNC: pricing.CNCSettings{Rate: 60}}})

	item, err := svc.Submit(ctx, SubmitRequest{
		Identity: Identity{IsCustom: true, Name: "Desk"},
		Input:    pricing.LineItemInput{CNC: pricing.CNCInput{Runtime: 1}},
	})
	require.NoError(t, err)

	replaced, err := svc.Submit(ctx, SubmitRequest{
		ID:       item.ID,
		Version:  item.Version,
		Identity: Identity{IsCustom: true, Name: "Standing desk"},
		Input:    pricing.LineItemInput{CNC: pricing.CNCInput{Runtime: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 180.0, replaced.Cost)
	require.Equal(t, "Standing desk", replaced.Name)
	require.EqualValues(t, 2, replaced.Version)
	require.True(t, item.CreatedAt.Equal(replaced.CreatedAt))

	_, err = svc.Submit(ctx, SubmitRequest{ID: item.ID, Version: 1, Identity: Identity{IsCustom: true, Name: "x"}})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Conflicts))

	_, err = svc.Submit(ctx, SubmitRequest{ID: "missing", Identity: Identity{IsCustom: true, Name: "x"}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSync_RepricesAgainstNewSettings(t *testing.T) {
	ctx := context.Background()
	rates := &staticSettings{rates: pricing.RateSettings{
		CNC:       pricing.CNCSettings{Rate: 60},
		Materials: pricing.MaterialSettings{Sheet: []pricing.SheetStock{{ID: "mdf", PricePerSheet: 40}}},
	}}
	svc, metrics := newTestService(t, rates)

	item, err := svc.Submit(ctx, SubmitRequest{
		Identity: Identity{Collection: "Ridge", PieceNumber: "104"},
		Input: pricing.LineItemInput{
			CNC:       pricing.CNCInput{Runtime: 2},
			Materials: pricing.MaterialsInput{Sheet: pricing.Rows[pricing.SheetRow]{{SheetID: "mdf", Quantity: 2}}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 200.0, item.Cost)

	rates.rates.CNC.Rate = 75
	rates.rates.Materials.Sheet[0].PricePerSheet = 45

	res, err := svc.Sync(ctx, item.ID, item.Version)
	require.NoError(t, err)
	require.Equal(t, 200.0, res.PreviousCost)
	require.Equal(t, 240.0, res.Item.Cost)
	require.False(t, res.MaterialsKept)
	require.EqualValues(t, 2, res.Item.Version)
	require.Equal(t, &resync.CNC{Runtime: 2, Rate: 75, Cost: 150}, res.Item.Details.CNC)
	require.Equal(t, 75.0, res.Item.LastSyncedSettings.CNC.Rate.Float())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Syncs.WithLabelValues(obs.SyncOK)))

	_, err = svc.Sync(ctx, item.ID, item.Version)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Syncs.WithLabelValues(obs.SyncConflict)))
}

func TestSync_KeepsStoredMaterialsWhenRecomputeIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, metrics := newTestService(t, &staticSettings{rates: pricing.RateSettings{CNC: pricing.CNCSettings{Rate: 60}}})

	item, err := svc.Submit(ctx, SubmitRequest{
		Identity: Identity{IsCustom: true, Name: "Imported bench"},
		Input:    pricing.LineItemInput{CNC: pricing.CNCInput{Runtime: 1}},
	})
	require.NoError(t, err)

	// a record imported with materials priced elsewhere.
	var legacy resync.Details
	require.NoError(t, json.Unmarshal([]byte(`{"materials":{"wood":{"totalCost":80},"total":80},"notes":"imported"}`), &legacy))
	item.Details = legacy
	item, err = svc.store.Update(ctx, item, item.Version)
	require.NoError(t, err)

	res, err := svc.Sync(ctx, item.ID, 0)
	require.NoError(t, err)
	require.True(t, res.MaterialsKept)
	require.JSONEq(t, `{"wood":{"totalCost":80},"total":80}`, mustJSON(t, res.Item.Details.Materials))
	require.JSONEq(t, `"imported"`, string(res.Item.Details.Extra["notes"]))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.GuardHits))
}

func TestSync_PullsComponentCosts(t *testing.T) {
	ctx := context.Background()
	rates := &staticSettings{rates: pricing.RateSettings{CNC: pricing.CNCSettings{Rate: 60}}}
	svc, _ := newTestService(t, rates)

	drawer, err := svc.Submit(ctx, SubmitRequest{
		Identity: Identity{IsComponent: true, ComponentName: "Drawer"},
		Input:    pricing.LineItemInput{CNC: pricing.CNCInput{Runtime: 0.5}},
	})
	require.NoError(t, err)

	dresser, err := svc.Submit(ctx, SubmitRequest{
		Identity: Identity{Collection: "Harbor", PieceNumber: "301"},
		Input: pricing.LineItemInput{SelectedComponents: pricing.Rows[pricing.ComponentRef]{
			{ID: pricing.Key(drawer.ID), Cost: 30, Quantity: 4},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 120.0, dresser.Cost)

	rates.rates.CNC.Rate = 80
	outcomes, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, drawer.ID, outcomes[0].ID)
	require.Equal(t, 40.0, outcomes[0].Cost)
	require.Equal(t, 160.0, outcomes[1].Cost)

	got, err := svc.Get(ctx, dresser.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Number(40), got.Input.SelectedComponents[0].Cost)
	require.Equal(t, 40.0, got.Details.Components.Items[0].Number("cost"))
}

func TestSyncAll_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	rates := &staticSettings{}
	svc, _ := newTestService(t, rates)

	_, err := svc.Submit(ctx, SubmitRequest{Identity: Identity{IsCustom: true, Name: "A"}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SubmitRequest{Identity: Identity{IsCustom: true, Name: "B"}})
	require.NoError(t, err)

	rates.err = errors.New("settings offline")
	outcomes, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.Contains(t, o.Error, "settings offline")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &staticSettings{})

	item, err := svc.Submit(ctx, SubmitRequest{Identity: Identity{IsCustom: true, Name: "A"}})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, item.ID))
	_, err = svc.Get(ctx, item.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconcile(t *testing.T) {
	svc := NewService(nil, &staticSettings{})
	prev := resync.Details{CNC: &resync.CNC{Runtime: 5, Rate: 10, Cost: 50}}
	next := resync.Details{CNC: &resync.CNC{Rate: 12}}
	require.Equal(t, &resync.CNC{Runtime: 5, Rate: 12, Cost: 50}, svc.Reconcile(prev, next).CNC)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
