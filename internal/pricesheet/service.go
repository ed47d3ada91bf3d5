package pricesheet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Simplici0/woodshop/internal/obs"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
	"github.com/Simplici0/woodshop/internal/settings"
)

// SettingsSource supplies the current rate settings.
type SettingsSource interface {
	Get(ctx context.Context) (pricing.RateSettings, error)
}

// Service prices, stores and re-syncs price sheet items.
type Service struct {
	store     *Store
	settings  SettingsSource
	logger    zerolog.Logger
	metrics   *obs.Metrics
	validate  *validator.Validate
	maxMargin float64
	newID     func() string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMetrics sets the collectors sync outcomes are recorded on.
func WithMetrics(m *obs.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithMaxMargin caps the margins applied when pricing items.
func WithMaxMargin(max float64) Option { return func(s *Service) { s.maxMargin = max } }

// NewService wires a Service.
func NewService(store *Store, source SettingsSource, opts ...Option) *Service {
	s := &Service{
		store:     store,
		settings:  source,
		logger:    zerolog.Nop(),
		validate:  settings.NewValidator(),
		maxMargin: pricing.DefaultMaxMargin,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit prices a calculator submission against the current settings and
// saves it, creating the item when req.ID is empty.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Item, error) {
	if err := settings.Check(s.validate, req.Identity); err != nil {
		return Item{}, err
	}

	rates, err := s.settings.Get(ctx)
	if err != nil {
		return Item{}, fmt.Errorf("load rate settings: %w", err)
	}

	var item Item
	if req.ID != "" {
		if item, err = s.store.Get(ctx, req.ID); err != nil {
			return Item{}, err
		}
	} else {
		item = Item{ID: s.newID(), CreatedAt: s.now()}
	}

	item.Identity = req.Identity
	item.Input = req.Input
	s.price(&item, rates, nil)
	s.metrics.Computed("submit")

	if req.ID == "" {
		saved, err := s.store.Insert(ctx, item)
		if err != nil {
			return Item{}, err
		}
		s.logger.Info().Str("item_id", saved.ID).Float64("cost", saved.Cost).Msg("price sheet item created")
		return saved, nil
	}

	saved, err := s.store.Update(ctx, item, req.Version)
	if errors.Is(err, ErrVersionConflict) {
		s.metrics.Conflict()
	}
	if err != nil {
		return Item{}, err
	}
	s.logger.Info().Str("item_id", saved.ID).Float64("cost", saved.Cost).Msg("price sheet item replaced")
	return saved, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.store.Get(ctx, id)
}

// List returns the items matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Item, error) {
	return s.store.List(ctx, f)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("item_id", id).Msg("price sheet item deleted")
	return nil
}

// SyncResult is the outcome of syncing one item.
type SyncResult struct {
	Item          Item    `json:"item"`
	PreviousCost  float64 `json:"previousCost"`
	MaterialsKept bool    `json:"materialsKept"`
}

// Sync re-prices a stored item against the current settings. Component
// references pick up the saved cost of the components they point at, the
// fresh breakdown is merged onto the stored details, and the item is saved
// only if nobody wrote it in between. A non-zero expectedVersion must also
// match the version the caller last saw.
func (s *Service) Sync(ctx context.Context, id string, expectedVersion int64) (SyncResult, error) {
	res, err := s.sync(ctx, id, expectedVersion)
	switch {
	case errors.Is(err, ErrVersionConflict):
		s.metrics.Sync(obs.SyncConflict, false)
		s.logger.Warn().Str("item_id", id).Int64("expected_version", expectedVersion).Msg("sync rejected: stale version")
	case errors.Is(err, ErrNotFound):
		// caller error; nothing to record
	case err != nil:
		s.metrics.Sync(obs.SyncError, false)
		s.logger.Error().Err(err).Str("item_id", id).Msg("sync failed")
	default:
		s.metrics.Sync(obs.SyncOK, res.MaterialsKept)
		s.logger.Info().
			Str("item_id", id).
			Float64("previous_cost", res.PreviousCost).
			Float64("cost", res.Item.Cost).
			Bool("materials_guard", res.MaterialsKept).
			Msg("price sheet item synced")
	}
	return res, err
}

func (s *Service) sync(ctx context.Context, id string, expectedVersion int64) (SyncResult, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return SyncResult{}, err
	}
	if expectedVersion != 0 && item.Version != expectedVersion {
		return SyncResult{}, ErrVersionConflict
	}

	rates, err := s.settings.Get(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load rate settings: %w", err)
	}
	costs, err := s.store.ComponentCosts(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	previousCost := item.Cost
	item.Input = refreshComponents(item.Input, costs)
	report := s.price(&item, rates, &item.Details)
	s.metrics.Computed("sync")

	saved, err := s.store.Update(ctx, item, item.Version)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Item: saved, PreviousCost: previousCost, MaterialsKept: report.MaterialsKept}, nil
}

// SyncOutcome reports one item of a SyncAll run.
type SyncOutcome struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	PreviousCost float64 `json:"previousCost"`
	Cost         float64 `json:"cost"`
	Error        string  `json:"error,omitempty"`
}

// SyncAll syncs every item. Components go first so pieces consume their
// fresh costs. A failed item is reported and the run continues.
func (s *Service) SyncAll(ctx context.Context) ([]SyncOutcome, error) {
	items, err := s.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].IsComponent && !items[j].IsComponent
	})

	out := make([]SyncOutcome, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		outcome := SyncOutcome{ID: item.ID, Label: item.Label(), PreviousCost: item.Cost}
		res, err := s.Sync(ctx, item.ID, 0)
		if err != nil {
			outcome.Error = err.Error()
			outcome.Cost = item.Cost
		} else {
			outcome.Cost = res.Item.Cost
		}
		out = append(out, outcome)
	}
	s.logger.Info().Int("items", len(out)).Msg("price sheet synced")
	return out, nil
}

// Reconcile merges a possibly partial cost document onto a stored one.
func (s *Service) Reconcile(prev, next resync.Details) resync.Details {
	return resync.Merge(prev, next)
}

// price computes item against rates and fills its cost fields. With prev
// set, the fresh breakdown is merged onto it; otherwise it replaces the
// details outright.
func (s *Service) price(item *Item, rates pricing.RateSettings, prev *resync.Details) resync.Report {
	breakdown := pricing.Compute(item.Input, rates)
	fresh := resync.FromBreakdown(breakdown, item.Input.ComponentRefs())

	var report resync.Report
	if prev != nil {
		item.Details, report = resync.MergeWithReport(*prev, fresh)
	} else {
		item.Details = fresh
	}

	item.Cost = breakdown.GrandTotal
	item.Prices = pricing.QuoteFor(breakdown.GrandTotal, rates.Margins, s.maxMargin)
	snapshot := rates
	item.LastSyncedSettings = &snapshot
	item.UpdatedAt = s.now()
	return report
}

// refreshComponents replaces component reference costs with the saved cost
// of the component item they name. Unknown references keep their cost.
func refreshComponents(in pricing.LineItemInput, costs map[string]float64) pricing.LineItemInput {
	refresh := func(refs pricing.Rows[pricing.ComponentRef]) pricing.Rows[pricing.ComponentRef] {
		if refs == nil {
			return nil
		}
		out := make(pricing.Rows[pricing.ComponentRef], len(refs))
		for i, ref := range refs {
			if cost, ok := costs[ref.Ref()]; ok {
				ref.Cost = pricing.Number(cost)
			}
			out[i] = ref
		}
		return out
	}
	in.SelectedComponents = refresh(in.SelectedComponents)
	in.Components = refresh(in.Components)
	return in
}
