package main

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/woodshop/internal/export"
	"github.com/Simplici0/woodshop/internal/pricesheet"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
	"github.com/Simplici0/woodshop/internal/settings"
)

func (s *server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	rates, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var rates pricing.RateSettings
	if !decodeJSON(w, r, &rates) {
		return
	}
	if err := s.settings.Put(r.Context(), rates); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info().Msg("rate settings updated")
	writeJSON(w, http.StatusOK, rates)
}

type computeRequest struct {
	Input                 pricing.LineItemInput `json:"input"`
	Settings              *pricing.RateSettings `json:"settings,omitempty"`
	PreserveWoodOverrides bool                  `json:"preserveWoodOverrides,omitempty"`
}

type computeResponse struct {
	Breakdown pricing.CostBreakdown `json:"breakdown"`
	Quote     pricing.Quote         `json:"quote"`
}

func (s *server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var rates pricing.RateSettings
	if req.Settings != nil {
		if err := settings.Validate(*req.Settings); err != nil {
			s.writeError(w, r, err)
			return
		}
		rates = *req.Settings
	} else {
		var err error
		if rates, err = s.settings.Get(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var opts []pricing.Option
	if req.PreserveWoodOverrides {
		opts = append(opts, pricing.PreserveWoodOverrides())
	}
	breakdown := pricing.Compute(req.Input, rates, opts...)
	s.metrics.Computed("api")

	writeJSON(w, http.StatusOK, computeResponse{
		Breakdown: breakdown,
		Quote:     pricing.QuoteFor(breakdown.GrandTotal, rates.Margins, s.maxMargin),
	})
}

type mergeRequest struct {
	Prev resync.Details `json:"prev"`
	Next resync.Details `json:"next"`
}

func (s *server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.sheet.Reconcile(req.Prev, req.Next))
}

func (s *server) handleSheetList(w http.ResponseWriter, r *http.Request) {
	items, err := s.sheet.List(r.Context(), sheetFilter(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleSheetCreate(w http.ResponseWriter, r *http.Request) {
	var req pricesheet.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID, req.Version = "", 0

	item, err := s.sheet.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setETag(w, item.Version)
	writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleSheetGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.sheet.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setETag(w, item.Version)
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleSheetReplace(w http.ResponseWriter, r *http.Request) {
	version, err := ifMatchVersion(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	var req pricesheet.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if version != 0 {
		req.Version = version
	}

	item, err := s.sheet.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setETag(w, item.Version)
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleSheetDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sheet.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSheetSync(w http.ResponseWriter, r *http.Request) {
	version, err := ifMatchVersion(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := s.sheet.Sync(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setETag(w, res.Item.Version)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleSheetSyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.sheet.SyncAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleSheetText(w http.ResponseWriter, r *http.Request) {
	item, err := s.sheet.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.Text(item)))
}

func (s *server) handleSheetPDF(w http.ResponseWriter, r *http.Request) {
	item, err := s.sheet.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, item); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+item.ID+`.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleSheetExport(w http.ResponseWriter, r *http.Request) {
	items, err := s.sheet.List(r.Context(), sheetFilter(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, items); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="price-sheet.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func sheetFilter(r *http.Request) pricesheet.Filter {
	q := r.URL.Query()
	return pricesheet.Filter{
		Query: strings.TrimSpace(q.Get("q")),
		Kind:  pricesheet.ParseKind(q.Get("kind")),
	}
}
