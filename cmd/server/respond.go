package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/woodshop/internal/pricesheet"
	"github.com/Simplici0/woodshop/internal/settings"
)

const maxBodyBytes = 1 << 20

// errorBody is the error payload every endpoint returns.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, map[string]any{
		"error": errorBody{Code: code, Message: message, Details: details},
	})
}

// writeError maps service errors to HTTP responses.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "validation failed", verr.Fields)
	case errors.Is(err, settings.ErrInvalid):
		writeJSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, pricesheet.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, pricesheet.ErrVersionConflict):
		writeJSONError(w, http.StatusConflict, "VERSION_CONFLICT", err.Error(), nil)
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

// decodeJSON reads a single JSON document from the request body. Failures
// are answered with 400 and reported as false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", msg, err.Error())
		return false
	}
	return true
}

// ifMatchVersion reads an item version from If-Match. Absent means 0.
func ifMatchVersion(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	if raw == "" || raw == "*" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("If-Match must carry an item version, got %q", r.Header.Get("If-Match"))
	}
	return v, nil
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}
