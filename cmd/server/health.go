package main

import (
	"net/http"

	"github.com/Simplici0/woodshop/internal/db"
)

func (s *server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"db": "ok"}
	if err := db.Ready(r.Context(), s.db); err != nil {
		status["db"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
