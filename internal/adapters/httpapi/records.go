package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Records.All(r.Context()))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid record id")
		return
	}

	rec, err := s.deps.Records.ByID(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, ports.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Record not found!")
	default:
		writeDetail(w, http.StatusServiceUnavailable, "Record store unavailable")
	}
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Records.Recent(r.Context()))
}

func (s *Server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid cache index")
		return
	}

	rec, err := s.deps.Records.RecentAt(r.Context(), index)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, ports.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Cache entry not found!")
	default:
		writeDetail(w, http.StatusServiceUnavailable, "Recency cache unavailable")
	}
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if res := s.deps.Records.ClearRecent(r.Context()); !res.OK() {
		writeDetail(w, http.StatusServiceUnavailable, "Recency cache unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fetcher == nil {
		writeDetail(w, http.StatusServiceUnavailable, "No sample collected")
		return
	}
	sample, ok := s.deps.Fetcher.FetchNow(r.Context())
	if !ok {
		writeDetail(w, http.StatusServiceUnavailable, "No sample collected")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}
