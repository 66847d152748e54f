package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type searchResponse struct {
	Needle  string   `json:"needle"`
	Matches []string `json:"matches"`
	Count   int      `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	needle := r.URL.Query().Get("q")
	if needle == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	var searchErr error
	hit := true
	resp := s.searchCache.Get("exact:"+needle, func() (interface{}, time.Duration, int) {
		hit = false
		var paths []string
		_, searchErr = s.store.Search(r.Context(), []byte(needle), func(fi uint32) {
			if p, _, ok := s.store.FileAt(int(fi)); ok {
				paths = append(paths, p)
			}
		})
		r := searchResponse{Needle: needle, Matches: paths, Count: len(paths)}
		return r, s.searchCacheTTL, len(paths)*32 + 64
	}).(searchResponse)

	if hit {
		s.metrics.searchCacheHits.WithLabelValues("hit").Inc()
	} else {
		s.metrics.searchCacheHits.WithLabelValues("miss").Inc()
	}
	s.metrics.searchTotal.WithLabelValues("exact").Inc()
	s.metrics.searchLatency.WithLabelValues("exact").Observe(time.Since(start).Seconds())
	if searchErr != nil {
		http.Error(w, searchErr.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

func (s *Server) handleSearchApprox(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	needle := r.URL.Query().Get("q")
	if needle == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	budget := 1
	if v := r.URL.Query().Get("budget"); v != "" {
		if b, err := strconv.Atoi(v); err == nil {
			budget = b
		}
	}
	ignoreCase := r.URL.Query().Get("ignore_case") == "true"

	var paths []string
	_, err := s.store.SearchApprox(r.Context(), budget, ignoreCase, []byte(needle), func(fi uint32) {
		if p, _, ok := s.store.FileAt(int(fi)); ok {
			paths = append(paths, p)
		}
	})
	s.metrics.searchTotal.WithLabelValues("approx").Inc()
	s.metrics.searchLatency.WithLabelValues("approx").Observe(time.Since(start).Seconds())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, searchResponse{Needle: needle, Matches: paths, Count: len(paths)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Stats())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.Encode(v)
}
