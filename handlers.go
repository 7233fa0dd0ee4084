package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kwv/beaconmesh/mesh"
	"github.com/rs/zerolog/log"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *mesh.StateTracker, aligner *mesh.AutoAligner, config *mesh.Config) http.Handler {
	mux := http.NewServeMux()
	logger := log.With().Str("component", "http").Logger()

	expected := make([]string, len(config.Scanners))
	for i, sc := range config.Scanners {
		expected[i] = sc.ID
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug().Str("remote", r.RemoteAddr).Msg("/health")
		alignment, _ := stateTracker.GetAlignment()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasReports bool      `json:"hasReports"`
			Aligned    bool      `json:"aligned"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasReports: stateTracker.HasReports(),
			Aligned:    alignment != nil,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error().Err(err).Msg("encoding health status")
		}
	})

	// Cache coverage of the configured scanners
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(aligner.GetCache().GetStatus(expected)); err != nil {
			logger.Error().Err(err).Msg("encoding alignment status")
		}
	})

	// Latest alignment cache, including one loaded at startup
	mux.HandleFunc("/alignment.json", func(w http.ResponseWriter, r *http.Request) {
		cache := aligner.GetCache()
		if cache == nil {
			http.Error(w, "No alignment available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(cache); err != nil {
			logger.Error().Err(err).Msg("encoding alignment")
		}
	})

	// Beacons and scanner origins as GeoJSON
	mux.HandleFunc("/beacons.geojson", func(w http.ResponseWriter, r *http.Request) {
		alignment, names := stateTracker.GetAlignment()
		if alignment == nil {
			http.Error(w, "No alignment available", http.StatusServiceUnavailable)
			return
		}
		fc := mesh.AlignmentToFeatureCollection(alignment, names, scannerColors(stateTracker, names))
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			logger.Error().Err(err).Msg("encoding GeoJSON")
		}
	})

	// Vector plan
	mux.HandleFunc("/plan.svg", func(w http.ResponseWriter, r *http.Request) {
		alignment, names := stateTracker.GetAlignment()
		if alignment == nil {
			http.Error(w, "No alignment available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		vr := mesh.NewVectorRenderer(alignment, scannerColors(stateTracker, names))
		if err := vr.RenderToSVG(w); err != nil {
			logger.Error().Err(err).Msg("rendering SVG plan")
		}
	})

	// Raster plan with legend
	mux.HandleFunc("/plan.png", func(w http.ResponseWriter, r *http.Request) {
		alignment, names := stateTracker.GetAlignment()
		if alignment == nil {
			http.Error(w, "No alignment available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		pr := mesh.NewPlanRenderer(alignment, names, scannerColors(stateTracker, names))
		if err := pr.WritePNG(w); err != nil {
			logger.Error().Err(err).Msg("encoding PNG plan")
		}
	})

	return mux
}
