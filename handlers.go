package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/soleane/backmesh/mesh"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *mesh.StateTracker, config *mesh.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasResults bool      `json:"hasResults"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasResults: stateTracker.HasResults(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Scan listing endpoint
	mux.HandleFunc("/scans", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(stateTracker.ScanIDs()); err != nil {
			log.Printf("Error encoding scan list: %v", err)
		}
	})

	// Per-scan analysis report endpoint
	mux.HandleFunc("/report.json", func(w http.ResponseWriter, r *http.Request) {
		result, ok := lookupResult(stateTracker, r)
		if !ok {
			http.Error(w, "No analysis available", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(result.Report); err != nil {
			log.Printf("Error encoding report: %v", err)
		}
	})

	// Classified mesh raster endpoint
	mux.HandleFunc("/analysis.png", func(w http.ResponseWriter, r *http.Request) {
		result, ok := lookupResult(stateTracker, r)
		if !ok {
			http.Error(w, "No analysis available", http.StatusServiceUnavailable)
			return
		}

		renderer := mesh.NewAnalysisRenderer(result.Mesh, result.Classification.FaceReasons)
		if config != nil && config.Render.Scale > 0 {
			renderer.Scale = config.Render.Scale
		}

		img := renderer.Render()
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding analysis PNG: %v", err)
		}
	})

	// Classified mesh vector endpoint
	mux.HandleFunc("/analysis.svg", func(w http.ResponseWriter, r *http.Request) {
		result, ok := lookupResult(stateTracker, r)
		if !ok {
			http.Error(w, "No analysis available", http.StatusServiceUnavailable)
			return
		}

		renderer := mesh.NewVectorAnalysisRenderer(result.Mesh, result.Classification.FaceReasons)

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("Error encoding analysis SVG: %v", err)
		}
	})

	// Classification GeoJSON endpoint
	mux.HandleFunc("/analysis.geojson", func(w http.ResponseWriter, r *http.Request) {
		result, ok := lookupResult(stateTracker, r)
		if !ok {
			http.Error(w, "No analysis available", http.StatusServiceUnavailable)
			return
		}

		fc, err := mesh.ClassificationToGeoJSON(result.Mesh, result.Classification.FaceReasons)
		if err != nil {
			log.Printf("Error exporting geojson: %v", err)
			http.Error(w, "Export failed", http.StatusInternalServerError)
			return
		}

		data, err := fc.MarshalJSON()
		if err != nil {
			log.Printf("Error marshaling geojson: %v", err)
			http.Error(w, "Export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	// Default route serves HTML page embedding the analysis image
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>backmesh</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#1a1a1a}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/analysis.png" alt="Scan Analysis">
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// lookupResult resolves the scan a request targets: the ?scan= query
// parameter when present, otherwise the first tracked scan.
func lookupResult(stateTracker *mesh.StateTracker, r *http.Request) (*mesh.ScanResult, bool) {
	scanID := r.URL.Query().Get("scan")
	if scanID == "" {
		ids := stateTracker.ScanIDs()
		if len(ids) == 0 {
			return nil, false
		}
		scanID = ids[0]
	}
	return stateTracker.GetResult(scanID)
}
