package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/soleane/backmesh/mesh"
)

// AppOptions carries the parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile   string
	DataDir      string
	InputFile    string
	ScanID       string
	OutputFile   string
	RenderFormat string
	VectorFormat string
	GeoJSONFile  string
	ParseOnly    bool
	ReportOnly   bool
	MqttMode     bool
	HttpMode     bool
	HttpPort     int

	// Stage overrides; BorderRings < 0 means "use config".
	NoCurvature bool
	NoVariance  bool
	NoBorders   bool
	NoIslands   bool
	BorderRings int
}

// App encapsulates the application state and dependencies
type App struct {
	Config       *mesh.Config
	StateTracker *mesh.StateTracker
	MQTTClient   *mesh.MQTTClient
	Publisher    *mesh.Publisher

	opts AppOptions
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: mesh.NewStateTracker(),
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

// loadConfig loads the config file if present; a missing file is not fatal
// outside service mode, the defaults cover single-file analysis.
func (a *App) loadConfig() {
	if a.Config != nil {
		return
	}
	if _, err := os.Stat(a.opts.ConfigFile); err == nil {
		config, err := mesh.LoadConfig(a.opts.ConfigFile)
		if err != nil {
			log.Printf("Warning: Failed to load config file %s: %v", a.opts.ConfigFile, err)
		} else {
			log.Printf("Loaded config from %s", a.opts.ConfigFile)
			a.Config = config
		}
	}
	if a.Config == nil {
		a.Config = &mesh.Config{Clean: mesh.DefaultCleanConfig()}
	}
}

// cleanConfig returns the effective cleaning config: file config plus CLI
// stage overrides.
func (a *App) cleanConfig() mesh.CleanConfig {
	cfg := a.Config.Clean
	if a.opts.NoCurvature {
		cfg.CleanByCurvature = false
	}
	if a.opts.NoVariance {
		cfg.CleanByVariance = false
	}
	if a.opts.NoBorders {
		cfg.CleanBorders = false
	}
	if a.opts.NoIslands {
		cfg.RemoveIslands = false
	}
	if a.opts.BorderRings >= 0 {
		cfg.BorderRings = a.opts.BorderRings
	}
	return cfg
}

// findScanFiles resolves the PLY files to process: the explicit input file
// if given, otherwise all *.ply files under the data dir.
func (a *App) findScanFiles() ([]string, error) {
	if a.opts.InputFile != "" {
		return []string{a.opts.InputFile}, nil
	}

	pattern := filepath.Join(a.opts.DataDir, "*.ply")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("finding PLY files: %w", err)
	}
	if len(files) == 0 {
		files, _ = filepath.Glob("*.ply")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PLY files found (looked in %s)", a.opts.DataDir)
	}
	return files, nil
}

// scanIDForFile derives a scan id from a file path: the base name without
// extension, unless -scan overrides it.
func (a *App) scanIDForFile(path string) string {
	if a.opts.ScanID != "" {
		return a.opts.ScanID
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RunParseOnly parses the PLY inputs and prints their summaries.
func (a *App) RunParseOnly() error {
	files, err := a.findScanFiles()
	if err != nil {
		return err
	}

	fmt.Printf("Found %d scan file(s)\n\n", len(files))

	for _, file := range files {
		fmt.Printf("=== %s ===\n", a.scanIDForFile(file))
		fmt.Printf("File: %s\n", file)

		m, err := mesh.LoadScanFile(file)
		if err != nil {
			fmt.Printf("ERROR: %v\n\n", err)
			continue
		}

		boundary := mesh.BoundaryVertices(m)
		fmt.Printf("Vertices: %d\n", m.VertexCount())
		fmt.Printf("Faces: %d\n", m.TriangleCount())
		fmt.Printf("Boundary vertices: %d\n", len(boundary))
		fmt.Println()
	}
	return nil
}

// RunAnalyze loads the PLY inputs, runs the cleaning pipeline on each and
// writes the requested outputs (raster and/or vector images, GeoJSON,
// report).
func (a *App) RunAnalyze() error {
	a.loadConfig()

	files, err := a.findScanFiles()
	if err != nil {
		return err
	}
	cfg := a.cleanConfig()

	for _, file := range files {
		scanID := a.scanIDForFile(file)

		sc := a.Config.GetScanByID(scanID)
		var m *mesh.TriangleMesh
		if sc != nil && sc.Rotation != nil {
			m, err = mesh.LoadScanSource(&mesh.ScanConfig{ID: scanID, Path: file, Rotation: sc.Rotation})
		} else {
			m, err = mesh.LoadScanFile(file)
		}
		if err != nil {
			return err
		}

		result, err := mesh.AnalyzeScan(scanID, m, cfg)
		if err != nil {
			return err
		}
		a.StateTracker.UpdateResult(result)

		printReport(result.Report)

		if a.opts.ReportOnly {
			continue
		}

		if err := a.writeOutputs(result); err != nil {
			return err
		}
	}

	return nil
}

// writeOutputs writes the rendered images and optional GeoJSON for one
// analyzed scan, using the -output name (suffixed per scan when several
// scans are processed).
func (a *App) writeOutputs(result *mesh.ScanResult) error {
	outputPath := a.outputPathFor(result.ScanID)
	format := a.opts.RenderFormat
	if format != "raster" && format != "vector" && format != "both" {
		return fmt.Errorf("invalid format: %s (must be raster, vector, or both)", format)
	}

	if format == "raster" || format == "both" {
		renderer := mesh.NewAnalysisRenderer(result.Mesh, result.Classification.FaceReasons)
		if a.Config.Render.Scale > 0 {
			renderer.Scale = a.Config.Render.Scale
		}

		path := outputPath
		if !strings.HasSuffix(path, ".png") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		}
		if err := renderer.SavePNG(path); err != nil {
			return fmt.Errorf("rendering raster: %w", err)
		}
		fmt.Printf("Created raster: %s\n", path)
	}

	if format == "vector" || format == "both" {
		renderer := mesh.NewVectorAnalysisRenderer(result.Mesh, result.Classification.FaceReasons)

		ext := ".svg"
		if a.opts.VectorFormat == "png" {
			ext = ".png"
		}
		base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
		if format == "both" && ext == ".png" {
			// The raster pass already owns base.png.
			base += "-vector"
		}
		path := base + ext

		outFile, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file %s: %w", path, err)
		}

		if ext == ".svg" {
			err = renderer.RenderToSVG(outFile)
		} else {
			err = renderer.RenderToPNG(outFile)
		}
		if cerr := outFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("rendering vector: %w", err)
		}
		fmt.Printf("Created vector: %s\n", path)
	}

	if a.opts.GeoJSONFile != "" {
		path := a.opts.GeoJSONFile
		if a.opts.ScanID == "" && a.StateTracker.HasResults() && len(a.StateTracker.ScanIDs()) > 1 {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + "-" + result.ScanID + ".geojson"
		}
		if err := mesh.SaveGeoJSON(path, result.Mesh, result.Classification.FaceReasons); err != nil {
			return err
		}
		fmt.Printf("Created geojson: %s\n", path)
	}

	return nil
}

func (a *App) outputPathFor(scanID string) string {
	out := a.opts.OutputFile
	if len(a.StateTracker.ScanIDs()) <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-" + scanID + ext
}

func printReport(report *mesh.ScanReport) {
	fmt.Printf("=== %s ===\n", report.ScanID)
	fmt.Printf("Vertices: %d, Faces: %d, Components: %d\n",
		report.VertexCount, report.FaceCount, report.ClusterCount)
	fmt.Printf("Asymmetry index: %.3f\n", report.AsymmetryIndex)
	fmt.Println("Vertex classification:")
	for _, rc := range report.VertexReasons {
		fmt.Printf("  %-28s %8d (%.1f%%)\n", rc.Label, rc.Count, rc.Fraction*100)
	}
	fmt.Println("Face classification:")
	for _, rc := range report.FaceReasons {
		fmt.Printf("  %-28s %8d (%.1f%%)\n", rc.Label, rc.Count, rc.Fraction*100)
	}
	fmt.Println()
}

// RunService starts the MQTT and/or HTTP service surfaces and blocks until
// a termination signal arrives.
func (a *App) RunService() error {
	fmt.Println("Starting backmesh service...")

	config, err := mesh.LoadConfig(a.opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.opts.ConfigFile)

	cfg := a.cleanConfig()

	// Analyze configured scans up front so HTTP has content immediately.
	for i := range config.Scans {
		sc := &config.Scans[i]
		m, err := mesh.LoadScanSource(sc)
		if err != nil {
			log.Printf("Warning: loading scan %s: %v", sc.ID, err)
			continue
		}
		result, err := mesh.AnalyzeScan(sc.ID, m, cfg)
		if err != nil {
			log.Printf("Warning: analyzing scan %s: %v", sc.ID, err)
			continue
		}
		a.StateTracker.UpdateResult(result)
	}

	if a.opts.MqttMode {
		jobHandler := func(job *mesh.ScanJob, err error) {
			if err != nil {
				log.Printf("Error receiving scan job: %v", err)
				return
			}

			sc := &mesh.ScanConfig{ID: job.ScanID, Path: job.Path, URL: job.URL, Rotation: job.Rotation}
			m, err := mesh.LoadScanSource(sc)
			if err != nil {
				log.Printf("Error loading scan %s: %v", job.ScanID, err)
				return
			}

			result, err := mesh.AnalyzeScan(job.ScanID, m, cfg)
			if err != nil {
				log.Printf("Error analyzing scan %s: %v", job.ScanID, err)
				return
			}
			a.StateTracker.UpdateResult(result)

			if a.Publisher != nil {
				if err := a.Publisher.PublishReport(result.Report); err != nil {
					log.Printf("Error publishing report for %s: %v", job.ScanID, err)
				}
			}
		}

		mqttClient, err := mesh.InitMQTT(config, jobHandler)
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		if mqttClient != nil {
			a.MQTTClient = mqttClient
			a.Publisher = mesh.NewPublisher(mqttClient.GetClient())
			a.Publisher.SetPublishPrefix(config.MQTT.PublishPrefix)
			defer mqttClient.Disconnect()
		}
	}

	var httpServer *http.Server
	if a.opts.HttpMode {
		handler := newHTTPServer(a.StateTracker, config)
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", a.opts.HttpPort),
			Handler: handler,
		}

		go func() {
			log.Printf("HTTP server listening on port %d", a.opts.HttpPort)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	// Block until termination signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	if httpServer != nil {
		closeTimer := time.AfterFunc(5*time.Second, func() { _ = httpServer.Close() })
		defer closeTimer.Stop()
		_ = httpServer.Close()
	}

	return nil
}
