package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// appRunner is the subset of App the flag dispatcher needs; tests substitute
// a mock.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	RunParseOnly() error
	RunAnalyze() error
	RunService() error
}

func main() {
	app := NewApp()
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run parses CLI flags and dispatches to the selected mode.
func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("backmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.DataDir, "data-dir", ".", "Directory containing PLY scan exports")
	fs.StringVar(&opts.InputFile, "input", "", "Analyze a single PLY file instead of scanning data-dir")
	fs.StringVar(&opts.ScanID, "scan", "", "Scan ID override (default: derived from file name)")
	fs.StringVar(&opts.OutputFile, "output", "analysis.png", "Output file for analysis renders")
	fs.StringVar(&opts.RenderFormat, "format", "raster", "Render format: raster, vector, or both")
	fs.StringVar(&opts.VectorFormat, "vector-format", "svg", "Vector output format: svg or png")
	fs.StringVar(&opts.GeoJSONFile, "geojson", "", "Also write classified faces as GeoJSON to this file")
	fs.BoolVar(&opts.ParseOnly, "parse-only", false, "Parse PLY exports and print mesh summaries (test mode)")
	fs.BoolVar(&opts.ReportOnly, "report", false, "Analyze and print the report without writing images")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode for scan job processing")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for serving analysis results")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")

	// Cleaning stage overrides
	fs.BoolVar(&opts.NoCurvature, "no-curvature", false, "Disable the curvature threshold stage")
	fs.BoolVar(&opts.NoVariance, "no-variance", false, "Disable the neighbor variance stage")
	fs.BoolVar(&opts.NoBorders, "no-borders", false, "Disable the border dilation stage")
	fs.BoolVar(&opts.NoIslands, "no-islands", false, "Disable the island removal stage")
	fs.IntVar(&opts.BorderRings, "border-rings", -1, "Override border dilation ring count (-1 = from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "backmesh version: %s\n", Version)

	app.ApplyOptions(opts)

	if opts.ParseOnly {
		return app.RunParseOnly()
	}

	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	if opts.InputFile != "" || opts.ReportOnly {
		return app.RunAnalyze()
	}

	fmt.Fprintln(out, "backmesh scan analysis")
	fmt.Fprintln(out, "Use --input=scan.ply to analyze a single scan")
	fmt.Fprintln(out, "Use --parse-only to test PLY parsing")
	fmt.Fprintln(out, "Use --report to analyze and print reports without rendering")
	fmt.Fprintln(out, "Use --mqtt to run MQTT service mode")
	fmt.Fprintln(out, "Use --http to run HTTP server mode")
	fmt.Fprintln(out, "Use --mqtt --http to run both MQTT and HTTP together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - MQTT settings, cleaning thresholds and scan sources")
	return nil
}
