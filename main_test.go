package main

import (
	"bytes"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunParseOnly() error          { m.called["RunParseOnly"] = true; return nil }
func (m *mockApp) RunAnalyze() error            { m.called["RunAnalyze"] = true; return nil }
func (m *mockApp) RunService() error            { m.called["RunService"] = true; return nil }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "ParseOnly",
			args:           []string{"--parse-only", "--data-dir", "/tmp/data"},
			expectedCalled: "RunParseOnly",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.DataDir != "/tmp/data" {
					t.Errorf("expected DataDir /tmp/data, got %s", opts.DataDir)
				}
				if !opts.ParseOnly {
					t.Error("expected ParseOnly true")
				}
			},
		},
		{
			name:           "AnalyzeInput",
			args:           []string{"--input", "scan.ply", "--output", "out.png"},
			expectedCalled: "RunAnalyze",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.InputFile != "scan.ply" {
					t.Errorf("expected InputFile scan.ply, got %s", opts.InputFile)
				}
				if opts.OutputFile != "out.png" {
					t.Errorf("expected OutputFile out.png, got %s", opts.OutputFile)
				}
			},
		},
		{
			name:           "ReportOnly",
			args:           []string{"--report", "--scan", "clinic-7"},
			expectedCalled: "RunAnalyze",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.ReportOnly {
					t.Error("expected ReportOnly true")
				}
				if opts.ScanID != "clinic-7" {
					t.Errorf("expected ScanID clinic-7, got %s", opts.ScanID)
				}
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt", "--http-port", "9090"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:           "HttpMode",
			args:           []string{"--http"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.HttpMode {
					t.Error("expected HttpMode true")
				}
				if opts.HttpPort != 8080 {
					t.Errorf("expected default HttpPort 8080, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:           "VectorRendering",
			args:           []string{"--input", "scan.ply", "--format", "vector", "--vector-format", "svg"},
			expectedCalled: "RunAnalyze",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.RenderFormat != "vector" {
					t.Errorf("expected RenderFormat vector, got %s", opts.RenderFormat)
				}
				if opts.VectorFormat != "svg" {
					t.Errorf("expected VectorFormat svg, got %s", opts.VectorFormat)
				}
			},
		},
		{
			name:           "StageOverrides",
			args:           []string{"--input", "scan.ply", "--no-islands", "--border-rings", "2"},
			expectedCalled: "RunAnalyze",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.NoIslands {
					t.Error("expected NoIslands true")
				}
				if opts.BorderRings != 2 {
					t.Errorf("expected BorderRings 2, got %d", opts.BorderRings)
				}
			},
		},
		{
			name:           "BorderRingsDefaultSentinel",
			args:           []string{"--input", "scan.ply"},
			expectedCalled: "RunAnalyze",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.BorderRings != -1 {
					t.Errorf("expected BorderRings sentinel -1, got %d", opts.BorderRings)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of backmesh") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "backmesh version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("default invocation should only print usage hints, called: %v", app.called)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
