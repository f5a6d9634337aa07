package mesh

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAnalyzeScan(t *testing.T) {
	m := twoComponentMesh()

	result, err := AnalyzeScan("unit-scan", m, DefaultCleanConfig())
	if err != nil {
		t.Fatalf("AnalyzeScan failed: %v", err)
	}

	if result.ScanID != "unit-scan" {
		t.Errorf("scan id = %q", result.ScanID)
	}
	if result.Mesh != m {
		t.Error("result does not reference the analyzed mesh")
	}
	if len(result.Classification.VertexReasons) != m.VertexCount() {
		t.Errorf("vertex reasons length = %d", len(result.Classification.VertexReasons))
	}
	if len(result.Classification.FaceReasons) != m.TriangleCount() {
		t.Errorf("face reasons length = %d", len(result.Classification.FaceReasons))
	}
	if result.Report == nil || result.Report.ClusterCount != 2 {
		t.Errorf("report = %+v", result.Report)
	}
}

func TestAnalyzeScanSkipsClusteringWhenIslandsDisabled(t *testing.T) {
	m := twoComponentMesh()

	cfg := DefaultCleanConfig()
	cfg.RemoveIslands = false
	result, err := AnalyzeScan("s", m, cfg)
	if err != nil {
		t.Fatalf("AnalyzeScan failed: %v", err)
	}

	if result.Report.ClusterCount != 0 {
		t.Errorf("cluster count = %d, want 0 when islands are disabled", result.Report.ClusterCount)
	}
	for _, r := range result.Classification.FaceReasons {
		if r == ReasonIsland {
			t.Error("island marks present with island stage disabled")
		}
	}
}

func TestAnalyzeScanEmptyMesh(t *testing.T) {
	if _, err := AnalyzeScan("s", &TriangleMesh{}, DefaultCleanConfig()); err == nil {
		t.Error("expected error for empty mesh")
	}
}

func TestLoadScanSourceFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.ply")
	if err := os.WriteFile(path, []byte(asciiPLY), 0644); err != nil {
		t.Fatalf("writing scan: %v", err)
	}

	m, err := LoadScanSource(&ScanConfig{ID: "s", Path: path})
	if err != nil {
		t.Fatalf("LoadScanSource failed: %v", err)
	}
	if m.VertexCount() != 4 {
		t.Errorf("vertex count = %d", m.VertexCount())
	}
}

func TestLoadScanSourceAppliesRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.ply")
	if err := os.WriteFile(path, []byte(asciiPLY), 0644); err != nil {
		t.Fatalf("writing scan: %v", err)
	}

	m, err := LoadScanSource(&ScanConfig{
		ID:       "s",
		Path:     path,
		Rotation: &RotationConfig{Z: 180},
	})
	if err != nil {
		t.Fatalf("LoadScanSource failed: %v", err)
	}

	// Vertex 1 of the fixture is (1,0,0); rotated 180 degrees about Z it
	// lands on (-1,0,0).
	if !vecNear(m.Vertices[1], Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("vertex 1 = %+v, rotation not applied", m.Vertices[1])
	}
}

func TestLoadScanSourceNoSource(t *testing.T) {
	if _, err := LoadScanSource(&ScanConfig{ID: "s"}); err == nil {
		t.Error("expected error when neither path nor url is set")
	}
}
