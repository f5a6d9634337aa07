package mesh

import (
	"fmt"
	"log"
	"time"
)

// AnalyzeScan runs the full analysis over a loaded scan: adjacency and
// boundary derivation, curvature estimation, triangle clustering, the
// four-stage cleaning classification and the summary report. The mesh is
// not modified. This is the single entry point the CLI, MQTT and HTTP
// surfaces share.
func AnalyzeScan(scanID string, m *TriangleMesh, cfg CleanConfig) (*ScanResult, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("analyzing %s: mesh has no vertices", scanID)
	}

	start := time.Now()
	log.Printf("Analyzing %s: %d vertices, %d faces", scanID, m.VertexCount(), m.TriangleCount())

	graph := BuildAdjacency(m)
	curvatures := MeanCurvature(m, graph)
	boundary := BoundaryVertices(m)

	var clusters *ClusterResult
	if cfg.RemoveIslands {
		clusters = ClusterTriangles(m)
		log.Printf("Found %d connected components", clusters.ClusterCount())
	}

	cls, err := Clean(m, graph, curvatures, boundary, clusters, cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", scanID, err)
	}

	report := BuildReport(scanID, m, cls, clusters, curvatures, cfg)
	log.Printf("Analysis of %s done in %v (%.1f%% of faces kept)",
		scanID, time.Since(start).Round(time.Millisecond), report.KeptFaceFraction()*100)

	return &ScanResult{
		ScanID:         scanID,
		Mesh:           m,
		Classification: cls,
		Report:         report,
	}, nil
}

// LoadScanSource loads a scan from a ScanConfig, from disk or over HTTP,
// and applies any configured leveling rotation.
func LoadScanSource(sc *ScanConfig) (*TriangleMesh, error) {
	var (
		m   *TriangleMesh
		err error
	)
	switch {
	case sc.Path != "":
		m, err = LoadScanFile(sc.Path)
	case sc.URL != "":
		m, err = FetchScanFromURL(sc.URL)
	default:
		return nil, fmt.Errorf("scan %s: no path or url configured", sc.ID)
	}
	if err != nil {
		return nil, err
	}

	if sc.Rotation != nil && !sc.Rotation.IsZero() {
		RotateMesh(m, sc.Rotation.X, sc.Rotation.Y, sc.Rotation.Z)
	}
	return m, nil
}
