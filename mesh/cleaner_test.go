package mesh

import (
	"reflect"
	"testing"
)

// stripMesh builds a triangle strip over n vertices laid out along the X
// axis, with triangles (i, i+1, i+2). Shared by the classification tests.
func stripMesh(n int) *TriangleMesh {
	m := &TriangleMesh{}
	for i := 0; i < n; i++ {
		y := 0.0
		if i%2 == 1 {
			y = 1.0
		}
		m.Vertices = append(m.Vertices, Vec3{X: float64(i), Y: y})
	}
	for i := 0; i+2 < n; i++ {
		m.Triangles = append(m.Triangles, [3]int{i, i + 1, i + 2})
	}
	return m
}

// fanMesh builds a hexagonal fan: center vertex 0 surrounded by ring
// vertices 1..6. The center is the only interior vertex.
func fanMesh() *TriangleMesh {
	m := &TriangleMesh{
		Vertices: []Vec3{{0, 0, 0}},
	}
	for i := 0; i < 6; i++ {
		m.Vertices = append(m.Vertices, Vec3{X: float64(i + 1), Y: 1})
	}
	for i := 1; i <= 6; i++ {
		next := i + 1
		if next > 6 {
			next = 1
		}
		m.Triangles = append(m.Triangles, [3]int{0, i, next})
	}
	return m
}

func onlyStage(cfg CleanConfig, stage string) CleanConfig {
	cfg.CleanByCurvature = stage == "curvature"
	cfg.CleanByVariance = stage == "variance"
	cfg.CleanBorders = stage == "borders"
	cfg.RemoveIslands = stage == "islands"
	return cfg
}

func TestCleanCurvatureStage(t *testing.T) {
	m := stripMesh(10)
	graph := BuildAdjacency(m)

	curvatures := make([]float64, 10)
	curvatures[0] = 0.1  // above high threshold
	curvatures[1] = -0.2 // below low threshold

	cfg := onlyStage(DefaultCleanConfig(), "curvature")
	cls, err := Clean(m, graph, curvatures, nil, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	want := []uint8{1, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(cls.VertexReasons, want) {
		t.Errorf("vertex reasons = %v, want %v", cls.VertexReasons, want)
	}

	// Faces inherit the mark through the max aggregation.
	if cls.FaceReasons[0] != ReasonCurvature || cls.FaceReasons[1] != ReasonCurvature {
		t.Errorf("faces touching marked vertices should carry ReasonCurvature, got %v", cls.FaceReasons[:2])
	}
	for f := 2; f < len(cls.FaceReasons); f++ {
		if cls.FaceReasons[f] != ReasonKept {
			t.Errorf("face %d = %d, want kept", f, cls.FaceReasons[f])
		}
	}
}

func TestCleanCurvatureThresholdsExclusive(t *testing.T) {
	// Values exactly at the thresholds are kept: the comparison is strict.
	m := stripMesh(4)
	graph := BuildAdjacency(m)

	curvatures := []float64{0.05, -0.1, 0, 0}
	cfg := onlyStage(DefaultCleanConfig(), "curvature")
	cls, err := Clean(m, graph, curvatures, nil, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	for v, r := range cls.VertexReasons {
		if r != ReasonKept {
			t.Errorf("vertex %d marked %d, threshold values must be kept", v, r)
		}
	}
}

func TestCleanVarianceStage(t *testing.T) {
	// Fan of two triangles: 0-{1,2,3}, 1-{0,2}, 2-{0,1,3}, 3-{0,2}.
	m := &TriangleMesh{
		Vertices:  []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {-1, 0, 0}},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	graph := BuildAdjacency(m)

	// Vertex 1 is the outlier; vertices 0 and 2 see it among their
	// neighbors with variance 2/9 ~ 0.222, vertices 1 and 3 see only
	// zeros.
	curvatures := []float64{0, 1, 0, 0}

	cfg := onlyStage(DefaultCleanConfig(), "variance")
	cfg.VarianceThresh = 0.1
	cls, err := Clean(m, graph, curvatures, nil, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	want := []uint8{ReasonVariance, ReasonKept, ReasonVariance, ReasonKept}
	if !reflect.DeepEqual(cls.VertexReasons, want) {
		t.Errorf("vertex reasons = %v, want %v", cls.VertexReasons, want)
	}
}

func TestCleanVarianceExcludesOwnCurvature(t *testing.T) {
	// A vertex with a wild curvature of its own but uniform neighbors must
	// not be marked by the variance stage.
	m := fanMesh()
	graph := BuildAdjacency(m)

	curvatures := make([]float64, 7)
	curvatures[0] = 5.0 // center outlier; neighbors 1..6 are all 0

	cfg := onlyStage(DefaultCleanConfig(), "variance")
	cfg.VarianceThresh = 0.001
	cls, err := Clean(m, graph, curvatures, nil, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if cls.VertexReasons[0] != ReasonKept {
		t.Errorf("center vertex marked %d, own curvature must not enter the variance", cls.VertexReasons[0])
	}
	// The ring vertices all see the center outlier.
	for v := 1; v <= 6; v++ {
		if cls.VertexReasons[v] != ReasonVariance {
			t.Errorf("ring vertex %d = %d, want ReasonVariance", v, cls.VertexReasons[v])
		}
	}
}

func TestCleanStagesDoNotOverwrite(t *testing.T) {
	m := stripMesh(10)
	graph := BuildAdjacency(m)

	// Vertex 0 qualifies for both the curvature stage and the border
	// stage; the earlier mark must stand.
	curvatures := make([]float64, 10)
	curvatures[0] = 1.0

	cfg := DefaultCleanConfig()
	cfg.RemoveIslands = false
	cfg.BorderRings = 0
	cls, err := Clean(m, graph, curvatures, []int{0, 9}, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if cls.VertexReasons[0] != ReasonCurvature {
		t.Errorf("vertex 0 = %d, the curvature mark must not be overwritten", cls.VertexReasons[0])
	}
	if cls.VertexReasons[9] != ReasonBorder {
		t.Errorf("vertex 9 = %d, want ReasonBorder", cls.VertexReasons[9])
	}
}

func TestCleanBorderRingsZeroMarksOnlySeeds(t *testing.T) {
	m := stripMesh(10)
	graph := BuildAdjacency(m)

	cfg := onlyStage(DefaultCleanConfig(), "borders")
	cfg.BorderRings = 0
	cls, err := Clean(m, graph, make([]float64, 10), []int{3, 7}, nil, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	for v, r := range cls.VertexReasons {
		wantMarked := v == 3 || v == 7
		if (r == ReasonBorder) != wantMarked {
			t.Errorf("vertex %d = %d, want marked=%v", v, r, wantMarked)
		}
	}
}

func TestDilateRings(t *testing.T) {
	// Strip over 6 vertices; distances from vertex 0 are
	// 0:0, 1:1, 2:1, 3:2, 4:2, 5:3.
	m := stripMesh(6)
	graph := BuildAdjacency(m)

	tests := []struct {
		rings int
		want  []bool
	}{
		{0, []bool{true, false, false, false, false, false}},
		{1, []bool{true, true, true, false, false, false}},
		{2, []bool{true, true, true, true, true, false}},
		{3, []bool{true, true, true, true, true, true}},
	}

	for _, tt := range tests {
		got := DilateRings(graph, []int{0}, tt.rings)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("rings=%d: got %v, want %v", tt.rings, got, tt.want)
		}
	}
}

func TestDilateRingsMonotone(t *testing.T) {
	m := fanMesh()
	graph := BuildAdjacency(m)

	prev := DilateRings(graph, []int{1}, 0)
	for rings := 1; rings <= 4; rings++ {
		cur := DilateRings(graph, []int{1}, rings)
		for v := range prev {
			if prev[v] && !cur[v] {
				t.Fatalf("rings=%d lost vertex %d marked at rings=%d", rings, v, rings-1)
			}
		}
		prev = cur
	}
}

func TestDilateRingsIgnoresOutOfRangeSeeds(t *testing.T) {
	m := stripMesh(5)
	graph := BuildAdjacency(m)

	got := DilateRings(graph, []int{-1, 2, 99}, 0)
	want := []bool{false, false, true, false, false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAggregateFaceReasons(t *testing.T) {
	triangles := [][3]int{{0, 1, 2}, {2, 3, 4}, {3, 4, 0}}
	vertexReasons := []uint8{0, 1, 3, 0, 2}

	got := AggregateFaceReasons(triangles, vertexReasons)
	want := []uint8{3, 3, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("face reasons = %v, want %v", got, want)
	}
}

// twoComponentMesh glues a 6-face strip (vertices 0..7) and a disjoint
// 2-face strip (vertices 8..11) into one mesh.
func twoComponentMesh() *TriangleMesh {
	m := stripMesh(8)
	base := len(m.Vertices)
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, Vec3{X: float64(i), Y: 100})
	}
	m.Triangles = append(m.Triangles,
		[3]int{base, base + 1, base + 2},
		[3]int{base + 1, base + 2, base + 3},
	)
	return m
}

func TestCleanIslandStage(t *testing.T) {
	m := twoComponentMesh()
	graph := BuildAdjacency(m)
	clusters := ClusterTriangles(m)

	if clusters.ClusterCount() != 2 {
		t.Fatalf("expected 2 components, got %d", clusters.ClusterCount())
	}

	cfg := onlyStage(DefaultCleanConfig(), "islands")
	cls, err := Clean(m, graph, make([]float64, m.VertexCount()), nil, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	// The 6-face component survives; the 2-face component is demoted.
	for f := 0; f < 6; f++ {
		if cls.FaceReasons[f] != ReasonKept {
			t.Errorf("face %d = %d, want kept", f, cls.FaceReasons[f])
		}
	}
	for f := 6; f < 8; f++ {
		if cls.FaceReasons[f] != ReasonIsland {
			t.Errorf("face %d = %d, want ReasonIsland", f, cls.FaceReasons[f])
		}
	}
	// Island marks never touch the vertex buffer.
	for v, r := range cls.VertexReasons {
		if r != ReasonKept {
			t.Errorf("vertex %d = %d, island stage must not mark vertices", v, r)
		}
	}
}

func TestCleanIslandStageCountsKeptFacesOnly(t *testing.T) {
	// The big component has 6 faces but only 1 survives the curvature
	// stage; the small component keeps both of its faces and wins.
	m := twoComponentMesh()
	graph := BuildAdjacency(m)
	clusters := ClusterTriangles(m)

	curvatures := make([]float64, m.VertexCount())
	for v := 3; v <= 7; v++ {
		curvatures[v] = 1.0
	}

	cfg := DefaultCleanConfig()
	cfg.CleanByVariance = false
	cfg.CleanBorders = false
	cls, err := Clean(m, graph, curvatures, nil, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if cls.FaceReasons[0] != ReasonIsland {
		t.Errorf("face 0 = %d, the lone kept face of the big component should be demoted", cls.FaceReasons[0])
	}
	for f := 1; f < 6; f++ {
		if cls.FaceReasons[f] != ReasonCurvature {
			t.Errorf("face %d = %d, want ReasonCurvature", f, cls.FaceReasons[f])
		}
	}
	for f := 6; f < 8; f++ {
		if cls.FaceReasons[f] != ReasonKept {
			t.Errorf("face %d = %d, want kept", f, cls.FaceReasons[f])
		}
	}
}

func TestCleanIslandStageTieGoesToLowestCluster(t *testing.T) {
	// Two disjoint 2-face strips; equal kept counts, lowest id wins.
	m := &TriangleMesh{}
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, Vec3{X: float64(i)})
	}
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, Vec3{X: float64(i), Y: 50})
	}
	m.Triangles = [][3]int{
		{0, 1, 2}, {1, 2, 3},
		{4, 5, 6}, {5, 6, 7},
	}
	graph := BuildAdjacency(m)
	clusters := ClusterTriangles(m)

	cfg := onlyStage(DefaultCleanConfig(), "islands")
	cls, err := Clean(m, graph, make([]float64, 8), nil, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	want := []uint8{ReasonKept, ReasonKept, ReasonIsland, ReasonIsland}
	if !reflect.DeepEqual(cls.FaceReasons, want) {
		t.Errorf("face reasons = %v, want %v", cls.FaceReasons, want)
	}
}

func TestCleanIslandStageEmptyKeptSet(t *testing.T) {
	m := twoComponentMesh()
	graph := BuildAdjacency(m)
	clusters := ClusterTriangles(m)

	// Everything is marked by curvature, so no faces are kept and the
	// island stage has nothing to demote.
	curvatures := make([]float64, m.VertexCount())
	for v := range curvatures {
		curvatures[v] = 1.0
	}

	cfg := DefaultCleanConfig()
	cfg.CleanByVariance = false
	cfg.CleanBorders = false
	cls, err := Clean(m, graph, curvatures, nil, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	for f, r := range cls.FaceReasons {
		if r != ReasonCurvature {
			t.Errorf("face %d = %d, want ReasonCurvature", f, r)
		}
	}
}

func TestCleanAllStagesDisabled(t *testing.T) {
	m := stripMesh(10)
	graph := BuildAdjacency(m)

	curvatures := make([]float64, 10)
	curvatures[0] = 100 // would be marked if the stage ran

	cls, err := Clean(m, graph, curvatures, []int{0, 9}, nil, CleanConfig{})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	for v, r := range cls.VertexReasons {
		if r != ReasonKept {
			t.Errorf("vertex %d = %d, want kept with all stages off", v, r)
		}
	}
	for f, r := range cls.FaceReasons {
		if r != ReasonKept {
			t.Errorf("face %d = %d, want kept with all stages off", f, r)
		}
	}
}

func TestCleanFullPipeline(t *testing.T) {
	m := stripMesh(10)
	graph := BuildAdjacency(m)

	curvatures := make([]float64, 10)
	curvatures[0] = 0.1
	curvatures[1] = -0.2

	cfg := DefaultCleanConfig()
	cfg.VarianceThresh = 0.005
	cfg.BorderRings = 1

	clusters := ClusterTriangles(m)
	cls, err := Clean(m, graph, curvatures, []int{9}, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	// Stage 1 marks 0 and 1; stage 2 marks 2 and 3 (their neighborhoods
	// straddle the outliers); stage 3 dilates one ring from vertex 9.
	wantVertex := []uint8{1, 1, 2, 2, 0, 0, 0, 3, 3, 3}
	if !reflect.DeepEqual(cls.VertexReasons, wantVertex) {
		t.Errorf("vertex reasons = %v, want %v", cls.VertexReasons, wantVertex)
	}

	wantFace := []uint8{2, 2, 2, 2, 0, 3, 3, 3}
	if !reflect.DeepEqual(cls.FaceReasons, wantFace) {
		t.Errorf("face reasons = %v, want %v", cls.FaceReasons, wantFace)
	}
}

func TestCleanDeterministic(t *testing.T) {
	m := twoComponentMesh()
	graph := BuildAdjacency(m)
	clusters := ClusterTriangles(m)
	boundary := BoundaryVertices(m)
	curvatures := MeanCurvature(m, graph)

	cfg := DefaultCleanConfig()
	cfg.BorderRings = 1

	first, err := Clean(m, graph, curvatures, boundary, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	second, err := Clean(m, graph, curvatures, boundary, clusters, cfg)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated runs over identical inputs diverged")
	}
}

func TestCleanValidation(t *testing.T) {
	m := stripMesh(5)
	graph := BuildAdjacency(m)
	cfg := DefaultCleanConfig()
	cfg.RemoveIslands = false

	t.Run("EmptyMesh", func(t *testing.T) {
		empty := &TriangleMesh{}
		if _, err := Clean(empty, BuildAdjacency(empty), nil, nil, nil, cfg); err == nil {
			t.Error("expected error for empty mesh")
		}
	})

	t.Run("CurvatureLengthMismatch", func(t *testing.T) {
		if _, err := Clean(m, graph, make([]float64, 3), nil, nil, cfg); err == nil {
			t.Error("expected error for curvature length mismatch")
		}
	})

	t.Run("MissingClusters", func(t *testing.T) {
		withIslands := cfg
		withIslands.RemoveIslands = true
		if _, err := Clean(m, graph, make([]float64, 5), nil, nil, withIslands); err == nil {
			t.Error("expected error when island removal has no cluster assignment")
		}
	})

	t.Run("ClusterLengthMismatch", func(t *testing.T) {
		withIslands := cfg
		withIslands.RemoveIslands = true
		clusters := &ClusterResult{FaceClusters: []int{0}, ClusterSizes: map[int]int{0: 1}}
		if _, err := Clean(m, graph, make([]float64, 5), nil, clusters, withIslands); err == nil {
			t.Error("expected error for cluster length mismatch")
		}
	})

	t.Run("NegativeBorderRings", func(t *testing.T) {
		bad := cfg
		bad.BorderRings = -1
		if _, err := Clean(m, graph, make([]float64, 5), nil, nil, bad); err == nil {
			t.Error("expected error for negative border rings")
		}
	})
}
