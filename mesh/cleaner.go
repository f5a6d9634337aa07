package mesh

import (
	"fmt"
	"log"
)

// Classification is the pipeline output: one reason code per vertex and one
// per face, using the Reason* constants. Buffers are frozen once returned.
type Classification struct {
	VertexReasons []uint8 `json:"vertexReasons"`
	FaceReasons   []uint8 `json:"faceReasons"`
}

// Clean runs the multi-stage cleaning classification over a scan mesh.
//
// Stages run in fixed order over a shared per-vertex reason buffer:
//  1. absolute curvature thresholds
//  2. local curvature variance
//  3. boundary-proximity ring dilation
//
// then face reasons are derived (numeric max over each triangle's vertices)
// and, last, minority connected components of still-kept faces are demoted
// to islands. A vertex marked by one stage is never overwritten by a later
// stage. Disabled stages leave the buffers untouched.
//
// Input shape violations (empty mesh, curvature length != vertex count,
// cluster length != face count) fail before any stage runs.
func Clean(m *TriangleMesh, graph *AdjacencyGraph, curvatures []float64, boundary []int, clusters *ClusterResult, cfg CleanConfig) (*Classification, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("cleaning mesh: mesh has no vertices")
	}
	if len(curvatures) != m.VertexCount() {
		return nil, fmt.Errorf("cleaning mesh: curvature count %d does not match vertex count %d", len(curvatures), m.VertexCount())
	}
	if graph.VertexCount() != m.VertexCount() {
		return nil, fmt.Errorf("cleaning mesh: adjacency graph covers %d vertices, mesh has %d", graph.VertexCount(), m.VertexCount())
	}
	if cfg.RemoveIslands {
		if clusters == nil {
			return nil, fmt.Errorf("cleaning mesh: island removal enabled but no cluster assignment provided")
		}
		if len(clusters.FaceClusters) != m.TriangleCount() {
			return nil, fmt.Errorf("cleaning mesh: cluster assignment covers %d faces, mesh has %d", len(clusters.FaceClusters), m.TriangleCount())
		}
	}
	if cfg.BorderRings < 0 {
		return nil, fmt.Errorf("cleaning mesh: borderRings must be non-negative, got %d", cfg.BorderRings)
	}

	reasons := make([]uint8, m.VertexCount())

	if cfg.CleanByCurvature {
		n := markByCurvature(reasons, curvatures, cfg.CurvHighThresh, cfg.CurvLowThresh)
		log.Printf("Stage 1: marked %d vertices for 'Curvature'", n)
	}

	if cfg.CleanByVariance {
		n := markByVariance(reasons, graph, curvatures, cfg.VarianceThresh)
		log.Printf("Stage 2: marked %d new vertices for 'Variance'", n)
	}

	if cfg.CleanBorders {
		n := markBorders(reasons, graph, boundary, cfg.BorderRings)
		log.Printf("Stage 3: marked %d new vertices for 'Border'", n)
	}

	faceReasons := AggregateFaceReasons(m.Triangles, reasons)

	if cfg.RemoveIslands {
		n := markIslands(faceReasons, clusters.FaceClusters)
		log.Printf("Stage 4: marked %d faces as 'Islands'", n)
	}

	return &Classification{VertexReasons: reasons, FaceReasons: faceReasons}, nil
}

// markByCurvature marks every vertex whose curvature falls outside
// (low, high) with ReasonCurvature. Runs first, so no prior-mark guard is
// needed. Returns the number of vertices marked.
func markByCurvature(reasons []uint8, curvatures []float64, high, low float64) int {
	marked := 0
	for i, c := range curvatures {
		if c > high || c < low {
			reasons[i] = ReasonCurvature
			marked++
		}
	}
	return marked
}

// markByVariance marks still-kept vertices whose neighborhood curvature
// variance exceeds thresh with ReasonVariance. A vertex with no neighbors
// has variance 0 and is never marked. Returns the number of new marks.
func markByVariance(reasons []uint8, graph *AdjacencyGraph, curvatures []float64, thresh float64) int {
	marked := 0
	for v := range reasons {
		if reasons[v] != ReasonKept {
			continue
		}
		if neighborVariance(graph, curvatures, v) > thresh {
			reasons[v] = ReasonVariance
			marked++
		}
	}
	return marked
}

// neighborVariance computes the population variance of the curvature values
// of v's direct neighbors. The vertex's own curvature is excluded.
func neighborVariance(graph *AdjacencyGraph, curvatures []float64, v int) float64 {
	nbrs := graph.Neighbors(v)
	if len(nbrs) == 0 {
		return 0
	}
	mean := 0.0
	for _, n := range nbrs {
		mean += curvatures[n]
	}
	mean /= float64(len(nbrs))

	variance := 0.0
	for _, n := range nbrs {
		d := curvatures[n] - mean
		variance += d * d
	}
	return variance / float64(len(nbrs))
}

// markBorders dilates the boundary seed set by rings hops along the
// adjacency graph and marks every still-kept vertex in the dilated set with
// ReasonBorder. Returns the number of new marks.
func markBorders(reasons []uint8, graph *AdjacencyGraph, seeds []int, rings int) int {
	border := DilateRings(graph, seeds, rings)

	marked := 0
	for v, isBorder := range border {
		if isBorder && reasons[v] == ReasonKept {
			reasons[v] = ReasonBorder
			marked++
		}
	}
	return marked
}

// DilateRings expands a seed vertex set outward by exactly rings hops along
// the adjacency graph, one hop per ring. Each ring grows from the set as it
// stood at the start of that ring, so the result after k rings is exactly
// the set of vertices within graph distance k of a seed. rings = 0 returns
// the seed set unchanged. Seed indices outside 0..V-1 are ignored.
func DilateRings(graph *AdjacencyGraph, seeds []int, rings int) []bool {
	v := graph.VertexCount()
	border := make([]bool, v)
	frontier := make([]int, 0, len(seeds))
	for _, s := range seeds {
		if s < 0 || s >= v {
			continue
		}
		if !border[s] {
			border[s] = true
			frontier = append(frontier, s)
		}
	}

	for i := 0; i < rings && len(frontier) > 0; i++ {
		next := frontier[:0:0]
		for _, u := range frontier {
			for _, n := range graph.Neighbors(u) {
				if !border[n] {
					border[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	return border
}

// AggregateFaceReasons derives one reason per face as the numeric max of its
// three vertices' reasons. The max is purely numeric: it picks whichever
// non-zero code is present, preferring the larger value when several
// distinct marks meet on one face.
func AggregateFaceReasons(triangles [][3]int, vertexReasons []uint8) []uint8 {
	faceReasons := make([]uint8, len(triangles))
	for f, tri := range triangles {
		r := vertexReasons[tri[0]]
		if vr := vertexReasons[tri[1]]; vr > r {
			r = vr
		}
		if vr := vertexReasons[tri[2]]; vr > r {
			r = vr
		}
		faceReasons[f] = r
	}
	return faceReasons
}

// markIslands demotes preliminarily-kept faces outside the largest kept
// connected component to ReasonIsland. Component size is counted over kept
// faces only; a component's total face count is irrelevant. Ties go to the
// lowest cluster id. Already-marked faces are untouched, and an empty kept
// set makes the stage a no-op. Returns the number of faces demoted.
func markIslands(faceReasons []uint8, faceClusters []int) int {
	keptPerCluster := make(map[int]int)
	for f, r := range faceReasons {
		if r == ReasonKept {
			keptPerCluster[faceClusters[f]]++
		}
	}
	if len(keptPerCluster) == 0 {
		return 0
	}

	largest := -1
	largestCount := 0
	for id, count := range keptPerCluster {
		if count > largestCount || (count == largestCount && (largest == -1 || id < largest)) {
			largest = id
			largestCount = count
		}
	}

	marked := 0
	for f, r := range faceReasons {
		if r == ReasonKept && faceClusters[f] != largest {
			faceReasons[f] = ReasonIsland
			marked++
		}
	}
	return marked
}
