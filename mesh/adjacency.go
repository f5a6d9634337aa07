package mesh

import "sort"

// AdjacencyGraph is the vertex-to-neighbor relation of a triangle mesh,
// stored as a flattened offset/neighbor layout: the neighbors of vertex v
// occupy neighbors[offsets[v]:offsets[v+1]]. The relation is symmetric and
// read-only once built.
type AdjacencyGraph struct {
	offsets   []int
	neighbors []int
}

// VertexCount returns the number of vertices the graph was built over.
func (g *AdjacencyGraph) VertexCount() int { return len(g.offsets) - 1 }

// Neighbors returns the neighbor indices of vertex v. The returned slice
// aliases internal storage and must not be modified.
func (g *AdjacencyGraph) Neighbors(v int) []int {
	return g.neighbors[g.offsets[v]:g.offsets[v+1]]
}

// Degree returns the number of neighbors of vertex v.
func (g *AdjacencyGraph) Degree(v int) int {
	return g.offsets[v+1] - g.offsets[v]
}

// BuildAdjacency derives the vertex adjacency graph from the mesh triangles.
// Every vertex index 0..V-1 gets an entry, isolated vertices included.
// Each undirected edge appears once per endpoint, with duplicates from
// shared triangle edges removed.
func BuildAdjacency(m *TriangleMesh) *AdjacencyGraph {
	v := m.VertexCount()

	// First pass: count edge endpoints per vertex (with duplicates).
	counts := make([]int, v)
	for _, tri := range m.Triangles {
		for i := 0; i < 3; i++ {
			counts[tri[i]] += 2
		}
	}

	offsets := make([]int, v+1)
	for i := 0; i < v; i++ {
		offsets[i+1] = offsets[i] + counts[i]
	}

	// Second pass: scatter both endpoints of every triangle edge.
	raw := make([]int, offsets[v])
	fill := make([]int, v)
	addEdge := func(a, b int) {
		raw[offsets[a]+fill[a]] = b
		fill[a]++
		raw[offsets[b]+fill[b]] = a
		fill[b]++
	}
	for _, tri := range m.Triangles {
		addEdge(tri[0], tri[1])
		addEdge(tri[1], tri[2])
		addEdge(tri[2], tri[0])
	}

	// Third pass: sort and deduplicate each vertex's neighbor run,
	// compacting into the final layout.
	finalOffsets := make([]int, v+1)
	neighbors := raw[:0]
	for i := 0; i < v; i++ {
		run := raw[offsets[i] : offsets[i]+fill[i]]
		sort.Ints(run)
		start := len(neighbors)
		for j, n := range run {
			if j > 0 && n == run[j-1] {
				continue
			}
			neighbors = append(neighbors, n)
		}
		finalOffsets[i+1] = finalOffsets[i] + (len(neighbors) - start)
	}

	return &AdjacencyGraph{
		offsets:   finalOffsets,
		neighbors: append([]int(nil), neighbors...),
	}
}

// edgeKey identifies an undirected edge by its sorted vertex pair.
type edgeKey struct {
	a, b int
}

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// BoundaryVertices returns the set of vertex indices lying on the mesh
// boundary or on non-manifold edges: every endpoint of an edge that is not
// shared by exactly two triangles. The result is sorted.
func BoundaryVertices(m *TriangleMesh) []int {
	edgeFaces := make(map[edgeKey]int, m.TriangleCount()*3/2)
	for _, tri := range m.Triangles {
		edgeFaces[makeEdgeKey(tri[0], tri[1])]++
		edgeFaces[makeEdgeKey(tri[1], tri[2])]++
		edgeFaces[makeEdgeKey(tri[2], tri[0])]++
	}

	marked := make(map[int]struct{})
	for e, n := range edgeFaces {
		if n != 2 {
			marked[e.a] = struct{}{}
			marked[e.b] = struct{}{}
		}
	}

	out := make([]int, 0, len(marked))
	for v := range marked {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
