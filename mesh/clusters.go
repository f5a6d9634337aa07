package mesh

// ClusterResult is the connected-component partition of a mesh's triangles.
// FaceClusters holds one cluster id per face, ids numbered 0..N-1 in order
// of first appearance so the assignment is deterministic for a given
// triangle ordering. ClusterSizes maps each cluster id to its face count.
type ClusterResult struct {
	FaceClusters []int
	ClusterSizes map[int]int
}

// ClusterCount returns the number of connected components.
func (r *ClusterResult) ClusterCount() int { return len(r.ClusterSizes) }

// ClusterTriangles partitions the mesh faces into connected components.
// Two faces are connected when they share an edge (two vertex indices).
// Implemented as union-find with path compression and union by rank over
// the shared-edge face graph.
func ClusterTriangles(m *TriangleMesh) *ClusterResult {
	f := m.TriangleCount()

	parent := make([]int, f)
	rank := make([]int, f)
	for i := range parent {
		parent[i] = i
	}

	// Iterative find with path halving.
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rank[ra] < rank[rb] {
			parent[ra] = rb
		} else {
			parent[rb] = ra
			if rank[ra] == rank[rb] {
				rank[ra]++
			}
		}
	}

	// Union faces through shared edges. For edges shared by more than two
	// faces (non-manifold), every incident face still joins one component.
	edgeFace := make(map[edgeKey]int, f*3/2)
	for i, tri := range m.Triangles {
		for _, e := range [3]edgeKey{
			makeEdgeKey(tri[0], tri[1]),
			makeEdgeKey(tri[1], tri[2]),
			makeEdgeKey(tri[2], tri[0]),
		} {
			if first, ok := edgeFace[e]; ok {
				union(first, i)
			} else {
				edgeFace[e] = i
			}
		}
	}

	// Renumber roots to compact ids in first-face order.
	ids := make(map[int]int)
	faceClusters := make([]int, f)
	sizes := make(map[int]int)
	for i := 0; i < f; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		faceClusters[i] = id
		sizes[id]++
	}

	return &ClusterResult{FaceClusters: faceClusters, ClusterSizes: sizes}
}
