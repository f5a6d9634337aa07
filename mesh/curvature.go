package mesh

import "math"

// MeanCurvature estimates a mean-curvature scalar per vertex using the
// discrete umbrella approximation of the Laplace-Beltrami operator: the
// average offset from a vertex to its neighbors, projected onto the vertex
// normal. The sign follows the normal orientation, so concave regions of
// the back surface read negative and convex ones positive. Vertices without
// neighbors get curvature 0.
func MeanCurvature(m *TriangleMesh, graph *AdjacencyGraph) []float64 {
	normals := VertexNormals(m)
	curvatures := make([]float64, m.VertexCount())

	for v := range m.Vertices {
		nbrs := graph.Neighbors(v)
		if len(nbrs) == 0 {
			continue
		}
		var laplacian Vec3
		for _, n := range nbrs {
			laplacian = laplacian.Add(m.Vertices[n].Sub(m.Vertices[v]))
		}
		laplacian = laplacian.Scale(1 / float64(len(nbrs)))
		curvatures[v] = laplacian.Dot(normals[v])
	}

	return curvatures
}

// VertexNormals computes area-weighted vertex normals: each triangle's
// (unnormalized) face normal, whose length is twice the triangle area, is
// accumulated onto its three vertices and the sums are normalized. Vertices
// not referenced by any triangle get the zero vector.
func VertexNormals(m *TriangleMesh) []Vec3 {
	normals := make([]Vec3, m.VertexCount())
	for _, tri := range m.Triangles {
		a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for i := 0; i < 3; i++ {
			normals[tri[i]] = normals[tri[i]].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

// AsymmetryIndex condenses per-vertex curvature into the single screening
// scalar used to grade scan severity: the absolute mean curvature, offset
// and rescaled to the reporting range. Returns 0 for an empty field.
func AsymmetryIndex(curvatures []float64) float64 {
	if len(curvatures) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range curvatures {
		mean += c
	}
	mean /= float64(len(curvatures))
	return (math.Abs(mean) + 0.005) * 10
}
