package mesh

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ClassificationToGeoJSON exports a classified scan as a GeoJSON
// FeatureCollection: one feature per reason code present, whose geometry is
// the MultiPolygon of the top-down (X/Y) projections of the faces carrying
// that code. Properties carry the code, label, face count and projected
// area so downstream viewers can style and rank the regions.
func ClassificationToGeoJSON(m *TriangleMesh, faceReasons []uint8) (*geojson.FeatureCollection, error) {
	if len(faceReasons) != m.TriangleCount() {
		return nil, fmt.Errorf("exporting geojson: %d face reasons for %d faces", len(faceReasons), m.TriangleCount())
	}

	byReason := make(map[uint8]orb.MultiPolygon)
	for f, tri := range m.Triangles {
		ring := orb.Ring{
			projectVertex(m.Vertices[tri[0]]),
			projectVertex(m.Vertices[tri[1]]),
			projectVertex(m.Vertices[tri[2]]),
		}
		ring = append(ring, ring[0]) // close the ring
		byReason[faceReasons[f]] = append(byReason[faceReasons[f]], orb.Polygon{ring})
	}

	fc := geojson.NewFeatureCollection()
	// Emit in code order for stable output.
	for _, code := range []uint8{ReasonKept, ReasonCurvature, ReasonVariance, ReasonBorder, ReasonIsland} {
		mp, ok := byReason[code]
		if !ok {
			continue
		}
		feature := geojson.NewFeature(mp)
		feature.Properties["reason"] = int(code)
		feature.Properties["label"] = ReasonLabels[code]
		feature.Properties["faceCount"] = len(mp)
		feature.Properties["area"] = math.Abs(planar.Area(mp))
		fc.Append(feature)
	}

	return fc, nil
}

// SaveGeoJSON writes the classification export to a file.
func SaveGeoJSON(path string, m *TriangleMesh, faceReasons []uint8) error {
	fc, err := ClassificationToGeoJSON(m, faceReasons)
	if err != nil {
		return err
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling geojson: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing geojson file: %w", err)
	}
	return nil
}

func projectVertex(v Vec3) orb.Point {
	return orb.Point{v.X, v.Y}
}
