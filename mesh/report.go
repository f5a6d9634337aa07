package mesh

import "time"

// ReasonCount pairs a reason code with the number of entities carrying it.
type ReasonCount struct {
	Code     uint8   `json:"code"`
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// ScanReport summarizes one pipeline run for publishing and HTTP consumers.
type ScanReport struct {
	ScanID         string        `json:"scanId"`
	VertexCount    int           `json:"vertexCount"`
	FaceCount      int           `json:"faceCount"`
	ClusterCount   int           `json:"clusterCount"`
	AsymmetryIndex float64       `json:"asymmetryIndex"`
	VertexReasons  []ReasonCount `json:"vertexReasons"`
	FaceReasons    []ReasonCount `json:"faceReasons"`
	Config         CleanConfig   `json:"config"`
	Timestamp      int64         `json:"timestamp"`
}

// KeptFaceFraction returns the fraction of faces that survived all stages.
func (r *ScanReport) KeptFaceFraction() float64 {
	for _, rc := range r.FaceReasons {
		if rc.Code == ReasonKept {
			return rc.Fraction
		}
	}
	return 0
}

// BuildReport tallies a classification into a ScanReport.
func BuildReport(scanID string, m *TriangleMesh, cls *Classification, clusters *ClusterResult, curvatures []float64, cfg CleanConfig) *ScanReport {
	report := &ScanReport{
		ScanID:         scanID,
		VertexCount:    m.VertexCount(),
		FaceCount:      m.TriangleCount(),
		AsymmetryIndex: AsymmetryIndex(curvatures),
		VertexReasons:  countReasons(cls.VertexReasons, []uint8{ReasonKept, ReasonCurvature, ReasonVariance, ReasonBorder}),
		FaceReasons:    countReasons(cls.FaceReasons, []uint8{ReasonKept, ReasonCurvature, ReasonVariance, ReasonBorder, ReasonIsland}),
		Config:         cfg,
		Timestamp:      time.Now().Unix(),
	}
	if clusters != nil {
		report.ClusterCount = clusters.ClusterCount()
	}
	return report
}

func countReasons(reasons []uint8, codes []uint8) []ReasonCount {
	counts := make(map[uint8]int, len(codes))
	for _, r := range reasons {
		counts[r]++
	}

	total := len(reasons)
	out := make([]ReasonCount, 0, len(codes))
	for _, code := range codes {
		rc := ReasonCount{Code: code, Label: ReasonLabels[code], Count: counts[code]}
		if total > 0 {
			rc.Fraction = float64(rc.Count) / float64(total)
		}
		out = append(out, rc)
	}
	return out
}
