package mesh

import "math"

// Reason codes classify why a vertex or face is marked for removal.
// The numeric values are the external contract: renderers, reports and
// MQTT consumers all key off these exact codes.
const (
	ReasonKept      uint8 = 0
	ReasonCurvature uint8 = 1
	ReasonVariance  uint8 = 2
	ReasonBorder    uint8 = 3
	ReasonIsland    uint8 = 4 // face-level only
)

// ReasonLabels maps reason codes to human-readable labels for legends
// and reports.
var ReasonLabels = map[uint8]string{
	ReasonKept:      "Kept",
	ReasonCurvature: "Removed: High Curvature",
	ReasonVariance:  "Removed: High Variance",
	ReasonBorder:    "Removed: Border Region",
	ReasonIsland:    "Removed: Isolated Island",
}

// Vec3 is a 3D point or direction.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length, or the zero vector if v is zero.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// TriangleMesh is a surface scan: vertex positions plus triangles indexing
// into them. Vertex and triangle indices are dense, starting at 0.
type TriangleMesh struct {
	Vertices  []Vec3
	Triangles [][3]int
}

// VertexCount returns the number of vertices.
func (m *TriangleMesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns the number of triangles.
func (m *TriangleMesh) TriangleCount() int { return len(m.Triangles) }

// IsEmpty reports whether the mesh has no vertices.
func (m *TriangleMesh) IsEmpty() bool { return len(m.Vertices) == 0 }

// CleanConfig holds the parameters for the four cleaning stages.
// Zero-value booleans mean "stage disabled"; use DefaultCleanConfig for the
// standard screening setup.
type CleanConfig struct {
	// Stage 1: absolute curvature thresholds.
	CleanByCurvature bool    `yaml:"cleanByCurvature" json:"cleanByCurvature"`
	CurvHighThresh   float64 `yaml:"curvHighThresh" json:"curvHighThresh"`
	CurvLowThresh    float64 `yaml:"curvLowThresh" json:"curvLowThresh"`

	// Stage 2: local curvature variance threshold.
	CleanByVariance bool    `yaml:"cleanByVariance" json:"cleanByVariance"`
	VarianceThresh  float64 `yaml:"varianceThresh" json:"varianceThresh"`

	// Stage 3: boundary-proximity dilation.
	CleanBorders bool `yaml:"cleanBorders" json:"cleanBorders"`
	BorderRings  int  `yaml:"borderRings" json:"borderRings"`

	// Stage 4: minority connected-component pruning.
	RemoveIslands bool `yaml:"removeIslands" json:"removeIslands"`
}

// DefaultCleanConfig returns the standard thresholds used for back-surface
// scoliosis screening scans.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		CleanByCurvature: true,
		CurvHighThresh:   0.05,
		CurvLowThresh:    -0.1,
		CleanByVariance:  true,
		VarianceThresh:   0.001,
		CleanBorders:     true,
		BorderRings:      5,
		RemoveIslands:    true,
	}
}

// RotationConfig levels a scan before projection and rendering.
// Angles are in degrees around the X, Y and Z axes.
type RotationConfig struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// IsZero reports whether no rotation is configured.
func (r RotationConfig) IsZero() bool { return r.X == 0 && r.Y == 0 && r.Z == 0 }

// ScanConfig defines one scan source from the config file.
type ScanConfig struct {
	ID       string          `yaml:"id" json:"id"`
	Path     string          `yaml:"path,omitempty" json:"path,omitempty"`
	URL      string          `yaml:"url,omitempty" json:"url,omitempty"`
	Rotation *RotationConfig `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// RenderConfig holds rendering settings.
type RenderConfig struct {
	Scale      float64 `yaml:"scale,omitempty" json:"scale,omitempty"`           // pixels per mesh unit
	Resolution float64 `yaml:"resolution,omitempty" json:"resolution,omitempty"` // vector PNG DPI (default 300)
}

// Config represents the full configuration file.
type Config struct {
	MQTT   MQTTConfig   `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Clean  CleanConfig  `yaml:"clean" json:"clean"`
	Render RenderConfig `yaml:"render,omitempty" json:"render,omitempty"`
	Scans  []ScanConfig `yaml:"scans,omitempty" json:"scans,omitempty"`
}

// GetScanByID returns the scan config for the given ID, or nil.
func (c *Config) GetScanByID(id string) *ScanConfig {
	for i := range c.Scans {
		if c.Scans[i].ID == id {
			return &c.Scans[i]
		}
	}
	return nil
}
