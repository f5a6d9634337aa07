package mesh

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha.
// The canvas library expects premultiplied RGBA.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorAnalysisRenderer renders a classified scan as vector graphics,
// one filled path per face in its reason color.
type VectorAnalysisRenderer struct {
	Mesh        *TriangleMesh
	FaceReasons []uint8
	Colors      map[uint8]color.NRGBA
	Padding     float64           // padding in mesh units
	Resolution  canvas.Resolution // resolution for PNG output
}

// NewVectorAnalysisRenderer creates a vector renderer with default settings.
func NewVectorAnalysisRenderer(m *TriangleMesh, faceReasons []uint8) *VectorAnalysisRenderer {
	return &VectorAnalysisRenderer{
		Mesh:        m,
		FaceReasons: faceReasons,
		Colors:      ReasonColors(),
		Padding:     10.0,
		Resolution:  canvas.DPI(300),
	}
}

// canvasRenderer is the subset of the canvas renderer interface both the
// SVG and rasterizer backends implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the classified scan as an SVG to the provided writer.
func (r *VectorAnalysisRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, maxX, maxY := r.bounds()

	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, width, height)

	// Close writes the SVG trailer.
	return svgRenderer.Close()
}

// RenderToPNG writes the classified scan as a rasterized PNG to the
// provided writer.
func (r *VectorAnalysisRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, maxX, maxY := r.bounds()

	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, width, height)

	return png.Encode(w, rast)
}

// renderToCanvas renders the faces to a canvas renderer (shared logic for
// SVG and PNG).
func (r *VectorAnalysisRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, width, height float64) {
	// Black background, matching the raster analysis image.
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.Black}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(v Vec3) (float64, float64) {
		return (v.X - minX) + r.Padding, (v.Y - minY) + r.Padding
	}

	for f, tri := range r.Mesh.Triangles {
		c, ok := r.Colors[r.FaceReasons[f]]
		if !ok {
			continue
		}

		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(c)}
		// Hairline stroke in the fill color closes gaps between faces.
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(c)}
		style.StrokeWidth = 0.05

		cp := &canvas.Path{}
		for i, vi := range tri {
			cx, cy := toCanvas(r.Mesh.Vertices[vi])
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, style, canvas.Identity)
	}
}

func (r *VectorAnalysisRenderer) bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	for _, v := range r.Mesh.Vertices {
		if v.X < minX {
			minX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	return
}
