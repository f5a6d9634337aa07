package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ReasonColors returns the color for each reason code. The palette matches
// the downstream QC review tooling.
func ReasonColors() map[uint8]color.NRGBA {
	return map[uint8]color.NRGBA{
		ReasonKept:      {0x90, 0x90, 0x90, 255}, // grey
		ReasonCurvature: {0xe6, 0x39, 0x46, 255}, // red
		ReasonVariance:  {0xf4, 0xa2, 0x61, 255}, // orange
		ReasonBorder:    {0xe9, 0xc4, 0x6a, 255}, // yellow
		ReasonIsland:    {0x45, 0x7b, 0x9d, 255}, // blue
	}
}

// AnalysisRenderer renders a classified scan as a top-down (X/Y plane)
// raster image, each face filled with its reason color.
type AnalysisRenderer struct {
	Mesh        *TriangleMesh
	FaceReasons []uint8
	Colors      map[uint8]color.NRGBA
	Scale       float64 // pixels per mesh unit
	Padding     int     // pixels around the drawing
	ShowLegend  bool
}

// NewAnalysisRenderer creates a renderer with default settings. Scale is
// chosen so the longer mesh axis spans roughly 1000 pixels.
func NewAnalysisRenderer(m *TriangleMesh, faceReasons []uint8) *AnalysisRenderer {
	r := &AnalysisRenderer{
		Mesh:        m,
		FaceReasons: faceReasons,
		Colors:      ReasonColors(),
		Padding:     30,
		ShowLegend:  true,
	}

	minX, minY, maxX, maxY := r.CalculateBounds()
	extent := math.Max(maxX-minX, maxY-minY)
	if extent > 0 {
		r.Scale = 1000 / extent
	} else {
		r.Scale = 1
	}
	return r
}

// CalculateBounds returns the X/Y extent of the projected mesh.
func (r *AnalysisRenderer) CalculateBounds() (minX, minY, maxX, maxY float64) {
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

// Render creates the analysis image on a black background.
func (r *AnalysisRenderer) Render() *image.RGBA {
	minX, minY, maxX, maxY := r.CalculateBounds()

	width := int((maxX-minX)*r.Scale) + 2*r.Padding
	height := int((maxY-minY)*r.Scale) + 2*r.Padding
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	// Image Y grows downward, mesh Y upward.
	toPixel := func(v Vec3) (float64, float64) {
		px := (v.X-minX)*r.Scale + float64(r.Padding)
		py := float64(height) - ((v.Y-minY)*r.Scale + float64(r.Padding))
		return px, py
	}

	for f, tri := range r.Mesh.Triangles {
		c, ok := r.Colors[r.FaceReasons[f]]
		if !ok {
			continue
		}
		ax, ay := toPixel(r.Mesh.Vertices[tri[0]])
		bx, by := toPixel(r.Mesh.Vertices[tri[1]])
		cx, cy := toPixel(r.Mesh.Vertices[tri[2]])
		fillTriangle(img, ax, ay, bx, by, cx, cy, color.RGBA{c.R, c.G, c.B, c.A})
	}

	if r.ShowLegend {
		r.drawLegend(img)
	}

	return img
}

// SavePNG renders the analysis and writes it to a PNG file.
func (r *AnalysisRenderer) SavePNG(path string) error {
	img := r.Render()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// fillTriangle rasterizes a filled triangle using edge-function tests over
// the triangle's bounding box. Degenerate (zero-area) triangles draw nothing.
func fillTriangle(img *image.RGBA, ax, ay, bx, by, cx, cy float64, c color.RGBA) {
	minX := int(math.Floor(math.Min(ax, math.Min(bx, cx))))
	maxX := int(math.Ceil(math.Max(ax, math.Max(bx, cx))))
	minY := int(math.Floor(math.Min(ay, math.Min(by, cy))))
	maxY := int(math.Ceil(math.Max(ay, math.Max(by, cy))))

	bounds := img.Bounds()
	if minX < bounds.Min.X {
		minX = bounds.Min.X
	}
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxX > bounds.Max.X-1 {
		maxX = bounds.Max.X - 1
	}
	if maxY > bounds.Max.Y-1 {
		maxY = bounds.Max.Y - 1
	}

	area := (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
	if area == 0 {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			w0 := ((bx-ax)*(py-ay) - (by-ay)*(px-ax)) / area
			w1 := ((cx-bx)*(py-by) - (cy-by)*(px-bx)) / area
			w2 := ((ax-cx)*(py-cy) - (ay-cy)*(px-cx)) / area
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				img.Set(x, y, c)
			}
		}
	}
}

// drawLegend draws a color swatch and label per reason code in the
// bottom-left corner, in code order.
func (r *AnalysisRenderer) drawLegend(img *image.RGBA) {
	codes := []uint8{ReasonKept, ReasonCurvature, ReasonVariance, ReasonBorder, ReasonIsland}

	height := img.Bounds().Dy()
	y := height - len(codes)*18 - 10
	for _, code := range codes {
		c := r.Colors[code]

		for dy := 0; dy < 12; dy++ {
			for dx := 0; dx < 12; dx++ {
				img.Set(10+dx, y+dy-6, color.RGBA{c.R, c.G, c.B, c.A})
			}
		}

		drawText(img, 28, y+5, ReasonLabels[code], color.RGBA{255, 255, 255, 255})
		y += 18
	}
}

// drawText renders text onto an image at the specified position.
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
