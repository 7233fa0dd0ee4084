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

// VectorRenderer renders an alignment plan as vector graphics.
// Canvas units are the beacons' own units.
type VectorRenderer struct {
	Alignment   *Alignment
	Colors      []string          // scanner hex colours by index
	Padding     float64           // padding in world units
	Resolution  canvas.Resolution // resolution for PNG output
	GridSpacing float64           // grid line spacing in world units; 0 disables
	BeaconSize  float64           // beacon dot radius
	ScannerSize float64           // scanner square side
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer(a *Alignment, colors []string) *VectorRenderer {
	return &VectorRenderer{
		Alignment:   a,
		Colors:      colors,
		Padding:     200,
		Resolution:  canvas.DPMM(0.5),
		GridSpacing: 500,
		BeaconSize:  15,
		ScannerSize: 80,
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the plan as an SVG to the provided writer
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the plan as a PNG to the provided writer
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *VectorRenderer) size() (width, height float64) {
	b := PlanBound(r.Alignment)
	return b.Max[0] - b.Min[0] + 2*r.Padding, b.Max[1] - b.Min[1] + 2*r.Padding
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	a := r.Alignment
	bound := PlanBound(a)
	minX, minY := bound.Min[0], bound.Min[1]
	maxX, maxY := bound.Max[0], bound.Max[1]

	toCanvas := func(x, y float64) (float64, float64) {
		return x - minX + r.Padding, y - minY + r.Padding
	}

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: color.RGBA{211, 211, 211, 255}}
		gridStyle.StrokeWidth = 2.0
		gridStyle.Dashes = []float64{10.0, 10.0}

		for x := math.Floor(minX/r.GridSpacing) * r.GridSpacing; x <= maxX; x += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(toCanvas(x, minY))
			gridPath.LineTo(toCanvas(x, maxY))
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
		for y := math.Floor(minY/r.GridSpacing) * r.GridSpacing; y <= maxY; y += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(toCanvas(minX, y))
			gridPath.LineTo(toCanvas(maxX, y))
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
	}

	linkStyle := canvas.DefaultStyle
	linkStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	linkStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	linkStyle.StrokeWidth = 6.0
	for _, e := range a.Graph.Edges() {
		if e.From > e.To {
			continue
		}
		from, to := a.Origins[e.From], a.Origins[e.To]
		linkPath := &canvas.Path{}
		linkPath.MoveTo(toCanvas(float64(from.X), float64(from.Y)))
		linkPath.LineTo(toCanvas(float64(to.X), float64(to.Y)))
		renderer.RenderPath(linkPath, linkStyle, canvas.Identity)
	}

	for _, b := range a.Beacons.Sorted() {
		observers := a.Beacons.Observers(b)
		beaconStyle := canvas.DefaultStyle
		c := scannerColor(r.Colors, observers[0])
		beaconStyle.Fill = canvas.Paint{Color: premultiply(color.NRGBA{c.R, c.G, c.B, 200})}
		beaconStyle.Stroke = canvas.Paint{Color: canvas.Transparent}

		cx, cy := toCanvas(float64(b.X), float64(b.Y))
		renderer.RenderPath(canvas.Circle(r.BeaconSize).Translate(cx, cy), beaconStyle, canvas.Identity)
	}

	for k, o := range a.Origins {
		scannerStyle := canvas.DefaultStyle
		scannerStyle.Fill = canvas.Paint{Color: scannerColor(r.Colors, k)}
		scannerStyle.Stroke = canvas.Paint{Color: canvas.Black}
		scannerStyle.StrokeWidth = 5.0
		if k == a.Reference {
			scannerStyle.StrokeWidth = 12.0
		}

		cx, cy := toCanvas(float64(o.X), float64(o.Y))
		half := r.ScannerSize / 2
		square := canvas.Rectangle(r.ScannerSize, r.ScannerSize).Translate(cx-half, cy-half)
		renderer.RenderPath(square, scannerStyle, canvas.Identity)
	}
}

// premultiply converts color.NRGBA to the premultiplied color.RGBA canvas expects
func premultiply(c color.NRGBA) color.RGBA {
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha) / 255),
		G: uint8((uint32(c.G) * alpha) / 255),
		B: uint8((uint32(c.B) * alpha) / 255),
		A: c.A,
	}
}
