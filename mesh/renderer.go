package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlanRenderer draws a top-down (x, y) raster plan of an alignment
type PlanRenderer struct {
	Alignment   *Alignment
	Names       []string // scanner labels by index
	Colors      []string // scanner hex colours by index; missing entries use the palette
	Scale       float64  // pixels per unit (default 0.25)
	Padding     int      // pixels around the content
	GridSpacing float64  // grid line spacing in units; 0 disables
}

// NewPlanRenderer creates a raster renderer with default settings
func NewPlanRenderer(a *Alignment, names, colors []string) *PlanRenderer {
	return &PlanRenderer{
		Alignment:   a,
		Names:       names,
		Colors:      colors,
		Scale:       0.25,
		Padding:     40,
		GridSpacing: 500,
	}
}

// scannerColor returns the colour for scanner k
func scannerColor(colors []string, k int) color.RGBA {
	if k < len(colors) && colors[k] != "" {
		return parseHexColor(colors[k])
	}
	return parseHexColor(PaletteColor(k))
}

// scannerLabel returns the display name for scanner k
func scannerLabel(names []string, k int) string {
	if k < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("scanner %d", k)
}

// Render draws the plan into a new image
func (r *PlanRenderer) Render() *image.RGBA {
	bound := PlanBound(r.Alignment)
	minX, minY := bound.Min[0], bound.Min[1]
	maxX, maxY := bound.Max[0], bound.Max[1]

	width := int(math.Ceil((maxX-minX)*r.Scale)) + 2*r.Padding
	height := int(math.Ceil((maxY-minY)*r.Scale)) + 2*r.Padding
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	// Image rows grow downward, so y is flipped
	toImage := func(x, y float64) (int, int) {
		return r.Padding + int(math.Round((x-minX)*r.Scale)),
			r.Padding + int(math.Round((maxY-y)*r.Scale))
	}

	if r.GridSpacing > 0 {
		grid := color.RGBA{220, 220, 220, 255}
		for x := math.Floor(minX/r.GridSpacing) * r.GridSpacing; x <= maxX; x += r.GridSpacing {
			x1, y1 := toImage(x, minY)
			x2, y2 := toImage(x, maxY)
			drawLine(img, x1, y1, x2, y2, grid)
		}
		for y := math.Floor(minY/r.GridSpacing) * r.GridSpacing; y <= maxY; y += r.GridSpacing {
			x1, y1 := toImage(minX, y)
			x2, y2 := toImage(maxX, y)
			drawLine(img, x1, y1, x2, y2, grid)
		}
	}

	a := r.Alignment
	link := color.RGBA{160, 160, 160, 255}
	for _, e := range a.Graph.Edges() {
		if e.From > e.To {
			continue
		}
		from, to := a.Origins[e.From], a.Origins[e.To]
		x1, y1 := toImage(float64(from.X), float64(from.Y))
		x2, y2 := toImage(float64(to.X), float64(to.Y))
		drawLine(img, x1, y1, x2, y2, link)
	}

	for _, b := range a.Beacons.Sorted() {
		observers := a.Beacons.Observers(b)
		x, y := toImage(float64(b.X), float64(b.Y))
		drawCircle(img, x, y, 3, scannerColor(r.Colors, observers[0]))
	}

	black := color.RGBA{0, 0, 0, 255}
	for k, o := range a.Origins {
		x, y := toImage(float64(o.X), float64(o.Y))
		if k == a.Reference {
			drawTriangle(img, x, y, 14, scannerColor(r.Colors, k))
		} else {
			drawSquare(img, x, y, 10, scannerColor(r.Colors, k))
		}
		drawText(img, x+9, y-6, scannerLabel(r.Names, k), black)
	}

	r.drawLegend(img)
	return img
}

// WritePNG encodes the plan as PNG
func (r *PlanRenderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG renders and saves the plan to a PNG file
func (r *PlanRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return r.WritePNG(f)
}

// drawLegend lists scanners with their colour and the summary in the top-left corner
func (r *PlanRenderer) drawLegend(img *image.RGBA) {
	black := color.RGBA{0, 0, 0, 255}
	y := 15
	drawText(img, 10, y, fmt.Sprintf("beacons %d  max manhattan %d", r.Alignment.UniqueBeacons(), r.Alignment.MaxManhattan), black)
	y += 18
	for k := range r.Alignment.Origins {
		c := scannerColor(r.Colors, k)
		for dy := 0; dy < 10; dy++ {
			for dx := 0; dx < 10; dx++ {
				img.Set(10+dx, y+dy-9, c)
			}
		}
		drawText(img, 26, y, scannerLabel(r.Names, k), black)
		y += 16
	}
}

// drawLine draws a one-pixel line with Bresenham's algorithm
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// drawCircle draws a filled circle
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawSquare draws a filled square
func drawSquare(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := size / 2
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			x, y := cx+dx, cy+dy
			if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
				img.Set(x, y, c)
			}
		}
	}
}

// drawTriangle draws a filled triangle pointing up
func drawTriangle(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := size / 2
	for dy := -half; dy <= half; dy++ {
		progress := float64(dy+half) / float64(size)
		width := int(progress * float64(half))
		for dx := -width; dx <= width; dx++ {
			x, y := cx+dx, cy+dy
			if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
				img.Set(x, y, c)
			}
		}
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// parseHexColor parses "#rrggbb", falling back to red
func parseHexColor(hex string) color.RGBA {
	defaultColor := color.RGBA{255, 0, 0, 255}

	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return defaultColor
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return defaultColor
	}
	return color.RGBA{r, g, b, 255}
}
