// Package plot renders S-parameter magnitude traces to raster images.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/vector"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.0
	pixelsPerDBRow = 40.0

	defaultWidth     = 1000
	defaultHeight    = 600
	defaultGridStep  = 10.0
	defaultLineWidth = 1.5

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 60
	defaultRightBorder  = 40
)

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the dB scale
	Bottom int // Space for the frequency scale and information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for trace rendering
type RenderConfig struct {
	Width  int // Plot area width in pixels
	Height int // Plot area height in pixels

	Title     string
	FontSize  float64 // Font size in points
	LineWidth float64 // Trace width in pixels

	// MinDB and MaxDB fix the magnitude axis, otherwise it covers every
	// trace, aligned to GridStep
	MinDB    *float64
	MaxDB    *float64
	GridStep float64

	Borders BorderConfig
}

// Renderer draws every |Sij| of a network as a dB trace over frequency
type Renderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewRenderer creates a renderer, filling zero config values with defaults
func NewRenderer(config RenderConfig) (*Renderer, error) {
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.LineWidth == 0 {
		config.LineWidth = defaultLineWidth
	}
	if config.GridStep == 0 {
		config.GridStep = defaultGridStep
	}
	if config.Borders.Top == 0 {
		config.Borders.Top = defaultTopBorder
	}
	if config.Borders.Left == 0 {
		config.Borders.Left = defaultLeftBorder
	}
	if config.Borders.Bottom == 0 {
		config.Borders.Bottom = defaultBottomBorder
	}
	if config.Borders.Right == 0 {
		config.Borders.Right = defaultRightBorder
	}

	if config.Width < 0 || config.Height < 0 || config.GridStep < 0 || config.LineWidth < 0 {
		return nil, errors.New("plot dimensions must be positive")
	}
	if config.MinDB != nil && config.MaxDB != nil && *config.MinDB >= *config.MaxDB {
		return nil, fmt.Errorf("invalid dB range %g to %g", *config.MinDB, *config.MaxDB)
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// Render creates an image of the network traces with scales and legend
func (r *Renderer) Render(n *touchstone.Network) (*image.RGBA, error) {
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("rendering network: %w", err)
	}

	b := r.config.Borders
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width+b.Left+b.Right, r.config.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+r.config.Width, b.Top+r.config.Height)

	traces := n.Traces()
	colors := make([]color.Color, len(traces))
	for i := range traces {
		colors[i] = traceColor(i, len(traces))
	}

	sc := r.newScale(n, traces, area)

	ann := newAnnotator(r.font, r.config.FontSize, b)
	defer ann.Close()

	ann.drawGrid(img, sc)

	for i, t := range traces {
		drawTrace(img, sc, n.Frequency, t.DB, colors[i], r.config.LineWidth)
	}

	if err := ann.annotate(img, sc, n, r.config.Title, traces, colors); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

// scale maps frequency and dB values onto the plot area
type scale struct {
	area       image.Rectangle
	fMin, fMax float64
	dbMin      float64
	dbMax      float64
	dbStep     float64
}

func (r *Renderer) newScale(n *touchstone.Network, traces []touchstone.Trace, area image.Rectangle) scale {
	lo, hi := dbRange(traces, r.config.GridStep)
	if r.config.MinDB != nil {
		lo = *r.config.MinDB
	}
	if r.config.MaxDB != nil {
		hi = *r.config.MaxDB
	}
	if lo >= hi {
		hi = lo + r.config.GridStep
	}

	// keep the horizontal grid readable on tall ranges
	step := r.config.GridStep
	if rows := float64(area.Dy()) / pixelsPerDBRow; (hi-lo)/step > rows && rows >= 1 {
		step = niceStep(hi-lo, int(rows))
	}

	return scale{
		area:   area,
		fMin:   n.Frequency[0],
		fMax:   n.Frequency[len(n.Frequency)-1],
		dbMin:  lo,
		dbMax:  hi,
		dbStep: step,
	}
}

func (s scale) x(freq float64) float64 {
	if s.fMax == s.fMin {
		return float64(s.area.Min.X) + float64(s.area.Dx())/2
	}
	return float64(s.area.Min.X) + (freq-s.fMin)/(s.fMax-s.fMin)*float64(s.area.Dx())
}

func (s scale) y(db float64) float64 {
	db = math.Max(s.dbMin, math.Min(db, s.dbMax))
	return float64(s.area.Min.Y) + (s.dbMax-db)/(s.dbMax-s.dbMin)*float64(s.area.Dy())
}

// drawTrace strokes the polyline of a trace. Non-finite values break the
// line.
func drawTrace(img *image.RGBA, sc scale, freq, db []float64, c color.Color, width float64) {
	bounds := img.Bounds()
	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	half := float32(width / 2)

	drawn := false
	for k := 1; k < len(db); k++ {
		if !finite(db[k-1]) || !finite(db[k]) {
			continue
		}

		x0, y0 := float32(sc.x(freq[k-1])), float32(sc.y(db[k-1]))
		x1, y1 := float32(sc.x(freq[k])), float32(sc.y(db[k]))
		if addSegment(z, x0, y0, x1, y1, half) {
			drawn = true
		}
	}

	if drawn {
		z.Draw(img, bounds, image.NewUniform(c), image.Point{})
	}
}

// addSegment adds the outline of a line segment of half width w
func addSegment(z *vector.Rasterizer, x0, y0, x1, y1, w float32) bool {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return false
	}

	nx, ny := -dy/length*w, dx/length*w

	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()

	return true
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
