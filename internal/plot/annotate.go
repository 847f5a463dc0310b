package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

const (
	legendLine    = 20
	legendPadding = 6
)

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	borders  BorderConfig
}

func newAnnotator(f *truetype.Font, size float64, borders BorderConfig) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		borders: borders,
		fontFace: truetype.NewFace(f, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// drawGrid draws the frequency and dB grid lines and the plot frame
func (a *annotator) drawGrid(img *image.RGBA, sc scale) {
	area := sc.area

	for _, f := range a.frequencyTicks(sc) {
		x := int(sc.x(f))
		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
	}

	for _, db := range ticks(sc.dbMin, sc.dbMax, sc.dbStep) {
		y := int(sc.y(db))
		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
	}

	for x := area.Min.X; x <= area.Max.X; x++ {
		img.Set(x, area.Min.Y, axisColor)
		img.Set(x, area.Max.Y, axisColor)
	}
	for y := area.Min.Y; y <= area.Max.Y; y++ {
		img.Set(area.Min.X, y, axisColor)
		img.Set(area.Max.X, y, axisColor)
	}
}

func (a *annotator) annotate(img *image.RGBA, sc scale, n *touchstone.Network, title string, traces []touchstone.Trace, colors []color.Color) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"drawing frequency scale", func() error { return a.drawFrequencyScale(img, sc) }},
		{"drawing dB scale", func() error { return a.drawDBScale(img, sc) }},
		{"drawing legend", func() error { return a.drawLegend(img, sc, traces, colors) }},
		{"drawing title", func() error { return a.drawTitle(img, title) }},
		{"drawing info bar", func() error { return a.drawInfoBar(img, sc, n) }},
	}
	for _, op := range ops {
		if err := op.fn(); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) frequencyTicks(sc scale) []float64 {
	if sc.fMax == sc.fMin {
		return []float64{sc.fMin}
	}

	step := niceStep(sc.fMax-sc.fMin, max(1, int(float64(sc.area.Dx())/pixelsPerLabel)))
	return ticks(sc.fMin, sc.fMax, step)
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, sc scale) error {
	textY := sc.area.Max.Y + tickMarkHeight + a.fontHeight()

	for _, f := range a.frequencyTicks(sc) {
		x := int(sc.x(f))

		for y := sc.area.Max.Y; y < sc.area.Max.Y+tickMarkHeight; y++ {
			img.Set(x, y, axisColor)
		}

		label := humanHz(f)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}

	return nil
}

func (a *annotator) drawDBScale(img *image.RGBA, sc scale) error {
	metrics := a.fontFace.Metrics()

	for _, db := range ticks(sc.dbMin, sc.dbMax, sc.dbStep) {
		y := int(sc.y(db))

		for x := sc.area.Min.X - tickMarkHeight; x < sc.area.Min.X; x++ {
			img.Set(x, y, axisColor)
		}

		label := strconv.FormatFloat(db, 'g', 4, 64) + " dB"
		width := font.MeasureString(a.fontFace, label).Round()
		textY := y + a.fontHeight()/2 - metrics.Descent.Round()

		pt := freetype.Pt(sc.area.Min.X-tickMarkHeight-4-width, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing dB label: %w", err)
		}
	}

	return nil
}

func (a *annotator) drawLegend(img *image.RGBA, sc scale, traces []touchstone.Trace, colors []color.Color) error {
	if len(traces) == 0 {
		return nil
	}

	lineHeight := a.fontHeight() + 2

	textWidth := 0
	for _, t := range traces {
		textWidth = max(textWidth, font.MeasureString(a.fontFace, t.Name).Round())
	}

	box := image.Rect(0, 0, legendLine+textWidth+3*legendPadding, len(traces)*lineHeight+2*legendPadding)
	box = box.Add(image.Pt(sc.area.Max.X-box.Dx()-legendPadding, sc.area.Min.Y+legendPadding))

	draw.Draw(img, box, image.White, image.Point{}, draw.Src)
	for x := box.Min.X; x < box.Max.X; x++ {
		img.Set(x, box.Min.Y, axisColor)
		img.Set(x, box.Max.Y-1, axisColor)
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		img.Set(box.Min.X, y, axisColor)
		img.Set(box.Max.X-1, y, axisColor)
	}

	metrics := a.fontFace.Metrics()
	for i, t := range traces {
		top := box.Min.Y + legendPadding + i*lineHeight
		mid := top + lineHeight/2

		x0 := box.Min.X + legendPadding
		for x := x0; x < x0+legendLine; x++ {
			img.Set(x, mid, colors[i])
			img.Set(x, mid+1, colors[i])
		}

		pt := freetype.Pt(x0+legendLine+legendPadding, top+lineHeight-metrics.Descent.Round())
		if _, err := a.context.DrawString(t.Name, pt); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
	}

	return nil
}

func (a *annotator) drawTitle(img *image.RGBA, title string) error {
	if title == "" {
		return nil
	}

	width := font.MeasureString(a.fontFace, title).Round()
	x := (img.Bounds().Dx() - width) / 2
	y := (a.borders.Top + a.fontHeight()) / 2

	_, err := a.context.DrawString(title, freetype.Pt(x, y))
	return err
}

func (a *annotator) drawInfoBar(img *image.RGBA, sc scale, n *touchstone.Network) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Freq: %s - %s", humanHz(sc.fMin), humanHz(sc.fMax)))
	sb.WriteString(fmt.Sprintf("; %d points", n.Points()))
	sb.WriteString(fmt.Sprintf("; %d ports", n.Ports()))
	sb.WriteString(fmt.Sprintf("; Z0 %s ohm", strconv.FormatFloat(n.Z0, 'g', -1, 64)))

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - metrics.Descent.Round() - 4

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

func humanHz(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return strconv.FormatFloat(v, 'g', 4, 64) + " " + prefix + "Hz"
}
