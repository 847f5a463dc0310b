package plot

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

func testNetwork() *touchstone.Network {
	freq := []float64{10e9, 11e9, 12e9, 13e9, 14e9, 15e9}
	n := touchstone.NewNetwork(2, freq, 50)
	for k := range n.S {
		n.S[k][0][0] = complex(0.11, 0)
		n.S[k][1][0] = complex(0.5+float64(k)*0.05, 0)
		n.S[k][0][1] = complex(0.5, 0)
		n.S[k][1][1] = complex(0.2, 0)
	}
	return n
}

func TestRender(t *testing.T) {
	r, err := NewRenderer(RenderConfig{Width: 400, Height: 300, Title: "omt12"})
	require.NoError(t, err)

	img, err := r.Render(testNetwork())
	require.NoError(t, err)

	b := r.config.Borders
	assert.Equal(t, image.Rect(0, 0, 400+b.Left+b.Right, 300+b.Top+b.Bottom), img.Bounds())

	// every trace colour appears somewhere in the plot area
	area := image.Rect(b.Left, b.Top, b.Left+400, b.Top+300)
	for i := 0; i < 4; i++ {
		want := traceColor(i, 4)
		found := false
		for y := area.Min.Y; y < area.Max.Y && !found; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				if img.RGBAAt(x, y) == want {
					found = true
					break
				}
			}
		}
		assert.True(t, found, "colour of trace %d missing", i)
	}
}

func TestDrawTrace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	sc := scale{area: img.Bounds(), fMin: 0, fMax: 1, dbMin: 0, dbMax: 100, dbStep: 10}
	c := traceColor(0, 1)

	drawTrace(img, sc, []float64{0, 0.4, 0.6, 1}, []float64{50, 50, math.Inf(-1), 50}, c, 2)

	// rows 49 and 50 are fully covered by a 2 px line centred on y=50
	assert.Equal(t, c, img.RGBAAt(20, 49))
	assert.Equal(t, c, img.RGBAAt(20, 50))
	assert.NotEqual(t, c, img.RGBAAt(20, 40))

	// the gap around the -Inf point stays empty
	assert.NotEqual(t, c, img.RGBAAt(70, 50))
}

func TestRender_NonFiniteValues(t *testing.T) {
	n := testNetwork()
	for k := range n.S {
		n.S[k][1][1] = 0
	}

	r, err := NewRenderer(RenderConfig{Width: 200, Height: 100})
	require.NoError(t, err)

	_, err = r.Render(n)
	assert.NoError(t, err)
}

func TestRender_InvalidNetwork(t *testing.T) {
	r, err := NewRenderer(RenderConfig{})
	require.NoError(t, err)

	_, err = r.Render(&touchstone.Network{})
	assert.Error(t, err)
}

func TestNewRenderer_InvalidRange(t *testing.T) {
	lo, hi := 0.0, -10.0
	_, err := NewRenderer(RenderConfig{MinDB: &lo, MaxDB: &hi})
	assert.Error(t, err)

	_, err = NewRenderer(RenderConfig{Width: -1})
	assert.Error(t, err)
}

func TestDBRange(t *testing.T) {
	traces := testNetwork().Traces()

	lo, hi := dbRange(traces, 10)
	assert.Equal(t, -20.0, lo)
	assert.Equal(t, 0.0, hi)

	lo, hi = dbRange([]touchstone.Trace{{DB: []float64{math.Inf(-1)}}}, 10)
	assert.Equal(t, -10.0, lo)
	assert.Equal(t, 0.0, hi)

	lo, hi = dbRange([]touchstone.Trace{{DB: []float64{-20, -20}}}, 10)
	assert.Equal(t, -20.0, lo)
	assert.Equal(t, -10.0, hi)
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		span  float64
		count int
		want  float64
	}{
		{5.1e9, 6, 1e9},
		{5.1e9, 2, 5e9},
		{7.5e9, 10, 1e9},
		{60, 6, 10},
		{12, 6, 2},
		{0, 6, 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, niceStep(tt.span, tt.count), tt.want*1e-9, "span %g count %d", tt.span, tt.count)
	}
}

func TestTicks(t *testing.T) {
	assert.Equal(t, []float64{-20, -10, 0}, ticks(-20, 0, 10))
	assert.Len(t, ticks(9.9e9, 15e9, 1e9), 6)
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, ImagePNG))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	buf.Reset()
	require.NoError(t, Encode(&buf, img, ImageJPEG))
	assert.NotZero(t, buf.Len())

	assert.Error(t, Encode(&buf, img, "gif"))
}

func TestWriteFile(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	path := filepath.Join(t.TempDir(), "plot.jpeg")

	require.NoError(t, WriteFile(path, img, ImageJPEG))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "plot.png"), img, ImagePNG))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ImageFormat{"png": ImagePNG, "PNG": ImagePNG, "jpeg": ImageJPEG, "jpg": ImageJPEG} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestHSVToRGB(t *testing.T) {
	assert.Equal(t, uint8(255), HSVToRGB(HSV{H: 0, S: 1, V: 1}).R)
	assert.Equal(t, uint8(255), HSVToRGB(HSV{H: 240, S: 1, V: 1}).B)
	assert.Equal(t, HSVToRGB(HSV{S: 0, V: 0.5}).R, HSVToRGB(HSV{S: 0, V: 0.5}).G)
}
