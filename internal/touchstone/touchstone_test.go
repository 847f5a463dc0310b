package touchstone

import (
	"bytes"
	"math"
	"math/cmplx"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riTwoPort = `! fake ZNB export
# Hz S RI R 50
10000000000 0.10 -0.05 0.70 0.20 0.60 0.30 0.12 -0.04
12500000000 0.08 -0.02 0.65 0.25 0.55 0.35 0.10 -0.01
`

func assertComplex(t *testing.T, want, got complex128, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, real(want), real(got), 1e-9, msgAndArgs...)
	assert.InDelta(t, imag(want), imag(got), 1e-9, msgAndArgs...)
}

func TestParse_TwoPortColumnOrder(t *testing.T) {
	n, err := Parse(strings.NewReader(riTwoPort), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, n.Ports())
	assert.Equal(t, []float64{10e9, 12.5e9}, n.Frequency)
	assert.Equal(t, 50.0, n.Z0)
	assert.Equal(t, []string{"fake ZNB export"}, n.Comments)

	assertComplex(t, complex(0.10, -0.05), n.At(0, 1, 1), "S11")
	assertComplex(t, complex(0.70, 0.20), n.At(0, 2, 1), "S21")
	assertComplex(t, complex(0.60, 0.30), n.At(0, 1, 2), "S12")
	assertComplex(t, complex(0.12, -0.04), n.At(0, 2, 2), "S22")
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want complex128
		freq float64
	}{
		{"defaults", "1.5 0.5 90\n", cmplx.Rect(0.5, math.Pi/2), 1.5e9},
		{"magnitude angle", "# kHz S MA R 50\n2 0.5 -90\n", cmplx.Rect(0.5, -math.Pi/2), 2e3},
		{"decibel angle", "# MHz S DB R 50\n3 -6.0206 180\n", cmplx.Rect(0.5, math.Pi), 3e6},
		{"real imaginary", "# hz s ri r 50\n4 0.3 0.4\n", complex(0.3, 0.4), 4},
		{"trailing comment", "# Hz S RI R 50\n5 0.3 0.4 ! note\n", complex(0.3, 0.4), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(strings.NewReader(tt.data), 1)
			require.NoError(t, err)
			require.Equal(t, 1, n.Points())

			assert.InDelta(t, tt.freq, n.Frequency[0], 1e-6)
			assert.InDelta(t, real(tt.want), real(n.At(0, 1, 1)), 1e-4)
			assert.InDelta(t, imag(tt.want), imag(n.At(0, 1, 1)), 1e-4)
		})
	}
}

func TestParse_WrappedThreePort(t *testing.T) {
	n, err := ParseFile(filepath.Join("testdata", "filter.s3p"))
	require.NoError(t, err)

	assert.Equal(t, 3, n.Ports())
	assert.Equal(t, []float64{100e6, 200e6}, n.Frequency)
	assert.Equal(t, 75.0, n.Z0)

	db := n.DB(1, 2)
	assert.InDelta(t, -3, db[0], 1e-9)
	assert.InDelta(t, -3.5, db[1], 1e-9)
	assert.InDelta(t, -10, n.DB(3, 3)[0], 1e-9)
}

func TestParse_SkipsNoiseParameters(t *testing.T) {
	data := riTwoPort + "! noise\n10000000000 1.2 0.5 30 0.4\n"

	n, err := Parse(strings.NewReader(data), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Points())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		ports int
	}{
		{"empty", "! nothing\n", 2},
		{"truncated", "# Hz S RI R 50\n1 0 0 0 0 0 0\n", 2},
		{"not a number", "# Hz S RI R 50\n1 0 x\n", 1},
		{"version 2", "[Version] 2.0\n", 2},
		{"admittance", "# Hz Y RI R 50\n1 0 0\n", 1},
		{"bad impedance", "# Hz S RI R -5\n1 0 0\n", 1},
		{"missing impedance", "# Hz S RI R\n1 0 0\n", 1},
		{"descending", "# Hz S RI R 50\n2 0 0\n1 0 0\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.data), tt.ports)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestPortsFromName(t *testing.T) {
	ports, err := PortsFromName("dir/test.S2P")
	require.NoError(t, err)
	assert.Equal(t, 2, ports)

	ports, err = PortsFromName("output.s12p")
	require.NoError(t, err)
	assert.Equal(t, 12, ports)

	for _, name := range []string{"test.txt", "test", "test.s0p", "test.sp"} {
		_, err = PortsFromName(name)
		assert.Error(t, err, name)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	for _, name := range []string{"omt12.s2p", "filter.s3p"} {
		t.Run(name, func(t *testing.T) {
			want, err := ParseFile(filepath.Join("testdata", name))
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, want))
			assert.Contains(t, buf.String(), "# Hz S RI R ")

			got, err := Parse(&buf, want.Ports())
			require.NoError(t, err)

			assert.Equal(t, want.Frequency, got.Frequency)
			assert.Equal(t, want.Z0, got.Z0)
			assert.Equal(t, want.Comments, got.Comments)
			for k := range want.S {
				for i := range want.S[k] {
					for j := range want.S[k][i] {
						assertComplex(t, want.S[k][i][j], got.S[k][i][j], "point %d S%d%d", k, i+1, j+1)
					}
				}
			}
		})
	}
}

func TestWrite_WrapsLargeNetworks(t *testing.T) {
	n := NewNetwork(5, []float64{1e9}, 50)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, n))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// option line, then two lines per row of five pairs
	assert.Len(t, lines, 1+5*2)
	assert.True(t, strings.HasPrefix(lines[1], "1000000000 "))
	assert.True(t, strings.HasPrefix(lines[2], " "))
}

func TestWrite_InvalidNetwork(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, &Network{}))
}

func TestPairFromName(t *testing.T) {
	i, j, err := PairFromName("data/omt13.s2p")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, 3, j)

	for _, name := range []string{"omt.s2p", "omt11.s2p", "omt10.s2p", "3.s2p"} {
		_, _, err = PairFromName(name)
		assert.Error(t, err, name)
	}
}

func TestCompose(t *testing.T) {
	var parts []Part
	for _, name := range []string{"omt12.s2p", "omt13.s2p", "omt23.s2p"} {
		path := filepath.Join("testdata", name)

		n, err := ParseFile(path)
		require.NoError(t, err)

		i, j, err := PairFromName(path)
		require.NoError(t, err)

		parts = append(parts, Part{I: i, J: j, Network: n})
	}

	n, err := Compose(3, parts...)
	require.NoError(t, err)
	assert.Equal(t, 3, n.Ports())
	assert.Equal(t, 3, n.Points())

	for k := range n.Frequency {
		// reflections come from the last part covering the port
		assertComplex(t, 0.3, n.At(k, 1, 1), "S11")
		assertComplex(t, 0.6, n.At(k, 2, 2), "S22")
		assertComplex(t, 0.7, n.At(k, 3, 3), "S33")

		assertComplex(t, complex(0, 0.5), n.At(k, 1, 2), "S12")
		assertComplex(t, complex(0, 0.5), n.At(k, 2, 1), "S21")
		assertComplex(t, 0.01, n.At(k, 1, 3), "S13")
		assertComplex(t, 0.01, n.At(k, 3, 1), "S31")
		assertComplex(t, -0.02, n.At(k, 2, 3), "S23")
		assertComplex(t, -0.02, n.At(k, 3, 2), "S32")
	}
}

func TestCompose_Errors(t *testing.T) {
	two, err := ParseFile(filepath.Join("testdata", "omt12.s2p"))
	require.NoError(t, err)
	three, err := ParseFile(filepath.Join("testdata", "filter.s3p"))
	require.NoError(t, err)

	shifted := NewNetwork(2, []float64{10e9, 12.5e9, 15.5e9}, 50)
	other := NewNetwork(2, []float64{10e9, 12.5e9, 15e9}, 75)

	tests := []struct {
		name  string
		ports int
		parts []Part
	}{
		{"no parts", 3, nil},
		{"one port", 1, []Part{{1, 2, two}}},
		{"not a two-port", 3, []Part{{1, 2, three}}},
		{"same port", 3, []Part{{2, 2, two}}},
		{"port out of range", 3, []Part{{1, 4, two}}},
		{"different axis", 3, []Part{{1, 2, two}, {1, 3, shifted}}},
		{"different impedance", 3, []Part{{1, 2, two}, {1, 3, other}}},
		{"nil network", 3, []Part{{1, 2, nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.ports, tt.parts...)
			assert.Error(t, err)
		})
	}
}

func TestTraces(t *testing.T) {
	n, err := ParseFile(filepath.Join("testdata", "omt12.s2p"))
	require.NoError(t, err)

	traces := n.Traces()
	require.Len(t, traces, 4)
	assert.Equal(t, "S11", traces[0].Name)
	assert.Equal(t, "S12", traces[1].Name)
	assert.Equal(t, "S21", traces[2].Name)

	lo, hi, ok := traces[1].Range()
	require.True(t, ok)
	assert.InDelta(t, 20*math.Log10(0.5), lo, 1e-9)
	assert.InDelta(t, 20*math.Log10(0.5), hi, 1e-9)

	_, _, ok = Trace{DB: []float64{math.Inf(-1)}}.Range()
	assert.False(t, ok)

	assert.Equal(t, "S10,2", TraceName(10, 2))
}

func TestNetwork_Window(t *testing.T) {
	n, err := ParseFile(filepath.Join("testdata", "omt12.s2p"))
	require.NoError(t, err)

	w := n.Window(11e9, 15e9)
	assert.Equal(t, []float64{12.5e9, 15e9}, w.Frequency)
	assert.Equal(t, 2, w.Ports())
	assert.Equal(t, n.At(1, 2, 1), w.At(0, 2, 1))
	require.NoError(t, w.Validate())

	assert.Zero(t, n.Window(1e9, 2e9).Points())
}
