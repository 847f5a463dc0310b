package touchstone

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const defaultZ0 = 50

type dataFormat int

const (
	formatMA dataFormat = iota
	formatRI
	formatDB
)

// options is the parsed "# <unit> <param> <format> R <z0>" line
type options struct {
	multiplier float64
	format     dataFormat
	z0         float64
}

func defaultOptions() options {
	return options{multiplier: 1e9, format: formatMA, z0: defaultZ0}
}

var extensionPattern = regexp.MustCompile(`(?i)^\.s(\d+)p$`)

// PortsFromName derives the port count from a ".sNp" file extension
func PortsFromName(name string) (int, error) {
	m := extensionPattern.FindStringSubmatch(filepath.Ext(name))
	if m == nil {
		return 0, fmt.Errorf("'%s' is not a Touchstone file name", name)
	}

	ports, err := strconv.Atoi(m[1])
	if err != nil || ports < 1 {
		return 0, fmt.Errorf("'%s' has an invalid port count", name)
	}
	return ports, nil
}

// ParseFile reads a Touchstone file, taking the port count from its
// extension
func ParseFile(path string) (*Network, error) {
	ports, err := PortsFromName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := Parse(f, ports)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return n, nil
}

// Parse reads a Touchstone v1 network with the given number of ports.
// Records may wrap over any number of lines. Noise parameters trailing a
// two-port network are skipped.
func Parse(r io.Reader, ports int) (*Network, error) {
	if ports < 1 {
		return nil, fmt.Errorf("invalid port count %d", ports)
	}

	var (
		opts        = defaultOptions()
		seenOptions bool
		noise       bool
		freq        []float64
		matrices    [][][]complex128
		comments    []string
		width       = 1 + 2*ports*ports
		record      = make([]float64, 0, width)
		lineNo      int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if i := strings.IndexByte(line, '!'); i >= 0 {
			if strings.TrimSpace(line[:i]) == "" {
				if c := strings.TrimSpace(line[i+1:]); c != "" {
					comments = append(comments, c)
				}
			}
			line = line[:i]
		}

		line = strings.TrimSpace(line)
		if line == "" || noise {
			continue
		}

		switch line[0] {
		case '#':
			if seenOptions {
				continue
			}
			o, err := parseOptions(line[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, lineNo, err)
			}
			opts, seenOptions = o, true
			continue

		case '[':
			return nil, fmt.Errorf("%w: line %d: Touchstone v2 keywords are not supported", ErrSyntax, lineNo)
		}

		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid number %q", ErrSyntax, lineNo, field)
			}

			if len(record) == 0 {
				v *= opts.multiplier
				if ports == 2 && len(freq) > 0 && v <= freq[len(freq)-1] {
					noise = true
					break
				}
			}

			record = append(record, v)
			if len(record) < width {
				continue
			}

			freq = append(freq, record[0])
			matrices = append(matrices, opts.matrix(ports, record[1:]))
			record = record[:0]
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(record) != 0 {
		return nil, fmt.Errorf("%w: truncated record at %g Hz", ErrSyntax, record[0])
	}
	if len(freq) == 0 {
		return nil, fmt.Errorf("%w: no network data", ErrSyntax)
	}

	n := Network{
		Frequency: freq,
		S:         matrices,
		Z0:        opts.z0,
		Comments:  comments,
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	return &n, nil
}

func parseOptions(s string) (options, error) {
	opts := defaultOptions()
	fields := strings.Fields(s)

	for i := 0; i < len(fields); i++ {
		switch f := strings.ToUpper(fields[i]); f {
		case "HZ":
			opts.multiplier = 1
		case "KHZ":
			opts.multiplier = 1e3
		case "MHZ":
			opts.multiplier = 1e6
		case "GHZ":
			opts.multiplier = 1e9
		case "S":
		case "Y", "Z", "H", "G":
			return opts, fmt.Errorf("unsupported parameter type %s", f)
		case "MA":
			opts.format = formatMA
		case "RI":
			opts.format = formatRI
		case "DB":
			opts.format = formatDB
		case "R":
			if i+1 >= len(fields) {
				return opts, fmt.Errorf("missing reference impedance")
			}
			i++
			z0, err := strconv.ParseFloat(fields[i], 64)
			if err != nil || z0 <= 0 {
				return opts, fmt.Errorf("invalid reference impedance %q", fields[i])
			}
			opts.z0 = z0
		default:
			return opts, fmt.Errorf("unknown option %q", fields[i])
		}
	}

	return opts, nil
}

// matrix converts the value pairs of one record. Two-port records are
// ordered S11 S21 S12 S22, every other port count is row-major.
func (o options) matrix(ports int, values []float64) [][]complex128 {
	m := make([][]complex128, ports)
	for i := range m {
		m[i] = make([]complex128, ports)
	}

	for p := 0; p < ports*ports; p++ {
		i, j := p/ports, p%ports
		if ports == 2 {
			i, j = j, i
		}
		m[i][j] = o.complex(values[2*p], values[2*p+1])
	}

	return m
}

func (o options) complex(a, b float64) complex128 {
	switch o.format {
	case formatRI:
		return complex(a, b)
	case formatDB:
		return cmplx.Rect(math.Pow(10, a/20), b*math.Pi/180)
	default:
		return cmplx.Rect(a, b*math.Pi/180)
	}
}
