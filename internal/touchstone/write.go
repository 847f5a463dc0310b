package touchstone

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// pairsPerLine limits the number of value pairs on one data line
const pairsPerLine = 4

// Write emits the network in real/imaginary format with frequency in Hz.
// The reference impedance is always written.
func Write(w io.Writer, n *Network) error {
	if err := n.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	ports := n.Ports()

	for _, c := range n.Comments {
		fmt.Fprintf(bw, "! %s\n", c)
	}
	fmt.Fprintf(bw, "# Hz S RI R %s\n", formatFloat(n.Z0))

	for k, f := range n.Frequency {
		freq := strconv.FormatFloat(f, 'f', -1, 64)
		m := n.S[k]

		if ports <= 2 {
			values := make([]complex128, 0, ports*ports)
			for j := 0; j < ports; j++ {
				for i := 0; i < ports; i++ {
					values = append(values, m[i][j])
				}
			}
			writeLine(bw, freq, values)
			continue
		}

		for i, row := range m {
			for start := 0; start < ports; start += pairsPerLine {
				prefix := strings.Repeat(" ", len(freq))
				if i == 0 && start == 0 {
					prefix = freq
				}
				writeLine(bw, prefix, row[start:min(start+pairsPerLine, ports)])
			}
		}
	}

	return bw.Flush()
}

// WriteFile writes the network to path
func WriteFile(path string, n *Network) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cErr := f.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}()

	return Write(f, n)
}

func writeLine(w *bufio.Writer, prefix string, values []complex128) {
	w.WriteString(prefix)
	for _, v := range values {
		w.WriteByte(' ')
		w.WriteString(formatFloat(real(v)))
		w.WriteByte(' ')
		w.WriteString(formatFloat(imag(v)))
	}
	w.WriteByte('\n')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
