package scpi

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBlock(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		payload string
		rest    string
	}{
		{"definite", "#15hello\n", "hello", ""},
		{"definite with binary newline", "#211ab\ncd\nefghi\n*", "ab\ncd\nefghi", "*"},
		{"empty", "#10\n", "", ""},
		{"indefinite", "#0payload\nnext", "payload", "next"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tc.input))

			var buf bytes.Buffer
			n, err := readBlock(r, &buf)
			require.NoError(t, err)
			assert.EqualValues(t, len(tc.payload), n)
			assert.Equal(t, tc.payload, buf.String())

			rest, _ := r.ReadString(0)
			assert.Equal(t, tc.rest, rest)
		})
	}
}

func TestReadBlock_Invalid(t *testing.T) {
	for _, input := range []string{"hello", "#x12", "#2ab0123", ""} {
		r := bufio.NewReader(strings.NewReader(input))

		_, err := readBlock(r, &bytes.Buffer{})
		assert.Error(t, err, input)
	}

	_, err := readBlock(bufio.NewReader(strings.NewReader("#15hel")), &bytes.Buffer{})
	assert.Error(t, err, "short payload")
}
