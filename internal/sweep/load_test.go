package sweep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable(t *testing.T) {
	testCases := []struct {
		file   string
		preset string
	}{
		{"testdata/wr51.csv", "WR-51"},
		{"testdata/coax.yaml", "Coax"},
	}

	for _, tc := range testCases {
		t.Run(tc.file, func(t *testing.T) {
			table, err := LoadTable(tc.file)
			require.NoError(t, err)
			require.Len(t, table, 6)

			c, err := table.Resolve()
			require.NoError(t, err)

			p, ok := LookupPreset(tc.preset)
			require.True(t, ok)
			assert.Equal(t, p.Config, *c)
		})
	}
}

func TestLoadTable_Errors(t *testing.T) {
	_, err := LoadTable("testdata/missing.csv")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err = LoadTable(path)
	assert.ErrorContains(t, err, "unsupported table format")
}
