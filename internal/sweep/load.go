package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// LoadTable reads a configuration table from a CSV file (header
// "parameter,value,unit") or a YAML file holding a list of rows.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()

	var rows []*Parameter
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		if err = gocsv.UnmarshalFile(f, &rows); err != nil {
			return nil, fmt.Errorf("decoding CSV table: %w", err)
		}

	case ".yaml", ".yml":
		if err = yaml.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decoding YAML table: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported table format '%s'", ext)
	}

	table := make(Table, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		row.Value = strings.TrimSpace(row.Value)
		row.Unit = Unit(strings.TrimSpace(string(row.Unit)))
		table = append(table, *row)
	}

	return table, nil
}
