package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// toConfigData serialises a run configuration. Strings and byte slices are
// stored as is, anything else as JSON.
func toConfigData(config any) (sql.NullString, error) {
	switch c := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return toNullString(c), nil
	case []byte:
		return toNullString(string(c)), nil
	}

	p, err := json.Marshal(config)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
	}
	if string(p) == "null" {
		return sql.NullString{}, nil
	}
	return toNullString(string(p)), nil
}

// toPointData flattens a network into rows ordered by point and port
func toPointData(runID string, n *touchstone.Network) []pointData {
	ports := n.Ports()
	data := make([]pointData, 0, n.Points()*ports*ports)

	for k, m := range n.S {
		for i, row := range m {
			for j, v := range row {
				data = append(data, pointData{
					RunID:     runID,
					Point:     k,
					Frequency: n.Frequency[k],
					PortI:     i + 1,
					PortJ:     j + 1,
					Re:        real(v),
					Im:        imag(v),
				})
			}
		}
	}

	return data
}

func newMatrix(ports int) [][]complex128 {
	m := make([][]complex128, ports)
	for i := range m {
		m[i] = make([]complex128, ports)
	}
	return m
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunData, error) {
	var (
		run    RunData
		id     string
		status string
	)

	err := row.Scan(
		&id,
		&run.StartTime,
		&run.FinishTime,
		&run.Address,
		&run.Config,
		&status,
		&run.Identity,
		&run.File,
		&run.Size,
		&run.Error,
		&run.Ports,
		&run.Z0,
	)
	if err != nil {
		return nil, err
	}

	if err = run.ID.UnmarshalText([]byte(id)); err != nil {
		return nil, fmt.Errorf("invalid run ID '%s': %w", id, err)
	}
	run.Status = RunStatus(status)

	return &run, nil
}
