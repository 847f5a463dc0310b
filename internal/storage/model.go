package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunStatus is the outcome of a journaled measurement run
type RunStatus string

// RunData is one measurement run
type RunData struct {
	ID         uuid.UUID
	StartTime  time.Time
	FinishTime sql.NullTime
	Address    string
	Config     sql.NullString // sweep configuration as JSON
	Status     RunStatus
	Identity   sql.NullString
	File       sql.NullString // local path of the fetched file
	Size       sql.NullInt64
	Error      sql.NullString
	Ports      sql.NullInt64
	Z0         sql.NullFloat64
}

// pointData is one S-parameter value of a run, with one-based ports
type pointData struct {
	RunID     string
	Point     int
	Frequency float64
	PortI     int
	PortJ     int
	Re        float64
	Im        float64
}
