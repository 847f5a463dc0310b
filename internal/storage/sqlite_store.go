package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

// maxBatchSize is the number of points inserted by a single statement
const maxBatchSize = 500

// ErrRunNotFound is returned when a run ID is not in the journal
var ErrRunNotFound = errors.New("run not found")

// WithFrequencyRange limits the points read to [lo, hi] Hz
func WithFrequencyRange(lo, hi float64) ReadOption {
	return func(o *readOptions) {
		o.minFreq = lo
		o.maxFreq = hi
	}
}

// WithMinFrequency drops points below hz
func WithMinFrequency(hz float64) ReadOption {
	return func(o *readOptions) {
		o.minFreq = hz
	}
}

// WithMaxFrequency drops points above hz
func WithMaxFrequency(hz float64) ReadOption {
	return func(o *readOptions) {
		o.maxFreq = hz
	}
}

// ReadOption narrows the points read by Network
type ReadOption func(*readOptions)

type readOptions struct {
	minFreq float64
	maxFreq float64
}

// SqliteStore is the measurement journal. Writes go through a WAL mode
// connection, reads through a separate read-only one, both opened on first
// use.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a journal backed by the database at dbPath
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateRun records the start of a measurement run. config is stored as is
// when it is a string or a byte slice, and as JSON otherwise.
func (s *SqliteStore) CreateRun(ctx context.Context, id uuid.UUID, address string, config any) (err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if _, err = stmt.ExecContext(ctx, id.String(), time.Now().UTC(), address, configData, RunStatusRunning); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	return nil
}

// FinishRun records the outcome of a run. A non-nil runErr marks the run as
// failed.
func (s *SqliteStore) FinishRun(ctx context.Context, id uuid.UUID, identity, file string, size int64, runErr error) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	status := RunStatusSucceeded
	var errText sql.NullString
	if runErr != nil {
		status = RunStatusFailed
		errText = toNullString(runErr.Error())
	}

	var sizeData sql.NullInt64
	if file != "" {
		sizeData = sql.NullInt64{Int64: size, Valid: true}
	}

	stmt, err := db.PrepareContext(ctx, finishRunSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		time.Now().UTC(),
		status,
		toNullString(identity),
		toNullString(file),
		sizeData,
		errText,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %s: %w", id, ErrRunNotFound)
	}

	return nil
}

// StoreNetwork stores every S-parameter value of the network against the
// run, in a single transaction.
func (s *SqliteStore) StoreNetwork(ctx context.Context, id uuid.UUID, n *touchstone.Network) (err error) {
	if err = n.Validate(); err != nil {
		return fmt.Errorf("storing network: %w", err)
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, updateRunNetworkSQL, n.Ports(), n.Z0, id.String())
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if rows, rErr := result.RowsAffected(); rErr == nil && rows == 0 {
		return fmt.Errorf("storing network of run %s: %w", id, ErrRunNotFound)
	}

	valuesPlaceholder := "(?, ?, ?, ?, ?, ?, ?)"

	for chunk := range slices.Chunk(toPointData(id.String(), n), maxBatchSize) {
		values := make([]any, 0, len(chunk)*7)

		var sb strings.Builder
		sb.WriteString(insertPointSQL)

		for i, p := range chunk {
			values = append(values, p.RunID, p.Point, p.Frequency, p.PortI, p.PortJ, p.Re, p.Im)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(valuesPlaceholder)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting points: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Run returns a run by its ID
func (s *SqliteStore) Run(ctx context.Context, id uuid.UUID) (run *RunData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	run, err = scanRun(stmt.QueryRowContext(ctx, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	return run, nil
}

// Runs returns every run, oldest first
func (s *SqliteStore) Runs(ctx context.Context) (runs []*RunData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// Network rebuilds the stored network of a run
func (s *SqliteStore) Network(ctx context.Context, id uuid.UUID, options ...ReadOption) (n *touchstone.Network, err error) {
	opts := readOptions{
		minFreq: 0,
		maxFreq: math.MaxFloat64,
	}
	for _, option := range options {
		option(&opts)
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	if !run.Ports.Valid {
		return nil, fmt.Errorf("run %s has no stored network", id)
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectPointsSQL, id.String(), opts.minFreq, opts.maxFreq)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer closeWithError(rows, &err)

	ports := int(run.Ports.Int64)
	n = touchstone.NewNetwork(ports, nil, run.Z0.Float64)

	last := -1
	for rows.Next() {
		var p pointData
		if err = rows.Scan(&p.Point, &p.Frequency, &p.PortI, &p.PortJ, &p.Re, &p.Im); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		if p.PortI < 1 || p.PortI > ports || p.PortJ < 1 || p.PortJ > ports {
			return nil, fmt.Errorf("point %d has invalid ports (%d,%d)", p.Point, p.PortI, p.PortJ)
		}

		if p.Point != last {
			n.Frequency = append(n.Frequency, p.Frequency)
			n.S = append(n.S, newMatrix(ports))
			last = p.Point
		}

		n.S[len(n.S)-1][p.PortI-1][p.PortJ-1] = complex(p.Re, p.Im)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}
	if len(n.Frequency) == 0 {
		return nil, fmt.Errorf("run %s has no points in range", id)
	}

	return n, nil
}

// Close builds the indexes and closes both connections. It is safe to call
// more than once.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
