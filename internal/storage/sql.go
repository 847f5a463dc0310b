package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_runs_start_time ON runs (start_time);
CREATE INDEX IF NOT EXISTS idx_points_frequency ON points (run_id, frequency);`

	insertRunSQL = `
INSERT INTO runs (id,
                  start_time,
                  address,
                  config,
                  status)
VALUES (?, ?, ?, ?, ?)`

	finishRunSQL = `
UPDATE runs
SET finish_time = ?,
    status      = ?,
    identity    = ?,
    file        = ?,
    size        = ?,
    error       = ?
WHERE id = ?`

	updateRunNetworkSQL = `
UPDATE runs
SET ports = ?,
    z0    = ?
WHERE id = ?`

	selectRunSQL = `
SELECT id,
       start_time,
       finish_time,
       address,
       config,
       status,
       identity,
       file,
       size,
       error,
       ports,
       z0
FROM runs
WHERE id = ?`

	selectRunsSQL = `
SELECT id,
       start_time,
       finish_time,
       address,
       config,
       status,
       identity,
       file,
       size,
       error,
       ports,
       z0
FROM runs
ORDER BY start_time, rowid`

	insertPointSQL = `
INSERT INTO points (run_id,
                    point,
                    frequency,
                    port_i,
                    port_j,
                    re,
                    im)
VALUES `

	selectPointsSQL = `
SELECT point,
       frequency,
       port_i,
       port_j,
       re,
       im
FROM points
WHERE run_id = ?
  AND frequency >= ?
  AND frequency <= ?
ORDER BY point, port_i, port_j`
)
