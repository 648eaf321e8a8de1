// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package history persists per-cycle behavior observations. The SQLite
// store backs detector training queries; behavior.csv is the append-only
// contract log consumed by external tooling.
package history

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/warden/internal/errors"
)

// Observation is one behavior row: what a device did in one analysis window
// and how the detector judged it.
type Observation struct {
	Timestamp   time.Time
	IP          string
	MAC         string
	PacketRate  float64
	Packets     int64
	UniquePorts int
	Score       int
	Label       string // "normal" or "suspicious"
}

// Store handles persistence of behavior observations to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "opening history db")
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		ip TEXT,
		mac TEXT NOT NULL,
		packet_rate REAL NOT NULL,
		packets INTEGER NOT NULL,
		unique_ports INTEGER NOT NULL,
		score INTEGER NOT NULL,
		label TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_observations_ts ON observations(ts);
	CREATE INDEX IF NOT EXISTS idx_observations_mac ON observations(mac);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, errors.KindInternal, "initializing history schema")
	}
	return nil
}

// Append inserts one observation.
func (s *Store) Append(o Observation) error {
	_, err := s.db.Exec(
		`INSERT INTO observations (ts, ip, mac, packet_rate, packets, unique_ports, score, label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Timestamp.Unix(), o.IP, o.MAC, o.PacketRate, o.Packets, o.UniquePorts, o.Score, o.Label,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "inserting observation")
	}
	return nil
}

// Count returns the number of stored observations.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "counting observations")
	}
	return n, nil
}

// TrainingRows returns up to limit most recent (packet_rate, unique_ports)
// feature pairs, oldest first, for model fitting.
func (s *Store) TrainingRows(limit int) ([][2]float64, error) {
	rows, err := s.db.Query(
		`SELECT packet_rate, unique_ports FROM
		 (SELECT id, packet_rate, unique_ports FROM observations ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "querying training rows")
	}
	defer rows.Close()

	var out [][2]float64
	for rows.Next() {
		var rate float64
		var ports int
		if err := rows.Scan(&rate, &ports); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scanning training row")
		}
		out = append(out, [2]float64{rate, float64(ports)})
	}
	return out, rows.Err()
}

// Recent returns the newest limit observations, newest first.
func (s *Store) Recent(limit int) ([]Observation, error) {
	rows, err := s.db.Query(
		`SELECT ts, ip, mac, packet_rate, packets, unique_ports, score, label
		 FROM observations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "querying observations")
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var ts int64
		if err := rows.Scan(&ts, &o.IP, &o.MAC, &o.PacketRate, &o.Packets, &o.UniquePorts, &o.Score, &o.Label); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scanning observation")
		}
		o.Timestamp = time.Unix(ts, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}
