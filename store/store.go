// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store keeps area synapse snapshots in a sqlite database, so
// learned state can be saved during a run and restored into a new cortex.
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emer/cortex/cortex"
	"github.com/google/uuid"
	"github.com/voodooEntity/archivist"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned by a store used before Init or after Close.
var ErrNotInitialized = errors.New("snapshot store is not initialized")

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Id      string
	Area    string
	Tick    uint64
	Created time.Time
	Bytes   int
}

// SnapshotStore is a sqlite database of area snapshots. Payloads are gzip
// compressed snapshot JSON.
type SnapshotStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSnapshotStore returns a store on the database file at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Init opens the database and creates its table.
func (ss *SnapshotStore) Init(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.path == "" {
		return errors.New("sqlite path is required")
	}
	if ss.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", ss.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			area TEXT NOT NULL,
			tick INTEGER NOT NULL,
			created INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS snapshots_area ON snapshots (area, tick);
	`); err != nil {
		_ = db.Close()
		return err
	}
	ss.db = db
	return nil
}

// Close closes the database.
func (ss *SnapshotStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.db == nil {
		return nil
	}
	err := ss.db.Close()
	ss.db = nil
	return err
}

func (ss *SnapshotStore) getDB() (*sql.DB, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if ss.db == nil {
		return nil, ErrNotInitialized
	}
	return ss.db, nil
}

func encode(as *cortex.AreaSnapshot) ([]byte, error) {
	var b bytes.Buffer
	zw := gzip.NewWriter(&b)
	if err := as.WriteJSON(zw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decode(payload []byte) (*cortex.AreaSnapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return cortex.ReadSnapshotJSON(zr)
}

// Save stores as under a new id, which it returns.
func (ss *SnapshotStore) Save(ctx context.Context, as *cortex.AreaSnapshot) (string, error) {
	id := uuid.New().String()
	return id, ss.SaveAs(ctx, id, as)
}

// SaveAs stores as under id, replacing any snapshot with that id.
func (ss *SnapshotStore) SaveAs(ctx context.Context, id string, as *cortex.AreaSnapshot) error {
	db, err := ss.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(as)
	if err != nil {
		return fmt.Errorf("encode snapshot of %s: %w", as.Area, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, area, tick, created, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			area = excluded.area,
			tick = excluded.tick,
			created = excluded.created,
			payload = excluded.payload
	`, id, as.Area, int64(as.Tick), time.Now().UnixNano(), payload)
	if err != nil {
		return err
	}
	archivist.Debug("saved snapshot", id, as.Area, as.Tick, len(payload))
	return nil
}

// Load returns the snapshot stored under id; ok is false if there is none.
func (ss *SnapshotStore) Load(ctx context.Context, id string) (as *cortex.AreaSnapshot, ok bool, err error) {
	db, err := ss.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	as, err = decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return as, true, nil
}

// List returns the snapshots of an area, or of every area if area is
// empty, in tick order.
func (ss *SnapshotStore) List(ctx context.Context, area string) ([]SnapshotInfo, error) {
	db, err := ss.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, area, tick, created, length(payload) FROM snapshots
		WHERE ? = '' OR area = ?
		ORDER BY area, tick, created
	`, area, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var infos []SnapshotInfo
	for rows.Next() {
		var si SnapshotInfo
		var tick, created int64
		if err := rows.Scan(&si.Id, &si.Area, &tick, &created, &si.Bytes); err != nil {
			return nil, err
		}
		si.Tick = uint64(tick)
		si.Created = time.Unix(0, created)
		infos = append(infos, si)
	}
	return infos, rows.Err()
}

// Latest returns the snapshot of area with the highest tick.
func (ss *SnapshotStore) Latest(ctx context.Context, area string) (*cortex.AreaSnapshot, bool, error) {
	db, err := ss.getDB()
	if err != nil {
		return nil, false, err
	}
	var id string
	err = db.QueryRowContext(ctx, `
		SELECT id FROM snapshots WHERE area = ? ORDER BY tick DESC, created DESC LIMIT 1
	`, area).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ss.Load(ctx, id)
}

// Delete removes the snapshot stored under id.
func (ss *SnapshotStore) Delete(ctx context.Context, id string) error {
	db, err := ss.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return err
}

// SaveCortex stores a snapshot of every area and returns their ids by area
// name.
func (ss *SnapshotStore) SaveCortex(ctx context.Context, cx *cortex.Cortex) (map[string]string, error) {
	ids := make(map[string]string, len(cx.Areas))
	for _, ar := range cx.Areas {
		as, err := ar.Snapshot()
		if err != nil {
			return ids, err
		}
		id, err := ss.Save(ctx, as)
		if err != nil {
			return ids, err
		}
		ids[ar.Name] = id
	}
	return ids, nil
}

// RestoreCortex restores every area of cx from its latest snapshot. Areas
// without one are left as they are; their names are returned.
func (ss *SnapshotStore) RestoreCortex(ctx context.Context, cx *cortex.Cortex) ([]string, error) {
	var missing []string
	for _, ar := range cx.Areas {
		as, ok, err := ss.Latest(ctx, ar.Name)
		if err != nil {
			return missing, err
		}
		if !ok {
			missing = append(missing, ar.Name)
			continue
		}
		if err := ar.Restore(as); err != nil {
			return missing, fmt.Errorf("restore %s: %w", ar.Name, err)
		}
	}
	return missing, nil
}
