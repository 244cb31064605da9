package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-disaster-response/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disasters (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			location_name TEXT,
			description TEXT NOT NULL,
			tags TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			coordinates TEXT,
			audit_trail TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_disasters_owner_id ON disasters(owner_id);
		CREATE INDEX IF NOT EXISTS idx_disasters_created_at ON disasters(created_at);
		CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Put(ctx context.Context, rec *models.DisasterRecord) error {
	tags, coords, trail, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO disasters (id, title, location_name, description, tags, owner_id, coordinates, audit_trail, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.LocationName, rec.Description, tags, rec.OwnerID, coords, trail, rec.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting disaster %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.DisasterRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, location_name, description, tags, owner_id, coordinates, audit_trail, version, created_at, updated_at
		FROM disasters WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching disaster %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteDB) UpdateVersioned(ctx context.Context, rec *models.DisasterRecord, expectedVersion int64) error {
	tags, coords, trail, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE disasters
		SET title = ?, location_name = ?, description = ?, tags = ?, coordinates = ?, audit_trail = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		rec.Title, rec.LocationName, rec.Description, tags, coords, trail, rec.UpdatedAt, rec.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("error updating disaster %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}

	rec.Version = expectedVersion + 1
	return nil
}

func (s *SQLiteDB) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM disasters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting disaster %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteDB) List(ctx context.Context, opts Filter) ([]models.DisasterRecord, error) {
	query := `
		SELECT id, title, location_name, description, tags, owner_id, coordinates, audit_trail, version, created_at, updated_at
		FROM disasters WHERE 1=1`
	args := []any{}

	if opts.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, opts.OwnerID)
	}
	if opts.Tag != "" {
		// Tags are stored as a JSON array; match an exact element.
		query += ` AND EXISTS (SELECT 1 FROM json_each(disasters.tags) WHERE json_each.value = ?)`
		args = append(args, opts.Tag)
	}

	query += ` ORDER BY created_at DESC`

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing disasters: %w", err)
	}
	defer rows.Close()

	var records []models.DisasterRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning disaster row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *SQLiteDB) GetEntry(ctx context.Context, key string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, value, expires_at FROM cache WHERE key = ?`, key)

	var e models.CacheEntry
	if err := row.Scan(&e.Key, &e.Value, &e.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching cache entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteDB) PutEntry(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("error writing cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteDB) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("error deleting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteDB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("error sweeping cache: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DisasterRecord, error) {
	var (
		rec    models.DisasterRecord
		tags   string
		coords sql.NullString
		trail  string
	)
	err := row.Scan(&rec.ID, &rec.Title, &rec.LocationName, &rec.Description, &tags, &rec.OwnerID, &coords, &trail, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("error decoding tags for %s: %w", rec.ID, err)
	}
	if coords.Valid && coords.String != "" {
		var loc models.ResolvedLocation
		if err := json.Unmarshal([]byte(coords.String), &loc); err != nil {
			return nil, fmt.Errorf("error decoding coordinates for %s: %w", rec.ID, err)
		}
		rec.Coordinates = &loc
	}
	if err := json.Unmarshal([]byte(trail), &rec.AuditTrail); err != nil {
		return nil, fmt.Errorf("error decoding audit trail for %s: %w", rec.ID, err)
	}

	return &rec, nil
}

func encodeRecord(rec *models.DisasterRecord) (tags string, coords sql.NullString, trail string, err error) {
	t := rec.Tags
	if t == nil {
		t = []string{}
	}
	tagsBytes, err := json.Marshal(t)
	if err != nil {
		return "", sql.NullString{}, "", fmt.Errorf("error encoding tags for %s: %w", rec.ID, err)
	}

	if rec.Coordinates != nil {
		coordBytes, err := json.Marshal(rec.Coordinates)
		if err != nil {
			return "", sql.NullString{}, "", fmt.Errorf("error encoding coordinates for %s: %w", rec.ID, err)
		}
		coords = sql.NullString{String: string(coordBytes), Valid: true}
	}

	trailBytes, err := json.Marshal(rec.AuditTrail)
	if err != nil {
		return "", sql.NullString{}, "", fmt.Errorf("error encoding audit trail for %s: %w", rec.ID, err)
	}

	return string(tagsBytes), coords, string(trailBytes), nil
}
