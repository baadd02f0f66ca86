package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RetrievalStatus marks how a retrieval ended
type RetrievalStatus string

const (
	// RetrievalSucceeded means the external call completed and the
	// output directory was located
	RetrievalSucceeded RetrievalStatus = "succeeded"
	// RetrievalFailed means the external call or directory probing failed
	RetrievalFailed RetrievalStatus = "failed"
)

// RetrievalRecord is one historic retrieval attempt
type RetrievalRecord struct {
	ID         string
	OrgID      string
	Directory  string
	Status     RetrievalStatus
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// RecordRetrieval inserts a retrieval attempt. An empty ID is assigned
// a fresh UUID.
func (db *DB) RecordRetrieval(rec RetrievalRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := db.conn.Exec(`
		INSERT INTO retrievals (id, org_id, directory, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.OrgID, rec.Directory, string(rec.Status), rec.Error,
		rec.DurationMs, rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to record retrieval: %w", err)
	}

	return rec.ID, nil
}

// ListRetrievals returns the most recent retrievals for an org, newest
// first. An empty orgID lists across all orgs.
func (db *DB) ListRetrievals(orgID string, limit int) ([]RetrievalRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, org_id, directory, status, COALESCE(error, ''), duration_ms, created_at
		FROM retrievals`
	args := []interface{}{}
	if orgID != "" {
		query += " WHERE org_id = ?"
		args = append(args, orgID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list retrievals: %w", err)
	}
	defer rows.Close()

	var records []RetrievalRecord
	for rows.Next() {
		var rec RetrievalRecord
		var status, createdAt string
		if err := rows.Scan(&rec.ID, &rec.OrgID, &rec.Directory, &status,
			&rec.Error, &rec.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		rec.Status = RetrievalStatus(status)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// UpsertCacheEntry records the cached directory for an org
func (db *DB) UpsertCacheEntry(orgID, directory string) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO cache_entries (org_id, directory, retrieved_at)
		VALUES (?, ?, ?)
	`, orgID, directory, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// GetCacheEntry returns the cached directory for an org, if recorded
func (db *DB) GetCacheEntry(orgID string) (string, bool, error) {
	var directory string
	err := db.conn.QueryRow(`
		SELECT directory FROM cache_entries WHERE org_id = ?
	`, orgID).Scan(&directory)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache entry lookup failed: %w", err)
	}
	return directory, true, nil
}

// DeleteCacheEntry removes an org's cache entry
func (db *DB) DeleteCacheEntry(orgID string) error {
	_, err := db.conn.Exec(`DELETE FROM cache_entries WHERE org_id = ?`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}
