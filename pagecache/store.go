// Package pagecache persists normalized page snapshots in SQLite so repeat
// comparisons of the same URLs skip refetching and renormalizing.
package pagecache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/pagesift/dom"
)

// ErrSnapshotNotFound is returned when no snapshot matches the lookup.
var ErrSnapshotNotFound = errors.New("page snapshot not found")

// Snapshot is one cached normalized page.
type Snapshot struct {
	SnapshotID    uuid.UUID `json:"snapshot_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	TotalElements int       `json:"total_elements"`
	FetchedAt     time.Time `json:"fetched_at"`
	Page          *dom.Page `json:"page"`
}

// Store manages page snapshots using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the snapshot database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS page_snapshots (
		snapshot_id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		total_elements INTEGER NOT NULL,
		fetched_at TEXT NOT NULL,
		page_json TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a normalized page, replacing any previous snapshot of the same
// URL.
func (s *Store) Put(page *dom.Page) (*Snapshot, error) {
	if page == nil {
		return nil, errors.New("page must not be nil")
	}

	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page: %w", err)
	}

	snapshot := &Snapshot{
		SnapshotID:    uuid.New(),
		URL:           page.URL,
		Title:         page.Title,
		TotalElements: page.TotalElements,
		FetchedAt:     time.Now().Truncate(0),
		Page:          page,
	}

	query := `
		INSERT INTO page_snapshots (
			snapshot_id, url, title, total_elements, fetched_at, page_json
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			title = excluded.title,
			total_elements = excluded.total_elements,
			fetched_at = excluded.fetched_at,
			page_json = excluded.page_json
	`

	_, err = s.db.Exec(query,
		snapshot.SnapshotID.String(),
		snapshot.URL,
		snapshot.Title,
		snapshot.TotalElements,
		snapshot.FetchedAt.Format(time.RFC3339Nano),
		string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return snapshot, nil
}

// Get retrieves a snapshot by URL.
func (s *Store) Get(url string) (*Snapshot, error) {
	query := `
		SELECT snapshot_id, url, title, total_elements, fetched_at, page_json
		FROM page_snapshots
		WHERE url = ?
	`

	var snapshotIDStr, snapURL, title, fetchedAtStr, pageJSON string
	var totalElements int

	err := s.db.QueryRow(query, url).Scan(
		&snapshotIDStr, &snapURL, &title, &totalElements, &fetchedAtStr, &pageJSON,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	return scanSnapshot(snapshotIDStr, snapURL, title, totalElements, fetchedAtStr, pageJSON)
}

// List returns every cached snapshot, most recently fetched first.
// Individual snapshots that fail to decode are skipped rather than failing
// the whole listing; callers see a partial list plus the decode errors.
func (s *Store) List() ([]Snapshot, []error) {
	query := `
		SELECT snapshot_id, url, title, total_elements, fetched_at, page_json
		FROM page_snapshots
		ORDER BY fetched_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to query snapshots: %w", err)}
	}
	defer rows.Close()

	var snapshots []Snapshot
	var failures []error
	for rows.Next() {
		var snapshotIDStr, snapURL, title, fetchedAtStr, pageJSON string
		var totalElements int

		if err := rows.Scan(&snapshotIDStr, &snapURL, &title, &totalElements, &fetchedAtStr, &pageJSON); err != nil {
			failures = append(failures, fmt.Errorf("failed to scan snapshot: %w", err))
			continue
		}

		snapshot, err := scanSnapshot(snapshotIDStr, snapURL, title, totalElements, fetchedAtStr, pageJSON)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		snapshots = append(snapshots, *snapshot)
	}

	return snapshots, failures
}

// Delete removes the snapshot for a URL.
func (s *Store) Delete(url string) error {
	result, err := s.db.Exec("DELETE FROM page_snapshots WHERE url = ?", url)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSnapshotNotFound
	}

	return nil
}

func scanSnapshot(snapshotIDStr, url, title string, totalElements int, fetchedAtStr, pageJSON string) (*Snapshot, error) {
	snapshotID, err := uuid.Parse(snapshotIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot ID: %w", err)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, fetchedAtStr)
	if err != nil {
		fetchedAt, _ = time.Parse(time.RFC3339, fetchedAtStr)
	}

	var page dom.Page
	if err := json.Unmarshal([]byte(pageJSON), &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page for %s: %w", url, err)
	}

	return &Snapshot{
		SnapshotID:    snapshotID,
		URL:           url,
		Title:         title,
		TotalElements: totalElements,
		FetchedAt:     fetchedAt.Truncate(0),
		Page:          &page,
	}, nil
}
