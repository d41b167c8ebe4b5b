package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/timeline"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by mutations that target a missing row.
// Getters return nil, nil instead.
var ErrNotFound = errors.New("not found")

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 1920,
		height INTEGER NOT NULL DEFAULT 1080,
		frame_rate REAL NOT NULL DEFAULT 30,
		timeline TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS library_files (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		media_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		duration REAL,
		width INTEGER,
		height INTEGER,
		source TEXT NOT NULL DEFAULT 'upload',
		source_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_library_project ON library_files(project_id, created_at);

	CREATE TABLE IF NOT EXISTS transcripts (
		file_id TEXT PRIMARY KEY REFERENCES library_files(id) ON DELETE CASCADE,
		body TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		actions TEXT NOT NULL,
		outcomes TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_action_log_project ON action_log(project_id, id DESC);

	CREATE TABLE IF NOT EXISTS style_profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Projects
func (s *SQLiteStorage) CreateProject(p *Project) error {
	body, err := json.Marshal(p.Timeline)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO projects (id, name, width, height, frame_rate, timeline, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Width, p.Height, p.FrameRate, string(body), p.Version, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *SQLiteStorage) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(`
		SELECT id, name, width, height, frame_rate, timeline, version, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStorage) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`
		SELECT id, name, width, height, frame_rate, timeline, version, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}

	return projects, rows.Err()
}

func (s *SQLiteStorage) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SaveTimeline stores tl as the project's timeline and bumps its version.
func (s *SQLiteStorage) SaveTimeline(projectID string, tl timeline.Timeline) (int64, error) {
	body, err := json.Marshal(tl)
	if err != nil {
		return 0, err
	}

	var version int64
	err = s.db.QueryRow(`
		UPDATE projects SET timeline = ?, version = version + 1, updated_at = ?
		WHERE id = ?
		RETURNING version
	`, string(body), time.Now().UTC(), projectID).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return version, err
}

// Library
func (s *SQLiteStorage) AddLibraryFile(f *LibraryFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Source == "" {
		f.Source = SourceUpload
	}
	_, err := s.db.Exec(`
		INSERT INTO library_files (id, project_id, name, mime_type, media_type, size, duration, width, height, source, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			media_type = excluded.media_type,
			size = excluded.size,
			duration = excluded.duration,
			width = excluded.width,
			height = excluded.height
	`, f.ID, f.ProjectID, f.Name, f.MIMEType, string(f.Type), f.Size, f.Duration, f.Width, f.Height, f.Source, f.SourceURL, f.CreatedAt)
	return err
}

// ListLibraryFiles returns the project's library in import order.
func (s *SQLiteStorage) ListLibraryFiles(projectID string) ([]LibraryFile, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, name, mime_type, media_type, size, duration, width, height, source, source_url, created_at
		FROM library_files WHERE project_id = ? ORDER BY created_at, rowid
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []LibraryFile
	for rows.Next() {
		f, err := scanLibraryFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}

	return files, rows.Err()
}

func (s *SQLiteStorage) GetLibraryFile(id string) (*LibraryFile, error) {
	row := s.db.QueryRow(`
		SELECT id, project_id, name, mime_type, media_type, size, duration, width, height, source, source_url, created_at
		FROM library_files WHERE id = ?
	`, id)

	f, err := scanLibraryFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// Transcripts
func (s *SQLiteStorage) SaveTranscript(t *timeline.Transcript) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO transcripts (file_id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, t.FileID, string(body), time.Now().UTC())
	return err
}

func (s *SQLiteStorage) GetTranscriptByFile(fileID string) (*timeline.Transcript, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM transcripts WHERE file_id = ?`, fileID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var t timeline.Transcript
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", fileID, err)
	}
	return &t, nil
}

// Action log
func (s *SQLiteStorage) AppendActionLog(e *ActionLogEntry) error {
	actions, err := json.Marshal(e.Actions)
	if err != nil {
		return err
	}
	outcomes, err := json.Marshal(e.Outcomes)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO action_log (project_id, source, actions, outcomes, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ProjectID, e.Source, string(actions), string(outcomes), e.Version, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// ListActionLog returns the newest entries first.
func (s *SQLiteStorage) ListActionLog(projectID string, limit int) ([]ActionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, project_id, source, actions, outcomes, version, created_at
		FROM action_log WHERE project_id = ?
		ORDER BY id DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActionLogEntry
	for rows.Next() {
		var e ActionLogEntry
		var actions, outcomes string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Source, &actions, &outcomes, &e.Version, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(outcomes), &e.Outcomes); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Style profiles
func (s *SQLiteStorage) SaveStyleProfile(sp *StyleProfile) error {
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(sp)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO style_profiles (id, name, body, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			body = excluded.body
	`, sp.ID, sp.Name, string(body), sp.CreatedAt)
	return err
}

func (s *SQLiteStorage) GetStyleProfile(id string) (*StyleProfile, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM style_profiles WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStyleProfile(id, body)
}

// ListStyleProfiles returns profiles oldest first.
func (s *SQLiteStorage) ListStyleProfiles() ([]StyleProfile, error) {
	rows, err := s.db.Query(`SELECT id, body FROM style_profiles ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []StyleProfile
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		sp, err := decodeStyleProfile(id, body)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *sp)
	}

	return profiles, rows.Err()
}

func (s *SQLiteStorage) DeleteStyleProfile(id string) error {
	res, err := s.db.Exec(`DELETE FROM style_profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func decodeStyleProfile(id, body string) (*StyleProfile, error) {
	var sp StyleProfile
	if err := json.Unmarshal([]byte(body), &sp); err != nil {
		return nil, fmt.Errorf("decode style profile %s: %w", id, err)
	}
	return &sp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var body string
	if err := row.Scan(&p.ID, &p.Name, &p.Width, &p.Height, &p.FrameRate, &body, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), &p.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline %s: %w", p.ID, err)
	}
	return &p, nil
}

func scanLibraryFile(row scanner) (*LibraryFile, error) {
	var f LibraryFile
	var mediaType string
	var duration sql.NullFloat64
	var width, height sql.NullInt64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.MIMEType, &mediaType, &f.Size, &duration, &width, &height, &f.Source, &f.SourceURL, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Type = timeline.MediaType(mediaType)
	if duration.Valid {
		f.Duration = &duration.Float64
	}
	if width.Valid {
		w := int(width.Int64)
		f.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		f.Height = &h
	}
	return &f, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
