package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, enables WAL and
// foreign keys on every connection, and applies pending migrations.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("store: database path is required")
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// migrate applies embedded migrations in file-name order, recording each
// in schema_migrations so it runs once.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	);`); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)

	for _, name := range names {
		var applied int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("store: check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return err
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateBackup inserts b, assigning an ID and CreatedAt when empty.
func (s *SQLiteStore) CreateBackup(ctx context.Context, b Backup) (Backup, error) {
	if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.Area) == "" || !b.Status.Valid() || b.SizeBytes < 0 {
		return Backup{}, fmt.Errorf("%w: name=%q area=%q status=%q", ErrInvalidBackup, b.Name, b.Area, b.Status)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Second)

	var completed sql.NullInt64
	if b.CompletedAt != nil {
		t := b.CompletedAt.UTC().Truncate(time.Second)
		b.CompletedAt = &t
		completed = sql.NullInt64{Int64: t.Unix(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (id, name, area, status, size_bytes, location, checksum, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		b.ID, b.Name, b.Area, string(b.Status), b.SizeBytes, b.Location, b.Checksum, b.CreatedAt.Unix(), completed,
	)
	if err != nil {
		return Backup{}, fmt.Errorf("store: insert backup: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Backup{}, fmt.Errorf("store: insert backup: %w", err)
	} else if n == 0 {
		return Backup{}, fmt.Errorf("%w: backup %s", ErrConflict, b.ID)
	}
	return b, nil
}

const backupColumns = `id, name, area, status, size_bytes, location, checksum, created_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBackup(row scanner) (Backup, error) {
	var (
		b         Backup
		status    string
		created   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Area, &status, &b.SizeBytes, &b.Location, &b.Checksum, &created, &completed); err != nil {
		return Backup{}, err
	}
	b.Status = Status(status)
	b.CreatedAt = time.Unix(created, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		b.CompletedAt = &t
	}
	return b, nil
}

// ListBackups returns backups matching f, newest first.
func (s *SQLiteStore) ListBackups(ctx context.Context, f Filter) ([]Backup, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupColumns+`
		 FROM backups
		 WHERE (? = '' OR area = ?) AND (? = '' OR status = ?)
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		f.Area, f.Area, string(f.Status), string(f.Status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list backups: %w", err)
	}
	defer rows.Close()

	backups := []Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// GetBackup returns one backup by ID.
func (s *SQLiteStore) GetBackup(ctx context.Context, id string) (Backup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+backupColumns+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, fmt.Errorf("%w: backup %s", ErrNotFound, id)
	}
	if err != nil {
		return Backup{}, fmt.Errorf("store: get backup: %w", err)
	}
	return b, nil
}

// Stats aggregates backups in area, or every area when area is "".
func (s *SQLiteStore) Stats(ctx context.Context, area string) (Stats, error) {
	st := Stats{
		ByStatus: make(map[Status]int, len(Statuses)),
		ByArea:   make(map[string]int),
	}
	for _, status := range Statuses {
		st.ByStatus[status] = 0
	}

	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), MAX(created_at)
		 FROM backups WHERE (? = '' OR area = ?)`, area, area,
	).Scan(&st.Count, &st.TotalBytes, &latest)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats totals: %w", err)
	}
	if latest.Valid {
		t := time.Unix(latest.Int64, 0).UTC()
		st.LatestAt = &t
	}

	groups := []struct {
		column string
		add    func(key string, n int)
	}{
		{"status", func(key string, n int) { st.ByStatus[Status(key)] = n }},
		{"area", func(key string, n int) { st.ByArea[key] = n }},
	}
	for _, g := range groups {
		if err := s.countBy(ctx, g.column, area, g.add); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// countBy runs a GROUP BY on a fixed column name.
func (s *SQLiteStore) countBy(ctx context.Context, column, area string, add func(string, int)) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM backups WHERE (? = '' OR area = ?) GROUP BY `+column, area, area)
	if err != nil {
		return fmt.Errorf("store: stats by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("store: scan stats by %s: %w", column, err)
		}
		add(key, n)
	}
	return rows.Err()
}

// PermissionGroups returns every defined group ordered by ID.
func (s *SQLiteStore) PermissionGroups(ctx context.Context) ([]PermissionGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description FROM permission_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list permission groups: %w", err)
	}
	defer rows.Close()

	groups := []PermissionGroup{}
	for rows.Next() {
		var g PermissionGroup
		if err := rows.Scan(&g.ID, &g.Description); err != nil {
			return nil, fmt.Errorf("store: scan permission group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpsertPermissionGroup creates or updates a group definition.
func (s *SQLiteStore) UpsertPermissionGroup(ctx context.Context, g PermissionGroup) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidGroup)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permission_groups (id, description) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET description = excluded.description`,
		g.ID, g.Description,
	)
	if err != nil {
		return fmt.Errorf("store: upsert permission group: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
