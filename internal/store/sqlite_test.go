package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "opsgate.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedBackups(t *testing.T, s *SQLiteStore) []Backup {
	t.Helper()
	done := baseTime.Add(30 * time.Minute)
	input := []Backup{
		{ID: "b1", Name: "nightly", Area: "north", Status: StatusCompleted, SizeBytes: 100, Location: "north/b1.tar.gz", CreatedAt: baseTime, CompletedAt: &done},
		{ID: "b2", Name: "nightly", Area: "north", Status: StatusFailed, CreatedAt: baseTime.Add(time.Hour)},
		{ID: "b3", Name: "weekly", Area: "south", Status: StatusRunning, SizeBytes: 50, CreatedAt: baseTime.Add(2 * time.Hour)},
		{ID: "b4", Name: "weekly", Area: "south", Status: StatusCompleted, SizeBytes: 250, Location: "south/b4.tar.gz", CreatedAt: baseTime.Add(3 * time.Hour), CompletedAt: &done},
	}
	out := make([]Backup, 0, len(input))
	for _, b := range input {
		created, err := s.CreateBackup(context.Background(), b)
		if err != nil {
			t.Fatalf("CreateBackup(%s) error = %v", b.ID, err)
		}
		out = append(out, created)
	}
	return out
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsgate.db")
	ctx := context.Background()

	for i := range 2 {
		s, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i+1, err)
		}
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if n != 2 {
			t.Errorf("schema_migrations rows = %d, want 2", n)
		}
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
		_ = s.Close()
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("Open(\"\") should fail")
	}
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db")); err == nil {
		t.Error("Open() in a missing directory should fail")
	}
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	s := openTestStore(t)
	var on int
	if err := s.db.QueryRowContext(context.Background(), `PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatal(err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestCreateBackup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b, err := s.CreateBackup(ctx, Backup{Name: "adhoc", Area: "east", Status: StatusRunning})
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if b.ID == "" || b.CreatedAt.IsZero() {
		t.Errorf("CreateBackup() = %+v, want generated ID and CreatedAt", b)
	}

	invalid := []Backup{
		{Area: "east", Status: StatusRunning},
		{Name: "x", Status: StatusRunning},
		{Name: "x", Area: "east", Status: "archived"},
		{Name: "x", Area: "east", Status: StatusRunning, SizeBytes: -1},
	}
	for _, in := range invalid {
		if _, err := s.CreateBackup(ctx, in); !errors.Is(err, ErrInvalidBackup) {
			t.Errorf("CreateBackup(%+v) error = %v, want ErrInvalidBackup", in, err)
		}
	}

	if _, err := s.CreateBackup(ctx, Backup{ID: b.ID, Name: "dup", Area: "east", Status: StatusRunning}); !errors.Is(err, ErrConflict) {
		t.Errorf("CreateBackup() with duplicate ID error = %v, want ErrConflict", err)
	}
}

func TestGetBackup(t *testing.T) {
	s := openTestStore(t)
	seeded := seedBackups(t, s)
	ctx := context.Background()

	got, err := s.GetBackup(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBackup() error = %v", err)
	}
	want := seeded[0]
	if got.ID != want.ID || got.Location != want.Location || !got.CreatedAt.Equal(want.CreatedAt) || got.CompletedAt == nil || !got.CompletedAt.Equal(*want.CompletedAt) {
		t.Errorf("GetBackup() = %+v, want %+v", got, want)
	}

	running, _ := s.GetBackup(ctx, "b3")
	if running.CompletedAt != nil {
		t.Errorf("running backup CompletedAt = %v, want nil", running.CompletedAt)
	}

	if _, err := s.GetBackup(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBackup(nope) error = %v, want ErrNotFound", err)
	}
}

func TestListBackups(t *testing.T) {
	s := openTestStore(t)
	seedBackups(t, s)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"b4", "b3", "b2", "b1"}},
		{"by area", Filter{Area: "north"}, []string{"b2", "b1"}},
		{"by status", Filter{Status: StatusCompleted}, []string{"b4", "b1"}},
		{"area and status", Filter{Area: "south", Status: StatusRunning}, []string{"b3"}},
		{"limit", Filter{Limit: 2}, []string{"b4", "b3"}},
		{"no match", Filter{Area: "west"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListBackups(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListBackups() error = %v", err)
			}
			if got == nil {
				t.Fatal("ListBackups() returned nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListBackups() returned %d rows, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("row %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	seedBackups(t, s)

	tests := []struct {
		name       string
		area       string
		wantCount  int
		wantBytes  int64
		wantLatest time.Time
		wantStatus map[Status]int
		wantArea   map[string]int
	}{
		{
			name: "all areas", area: "",
			wantCount: 4, wantBytes: 400, wantLatest: baseTime.Add(3 * time.Hour),
			wantStatus: map[Status]int{StatusCompleted: 2, StatusFailed: 1, StatusRunning: 1},
			wantArea:   map[string]int{"north": 2, "south": 2},
		},
		{
			name: "one area", area: "north",
			wantCount: 2, wantBytes: 100, wantLatest: baseTime.Add(time.Hour),
			wantStatus: map[Status]int{StatusCompleted: 1, StatusFailed: 1, StatusRunning: 0},
			wantArea:   map[string]int{"north": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := s.Stats(context.Background(), tt.area)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if st.Count != tt.wantCount || st.TotalBytes != tt.wantBytes {
				t.Errorf("Count/TotalBytes = %d/%d, want %d/%d", st.Count, st.TotalBytes, tt.wantCount, tt.wantBytes)
			}
			if st.LatestAt == nil || !st.LatestAt.Equal(tt.wantLatest) {
				t.Errorf("LatestAt = %v, want %v", st.LatestAt, tt.wantLatest)
			}
			for status, n := range tt.wantStatus {
				if st.ByStatus[status] != n {
					t.Errorf("ByStatus[%s] = %d, want %d", status, st.ByStatus[status], n)
				}
			}
			if len(st.ByArea) != len(tt.wantArea) {
				t.Errorf("ByArea = %v, want %v", st.ByArea, tt.wantArea)
			}
			for area, n := range tt.wantArea {
				if st.ByArea[area] != n {
					t.Errorf("ByArea[%s] = %d, want %d", area, st.ByArea[area], n)
				}
			}
		})
	}
}

func TestStats_Empty(t *testing.T) {
	s := openTestStore(t)

	st, err := s.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Count != 0 || st.TotalBytes != 0 || st.LatestAt != nil || len(st.ByArea) != 0 {
		t.Errorf("Stats() = %+v, want empty", st)
	}
	if len(st.ByStatus) != len(Statuses) {
		t.Errorf("ByStatus = %v, want every status present", st.ByStatus)
	}
}

func TestPermissionGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	groups, err := s.PermissionGroups(ctx)
	if err != nil {
		t.Fatalf("PermissionGroups() error = %v", err)
	}
	want := []string{"ADMIN", "BACKUP_DOWNLOAD", "BACKUP_READ", "DASHBOARD_VIEW"}
	if len(groups) != len(want) {
		t.Fatalf("PermissionGroups() = %v, want %v", groups, want)
	}
	for i, id := range want {
		if groups[i].ID != id || groups[i].Description == "" {
			t.Errorf("group %d = %+v, want %s with description", i, groups[i], id)
		}
	}

	if err := s.UpsertPermissionGroup(ctx, PermissionGroup{ID: "AUDIT", Description: "Read audit log"}); err != nil {
		t.Fatalf("UpsertPermissionGroup() error = %v", err)
	}
	if err := s.UpsertPermissionGroup(ctx, PermissionGroup{ID: "ADMIN", Description: "Everything"}); err != nil {
		t.Fatalf("UpsertPermissionGroup() update error = %v", err)
	}
	if err := s.UpsertPermissionGroup(ctx, PermissionGroup{}); !errors.Is(err, ErrInvalidGroup) {
		t.Errorf("UpsertPermissionGroup() with empty ID error = %v, want ErrInvalidGroup", err)
	}

	groups, _ = s.PermissionGroups(ctx)
	if len(groups) != 5 || groups[0].Description != "Everything" || groups[1].ID != "AUDIT" {
		t.Errorf("PermissionGroups() after upsert = %+v", groups)
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("%s.Valid() = false", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("archived should be invalid")
	}
}
