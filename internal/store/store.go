// Package store persists backup records and permission groups in SQLite.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrConflict      = errors.New("store: already exists")
	ErrInvalidBackup = errors.New("store: invalid backup record")
	ErrInvalidGroup  = errors.New("store: invalid permission group")
)

// Permission groups seeded by the initial migrations.
const (
	GroupAdmin          = "ADMIN"
	GroupBackupRead     = "BACKUP_READ"
	GroupBackupDownload = "BACKUP_DOWNLOAD"
	GroupDashboardView  = "DASHBOARD_VIEW"
)

// Status is the lifecycle state of a backup.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every valid Status.
var Statuses = []Status{StatusRunning, StatusCompleted, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Backup is one backup run and the location of its artifact.
type Backup struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Area        string     `json:"area"`
	Status      Status     `json:"status"`
	SizeBytes   int64      `json:"sizeBytes"`
	Location    string     `json:"location,omitempty"`
	Checksum    string     `json:"checksum,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// PermissionGroup is a named capability that tokens may carry.
type PermissionGroup struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Filter narrows ListBackups. Zero fields match everything.
type Filter struct {
	Area   string
	Status Status

	// Limit caps the result size.
	// Default: 100
	Limit int
}

// Stats aggregates backups, optionally restricted to one area.
type Stats struct {
	Count      int            `json:"count"`
	TotalBytes int64          `json:"totalBytes"`
	LatestAt   *time.Time     `json:"latestAt,omitempty"`
	ByStatus   map[Status]int `json:"byStatus"`
	ByArea     map[string]int `json:"byArea"`
}

// Store is the persistence used by HTTP handlers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: GetBackup returns an error matching ErrNotFound for unknown IDs;
//   CreateBackup returns ErrInvalidBackup or ErrConflict for rejected records.
type Store interface {
	// CreateBackup inserts b, assigning an ID and CreatedAt when empty.
	CreateBackup(ctx context.Context, b Backup) (Backup, error)
	ListBackups(ctx context.Context, f Filter) ([]Backup, error)
	GetBackup(ctx context.Context, id string) (Backup, error)

	// Stats aggregates backups in area, or in every area when area is "".
	Stats(ctx context.Context, area string) (Stats, error)

	PermissionGroups(ctx context.Context) ([]PermissionGroup, error)
	UpsertPermissionGroup(ctx context.Context, g PermissionGroup) error
	Ping(ctx context.Context) error
}
