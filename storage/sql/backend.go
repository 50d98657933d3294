// Package sql implements storage.KV over GORM, grounded on the teacher's
// internal/migration package for schema management (golang-migrate, run
// separately at startup) and its gorm driver selection pattern
// (postgres/mysql/sqlite all wired through one struct).
package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lucidkernel/runtime/storage"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// row is the GORM model backing the kv_store table the migrator creates.
type row struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (row) TableName() string { return "kv_store" }

// Backend is a GORM-backed storage.KV.
type Backend struct {
	db *gorm.DB
}

var _ storage.KV = (*Backend)(nil)

// Open opens dsn using the named driver ("postgres", "mysql", or "sqlite").
// Schema is expected to already exist (applied via internal/migration at
// startup, not here) — Backend never runs DDL itself.
func Open(driver, dsn string) (*Backend, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("storage/sql: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage/sql: open: %w", err)
	}
	return &Backend{db: db}, nil
}

// NewWithDB wraps an already-open *gorm.DB.
func NewWithDB(db *gorm.DB) *Backend { return &Backend{db: db} }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var r row
	err := b.db.WithContext(ctx).Where("key = ?", key).First(&r).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage/sql: get %q: %w", key, err)
	}
	return r.Value, true, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	r := row{Key: key, Value: value, UpdatedAt: time.Now()}
	err := b.db.WithContext(ctx).Save(&r).Error
	if err != nil {
		return fmt.Errorf("storage/sql: put %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.db.WithContext(ctx).Where("key = ?", key).Delete(&row{}).Error
	if err != nil {
		return fmt.Errorf("storage/sql: delete %q: %w", key, err)
	}
	return nil
}

func (b *Backend) ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	var rows []row
	err := b.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage/sql: list prefix %q: %w", prefix, err)
	}
	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
