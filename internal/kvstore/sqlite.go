package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// record is the gorm model backing one stored value.
type record struct {
	Area      string `gorm:"primaryKey;size:16"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (record) TableName() string { return "kv_records" }

// OpenDB opens the SQLite database holding all storage areas and runs
// migrations.
func OpenDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "tabdash.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// ensureDirForSQLite creates the parent dir for the SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// SQLiteStore is a durable Store bound to one area of a shared database.
type SQLiteStore struct {
	db    *gorm.DB
	area  Area
	quota int

	mu        sync.Mutex
	listeners map[int]ChangeFunc
	nextID    int
}

// NewSQLiteStore binds a store to one area of db.
func NewSQLiteStore(db *gorm.DB, area Area) *SQLiteStore {
	quota := LocalQuotaBytes
	if area == AreaSynced {
		quota = SyncedQuotaBytes
	}
	return &SQLiteStore{
		db:        db,
		area:      area,
		quota:     quota,
		listeners: make(map[int]ChangeFunc),
	}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var rec record
	err := s.db.WithContext(ctx).
		Where("area = ? AND key = ?", string(s.area), key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kvstore get %q: %w", key, err)
	}
	if err := json.Unmarshal(rec.Value, dest); err != nil {
		return true, err
	}
	return true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.quota > 0 && len(raw) > s.quota {
		return ErrQuotaExceeded
	}
	rec := record{Area: string(s.area), Key: key, Value: raw}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("kvstore set %q: %w", key, err)
	}
	s.notify(key)
	return nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).
		Where("area = ? AND key = ?", string(s.area), key).
		Delete(&record{})
	if res.Error != nil {
		return fmt.Errorf("kvstore remove %q: %w", key, res.Error)
	}
	if res.RowsAffected > 0 {
		s.notify(key)
	}
	return nil
}

// Clear implements Store. Only this store's area is affected.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&record{}).
		Where("area = ?", string(s.area)).
		Pluck("key", &keys).Error; err != nil {
		return fmt.Errorf("kvstore clear: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("area = ?", string(s.area)).
		Delete(&record{}).Error; err != nil {
		return fmt.Errorf("kvstore clear: %w", err)
	}
	for _, k := range keys {
		s.notify(k)
	}
	return nil
}

// OnChange implements Store. Notifications cover writes made through this
// process only.
func (s *SQLiteStore) OnChange(fn ChangeFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) notify(key string) {
	s.mu.Lock()
	fns := make([]ChangeFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
