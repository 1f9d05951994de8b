package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyValueStore persists named JSON documents using GORM.
type KeyValueStore struct {
	db *gorm.DB
}

// NewKeyValueStore initialises a KeyValueStore backed by db.
func NewKeyValueStore(db *gorm.DB) *KeyValueStore {
	return &KeyValueStore{db: db}
}

// AutoMigrate ensures the entries table exists with the expected schema.
func (s *KeyValueStore) AutoMigrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("key-value store not initialised")
	}

	return s.db.WithContext(ctx).AutoMigrate(&entryRecord{})
}

// Load returns the value stored under key and whether it exists.
func (s *KeyValueStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("key-value store not initialised")
	}

	var record entryRecord
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load entry %q: %w", key, err)
	}

	return []byte(record.Value), true, nil
}

// Save stores value under key, replacing any previous value.
func (s *KeyValueStore) Save(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("key-value store not initialised")
	}

	record := entryRecord{
		Key:   key,
		Value: datatypes.JSON(value),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("save entry %q: %w", key, err)
	}
	return nil
}

type entryRecord struct {
	Key       string         `gorm:"column:entry_key;primaryKey;size:191"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (entryRecord) TableName() string {
	return "kv_entries"
}
