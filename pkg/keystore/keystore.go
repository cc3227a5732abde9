package keystore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// tokenKey is the fixed key the bearer credential is persisted under.
// Absence of the row is equivalent to "logged out".
const tokenKey = "token"

type credential struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (credential) TableName() string {
	return "credentials"
}

// Store persists opaque credentials in a local SQLite file. It is the durable
// artifact of a session; everything else is re-derived from the backend.
type Store struct {
	conn *gorm.DB
}

// Open boots the store at the given path, creating the schema when absent.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("keystore path is required")
	}

	silent := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 silent,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}
	if err := conn.AutoMigrate(&credential{}); err != nil {
		return nil, fmt.Errorf("migrating keystore: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Token returns the persisted bearer credential, or "" when none is stored.
// Every caller takes a fresh read; the store never caches.
func (s *Store) Token(ctx context.Context) (string, error) {
	var row credential
	err := s.conn.WithContext(ctx).First(&row, "key = ?", tokenKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return row.Value, nil
}

// SetToken stores the bearer credential, replacing any prior value.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token is required")
	}
	row := credential{Key: tokenKey, Value: token}
	if err := s.conn.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// ClearToken removes the persisted credential. Clearing an absent credential
// is a no-op.
func (s *Store) ClearToken(ctx context.Context) error {
	err := s.conn.WithContext(ctx).Delete(&credential{}, "key = ?", tokenKey).Error
	if err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
