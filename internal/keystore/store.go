// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when Revoke is asked to remove a key that
// isn't in the store.
var ErrNotFound = errors.New("keystore: key not found")

// Store is a SQLite-backed implementation of internal/handshake's
// KnownKeys interface, plus the listing/revocation surface the HTTP
// control plane and CLI need.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// runs all pending migrations. path may be ":memory:" for tests.
// otlpEndpoint gates otelgorm instrumentation the same way the teacher's
// internal/db.MakeDB gates it on its database handle: left empty, the
// plugin is never installed and queries carry no tracing overhead.
func Open(path string, otlpEndpoint string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("keystore: open: %w", err)
	}
	if otlpEndpoint != "" {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("keystore: install otelgorm plugin: %w", err)
		}
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("keystore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func encodeKey(pub [32]byte) string { return hex.EncodeToString(pub[:]) }

// Lookup implements internal/handshake.KnownKeys.
func (s *Store) Lookup(pub [32]byte) (string, bool) {
	var row PairedKey
	result := s.db.Where("public_key = ?", encodeKey(pub)).Limit(1).Find(&row)
	if result.Error != nil || result.RowsAffected == 0 {
		return "", false
	}
	s.db.Model(&row).Update("last_seen_at", time.Now())
	return row.DisplayName, true
}

// Pair implements internal/handshake.KnownKeys.
func (s *Store) Pair(pub [32]byte, displayName string) error {
	now := time.Now()
	row := PairedKey{PublicKey: encodeKey(pub), DisplayName: displayName, PairedAt: now, LastSeenAt: now}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("keystore: pair: %w", err)
	}
	s.RecordPairingAttempt(pub, displayName, true)
	return nil
}

// RecordPairingAttempt appends an audit log entry; failures are not
// fatal to the pairing ceremony itself, so callers may ignore the
// returned error in non-critical paths.
func (s *Store) RecordPairingAttempt(pub [32]byte, displayName string, accepted bool) error {
	event := PairingAttempt{
		PublicKey:   encodeKey(pub),
		DisplayName: displayName,
		Accepted:    accepted,
		OccurredAt:  time.Now(),
	}
	return s.db.Create(&event).Error
}

// List returns every paired key, most recently paired first.
func (s *Store) List() ([]PairedKey, error) {
	var rows []PairedKey
	if err := s.db.Order("paired_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("keystore: list: %w", err)
	}
	return rows, nil
}

// Revoke removes a paired key so the headset must re-pair.
func (s *Store) Revoke(pub [32]byte) error {
	result := s.db.Where("public_key = ?", encodeKey(pub)).Delete(&PairedKey{})
	if result.Error != nil {
		return fmt.Errorf("keystore: revoke: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompactPairingAttempts deletes audit-log rows older than cutoff,
// keeping the pairing_attempts table from growing without bound on a
// long-lived install. Returns the number of rows removed.
func (s *Store) CompactPairingAttempts(cutoff time.Time) (int64, error) {
	result := s.db.Where("occurred_at < ?", cutoff).Delete(&PairingAttempt{})
	if result.Error != nil {
		return 0, fmt.Errorf("keystore: compact pairing attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("keystore: close: %w", err)
	}
	return sqlDB.Close()
}
