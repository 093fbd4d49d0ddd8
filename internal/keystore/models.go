// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package keystore persists paired headset identities and a pairing
// audit trail to a local SQLite database, and implements
// internal/handshake's KnownKeys interface against that storage.
package keystore

import "time"

// PairedKey is one headset's long-term X25519 public key, persisted
// once pairing completes.
type PairedKey struct {
	ID          uint   `gorm:"primarykey"`
	PublicKey   string `gorm:"uniqueIndex;size:64;not null"` // hex-encoded, 32 bytes
	DisplayName string `gorm:"size:255;not null"`
	PairedAt    time.Time
	LastSeenAt  time.Time
}

func (PairedKey) TableName() string { return "paired_keys" }

// PairingAttempt is an audit log entry: every time a pairing ceremony
// ran, whether it succeeded or the user/PAKE rejected it.
type PairingAttempt struct {
	ID          uint   `gorm:"primarykey"`
	PublicKey   string `gorm:"size:64;not null"`
	DisplayName string `gorm:"size:255"`
	RemoteAddr  string `gorm:"size:64"`
	Accepted    bool
	OccurredAt  time.Time
}

func (PairingAttempt) TableName() string { return "pairing_attempts" }
