// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package keystore

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrate runs every schema migration against db, in order. New
// migrations are appended here; existing IDs are never edited once
// released, matching gormigrate's append-only convention.
func migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601010000_create_paired_keys",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PairedKey{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&PairedKey{})
			},
		},
		{
			ID: "202601010001_create_pairing_attempts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PairingAttempt{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&PairingAttempt{})
			},
		},
	})
	return m.Migrate()
}
