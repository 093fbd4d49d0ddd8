// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package scheduler runs wivrnd's periodic maintenance jobs -- idle
// session reaping and pairing-attempt audit log compaction -- on top
// of gocron/v2, grounded on the teacher's setupScheduler/
// scheduleDailyUpdate pattern but driven by fixed intervals instead of
// a daily wall-clock trigger, since neither job depends on a remote
// resource that needs off-peak scheduling.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wivrn-project/wivrnd/internal/config"
	"github.com/wivrn-project/wivrnd/internal/keystore"
	"github.com/wivrn-project/wivrnd/internal/session"
)

// reapInterval is how often the idle-session sweep runs; it is
// independent of SessionConfig.IdleTimeout, which sets the threshold
// a session must sit idle past before it's reaped.
const reapInterval = 30 * time.Second

// compactInterval is how often the pairing-attempt audit log is
// trimmed to DatabaseConfig.PairingAttemptRetention.
const compactInterval = 24 * time.Hour

// New builds and starts a gocron scheduler running wivrnd's
// maintenance jobs. Callers must call Shutdown when done.
func New(cfg *config.Config, registry *session.Registry, store *keystore.Store, log *slog.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: create: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DurationJob(reapInterval),
		gocron.NewTask(func() {
			closed := registry.ReapIdle(cfg.Session.IdleTimeout)
			if closed > 0 {
				log.Info("reaped idle sessions", "count", closed)
			}
		}),
	); err != nil {
		return nil, fmt.Errorf("scheduler: schedule idle reap: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DurationJob(compactInterval),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-cfg.Database.PairingAttemptRetention)
			removed, err := store.CompactPairingAttempts(cutoff)
			if err != nil {
				log.Error("pairing attempt compaction failed", "error", err)
				return
			}
			if removed > 0 {
				log.Info("compacted pairing attempt log", "removed", removed)
			}
		}),
	); err != nil {
		return nil, fmt.Errorf("scheduler: schedule audit compaction: %w", err)
	}

	s.Start()
	return s, nil
}
