// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package httpapi

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wivrn-project/wivrnd/internal/keystore"
	"github.com/wivrn-project/wivrnd/internal/sdk"
)

type handlers struct {
	deps Deps
	log  *slog.Logger
}

type statusResponse struct {
	Version      string `json:"version"`
	Commit       string `json:"commit"`
	ProtocolHash string `json:"protocol_hash"`
	ActiveCount  int    `json:"active_sessions"`
}

func (h *handlers) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Version:      sdk.Version,
		Commit:       sdk.GitCommit,
		ProtocolHash: fmt.Sprintf("%016x", h.deps.TypeHash),
		ActiveCount:  h.deps.Registry.Len(),
	})
}

type sessionResponse struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	LastActivity time.Time `json:"last_activity"`
}

func (h *handlers) getSessions(c *gin.Context) {
	snapshot := h.deps.Registry.Snapshot()
	out := make([]sessionResponse, 0, len(snapshot))
	for _, s := range snapshot {
		out = append(out, sessionResponse{
			ID:           s.ID,
			DisplayName:  s.DisplayName,
			LastActivity: s.LastActivity(),
		})
	}
	c.JSON(http.StatusOK, out)
}

type pairingPendingResponse struct {
	PIN       string    `json:"pin"`
	StartedAt time.Time `json:"started_at"`
}

func (h *handlers) getPairingPending(c *gin.Context) {
	pending, ok := h.deps.Pairing.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pairing ceremony in progress"})
		return
	}
	c.JSON(http.StatusOK, pairingPendingResponse{PIN: pending.PIN, StartedAt: pending.StartedAt})
}

type pairingConfirmRequest struct {
	PIN         string `json:"pin" binding:"required"`
	DisplayName string `json:"display_name"`
	Accept      bool   `json:"accept"`
}

func (h *handlers) postPairingConfirm(c *gin.Context) {
	var req pairingConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.deps.Pairing.Confirm(ctx, req.PIN, req.DisplayName, req.Accept); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type keyResponse struct {
	PublicKey   string    `json:"public_key"`
	DisplayName string    `json:"display_name"`
	PairedAt    time.Time `json:"paired_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func (h *handlers) getKeys(c *gin.Context) {
	rows, err := h.deps.Store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]keyResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, keyResponse{
			PublicKey:   row.PublicKey,
			DisplayName: row.DisplayName,
			PairedAt:    row.PairedAt,
			LastSeenAt:  row.LastSeenAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) deleteKey(c *gin.Context) {
	id := c.Param("id")
	raw, err := hex.DecodeString(id)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a hex-encoded 32-byte public key"})
		return
	}
	var pub [32]byte
	copy(pub[:], raw)

	if err := h.deps.Store.Revoke(pub); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, keystore.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

const feedTopic = "session_feed"

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// getFeed streams session lifecycle and feedback events published on
// feedTopic, mirroring the teacher's callHandler pubsub-to-websocket
// bridge.
func (h *handlers) getFeed(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("feed websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.deps.PubSub.Subscribe(feedTopic)
	defer func() { _ = sub.Close() }()

	ctx := c.Request.Context()
	readFailed := make(chan struct{}, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readFailed <- struct{}{}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readFailed:
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

