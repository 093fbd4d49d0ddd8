// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/config"
	"github.com/wivrn-project/wivrnd/internal/httpapi"
	"github.com/wivrn-project/wivrnd/internal/keystore"
	"github.com/wivrn-project/wivrnd/internal/pairing"
	"github.com/wivrn-project/wivrnd/internal/pubsub"
	"github.com/wivrn-project/wivrnd/internal/session"
)

func newTestRouter(t *testing.T) (*gin.Engine, *keystore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.HTTP.Secret = "test-secret"
	cfg.HTTP.CORSHosts = []string{"http://localhost"}

	store, err := keystore.Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ps, err := pubsub.MakePubSub(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	deps := httpapi.Deps{
		Config:   &cfg,
		Registry: session.NewRegistry(),
		Store:    store,
		Pairing:  pairing.New(),
		PubSub:   ps,
		TypeHash: 0xdeadbeef,
	}
	return httpapi.CreateRouter(deps, slog.New(slog.DiscardHandler)), store
}

func TestGetStatus_ReturnsProtocolHashAndActiveCount(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "00000000deadbeef", body["protocol_hash"])
	require.Equal(t, float64(0), body["active_sessions"])
}

func TestGetSessions_EmptyRegistryReturnsEmptyArray(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestPostPairingConfirm_NoPendingCeremonyReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{"pin": "123456", "accept": true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pairing/confirm", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPairingPending_NoCeremonyReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pairing/pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetKeys_EmptyStoreReturnsEmptyArray(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keys", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestDeleteKey_MalformedIDReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/not-hex", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteKey_UnknownKeyReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	id := make([]byte, 64)
	for i := range id {
		id[i] = '0'
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/"+string(id), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
