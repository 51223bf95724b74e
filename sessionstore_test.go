package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	storeconfig "github.com/GoBetterAuth/session-store/config"
	"github.com/GoBetterAuth/session-store/internal/util"
	"github.com/GoBetterAuth/session-store/models"
)

func newTestStore(t *testing.T, store models.StoreConfig) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	store.AutoMigrate = true
	store.HashSessionIDs = true
	config := storeconfig.NewConfig(storeconfig.WithStore(store))

	s, err := New(config, WithDB(db), WithLogger(util.NewMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, models.StoreConfig{})

	exists, err := store.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	session := store.NewSession("10")
	session.Set("foo", "world")
	require.NoError(t, store.Save(ctx, session))
	assert.False(t, session.IsNew())

	found, err := store.FindBySessionID(ctx, "10")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.Loaded())
	assert.Equal(t, map[string]any{"foo": "world"}, found.Data())

	missing, err := store.FindBySessionID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Destroy(ctx, "10"))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	statuses, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)

	require.NoError(t, store.DropTable(ctx))
	exists, err = store.TableExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_CustomDataColumn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, models.StoreConfig{DataColumn: "payload", DataColumnType: "VARCHAR(64)"})

	limit, err := store.DataColumnLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, limit)

	session := store.NewSession("custom")
	session.Set("foo", "world")
	require.NoError(t, store.Save(ctx, session))

	var raw string
	err = store.DB().NewSelect().
		Table("sessions").
		Column("payload").
		Where("session_id = ?", "custom").
		Scan(ctx, &raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"world"}`, raw)

	session.Set("foo", strings.Repeat("x", 64))
	err = store.Save(ctx, session)
	require.ErrorIs(t, err, models.ErrSessionDataOverflow)

	found, err := store.FindBySessionID(ctx, "custom")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, map[string]any{"foo": "world"}, found.Data())
}

func TestStore_HandlerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, models.StoreConfig{DataColumnType: "VARCHAR(64)"})
	handler := store.Handler()

	req := httptest.NewRequest(http.MethodPut, "/session/foo", strings.NewReader(`{"value":"world"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, storeconfig.DefaultCookieName, cookies[0].Name)

	stored, err := store.FindBySessionID(ctx, store.StorageKey(cookies[0].Value))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, cookies[0].Value, stored.SessionID)

	req = httptest.NewRequest(http.MethodGet, "/session/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"foo": "world"}, body.Data)

	req = httptest.NewRequest(http.MethodPut, "/session/big", strings.NewReader(`{"value":"`+strings.Repeat("y", 100)+`"}`))
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var overflow struct {
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overflow))
	assert.Equal(t, 64, overflow.Limit)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sessionstore_saves_total{result="overflow"} 1`)
}

func TestStore_ResetOverflowKeepsOldSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, models.StoreConfig{MaxDataSize: 64})

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		session, _ := FromContext(r.Context())
		session.Set("user", "alice")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/rotate", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, Reset(r))
		session, _ := FromContext(r.Context())
		session.Set("big", strings.Repeat("z", 500))
		w.WriteHeader(http.StatusNoContent)
	})
	handler := store.Middleware()(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodPost, "/rotate", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := store.FindBySessionID(ctx, store.StorageKey(cookies[0].Value))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, map[string]any{"user": "alice"}, found.Data())
}

func TestNew_InvalidConfig(t *testing.T) {
	config := storeconfig.NewConfig()
	config.Store.DataColumn = "session_id"

	_, err := New(config)
	require.Error(t, err)
}
