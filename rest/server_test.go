package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
	"github.com/federatedsec/federation/inmemory"
	"github.com/federatedsec/federation/mocks"
	"github.com/federatedsec/federation/registry"
	"github.com/federatedsec/federation/scan"
)

const testMasterKey = "m0000000000000000000000000000000"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testServerConfig() config.Config {
	settings := federation.CacheSettings{Enabled: true, Limit: 1000, TTL: time.Hour}
	return config.Config{
		Server: config.Server{
			Name:             "federation-test",
			BaseURL:          "http://localhost:8080",
			APIKey:           testMasterKey,
			MaxUploadSize:    1 << 10,
			MinBlacklistTime: 60,
			LogUnauthorized:  true,

			ListOperatorsMaxItems: 100,
			ListEntitiesMaxItems:  100,
			ListEvidenceMaxItems:  100,
			ListBlacklistMaxItems: 100,
			ListAuditLogsMaxItems: 100,
		},
		OperatorCache:       settings,
		EntityCache:         settings,
		FileAttachmentCache: settings,
		EvidenceCache:       settings,
		BlacklistCache:      settings,
		AuditLogCache:       settings,
	}
}

type serverEnv struct {
	srv *Server
	reg *registry.Registry
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *serverEnv {
	t.Helper()
	cfg := testServerConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	reg := registry.New(cfg, mocks.NewStores(), inmemory.NewCache(), mocks.NewFileStore())
	scanner := scan.NewScanner(reg.Entities, reg.Query)
	_, err := reg.Operators.GetMaster(context.Background())
	require.NoError(t, err)
	return &serverEnv{srv: NewServer(cfg, reg, scanner), reg: reg}
}

// do performs one request. An empty key means an anonymous request; the body
// is marshaled as JSON when non-nil.
func (e *serverEnv) do(t *testing.T, method, path, key string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	var envelope map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

// newOperator creates an operator with the given capabilities through the
// registry and returns its current record.
func (e *serverEnv) newOperator(t *testing.T, name string, manageOps, manageBlacklist, client bool) *federation.OperatorRecord {
	t.Helper()
	ctx := context.Background()
	master, err := e.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	rec, err := e.reg.Operators.Create(ctx, master, name)
	require.NoError(t, err)
	if manageOps {
		require.NoError(t, e.reg.Operators.SetManageOperators(ctx, master, rec.UUID, true))
	}
	if manageBlacklist {
		require.NoError(t, e.reg.Operators.SetManageBlacklist(ctx, master, rec.UUID, true))
	}
	if client {
		require.NoError(t, e.reg.Operators.SetClient(ctx, master, rec.UUID, true))
	}
	rec, err = e.reg.Operators.GetByUUID(ctx, rec.UUID)
	require.NoError(t, err)
	return rec
}

func resultOf(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, true, envelope["success"])
	res, ok := envelope["result"].(map[string]any)
	require.True(t, ok, "result is not an object: %v", envelope["result"])
	return res
}

func resultListOf(t *testing.T, envelope map[string]any) []any {
	t.Helper()
	require.Equal(t, true, envelope["success"])
	res, ok := envelope["result"].([]any)
	require.True(t, ok, "result is not a list: %v", envelope["result"])
	return res
}

func TestServerInfo(t *testing.T) {
	env := newTestServer(t, nil)

	w, envelope := env.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := resultOf(t, envelope)
	assert.Equal(t, "federation-test", res["name"])
	assert.Equal(t, config.APIVersion, res["api_version"])

	counts := res["counts"].(map[string]any)
	// Only the bootstrapped master exists.
	assert.Equal(t, float64(1), counts["operators"])
	assert.Equal(t, float64(0), counts["entities"])

	public := res["public"].(map[string]any)
	assert.Equal(t, false, public["blacklist"])
}

func TestAuthUnknownKey(t *testing.T) {
	env := newTestServer(t, nil)

	w, envelope := env.do(t, http.MethodGet, "/operators", "k9999999999999999999999999999999", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, float64(http.StatusUnauthorized), envelope["code"])
	assert.Equal(t, "unknown api key", envelope["message"])

	// The attempt lands in the audit trail.
	n, err := env.reg.AuditLogs.Count(context.Background(), string(federation.AuditUnauthorizedAttempt))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAuthDisabledOperator(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	rec := env.newOperator(t, "partner-isp", false, false, true)
	require.NoError(t, env.reg.Operators.Disable(ctx, master, rec.UUID))

	w, envelope := env.do(t, http.MethodGet, "/entities", rec.APIKey, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "operator is disabled", envelope["message"])
}

func TestAuthAnonymous(t *testing.T) {
	env := newTestServer(t, nil)

	w, envelope := env.do(t, http.MethodGet, "/entities", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, envelope["success"])
}

// Basic auth with an empty user and the API key as password is equivalent to
// the Bearer form.
func TestBasicAuth(t *testing.T) {
	env := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/operators", nil)
	req.SetBasicAuth("", testMasterKey)
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMalformedUUID(t *testing.T) {
	env := newTestServer(t, nil)

	w, envelope := env.do(t, http.MethodPost, "/operators/not-a-uuid", testMasterKey, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed uuid", envelope["message"])
}
