package rest

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
)

func TestCreateOperator(t *testing.T) {
	env := newTestServer(t, nil)

	w, envelope := env.do(t, http.MethodPost, "/operators/create", testMasterKey,
		map[string]any{"name": "partner-isp"})
	require.Equal(t, http.StatusCreated, w.Code)

	res := resultOf(t, envelope)
	assert.Equal(t, "partner-isp", res["name"])
	assert.Len(t, res["api_key"], federation.APIKeyLength)

	w, envelope = env.do(t, http.MethodPost, "/operators/create", testMasterKey, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", envelope["message"])
}

func TestCreateOperatorRequiresCapability(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.newOperator(t, "plain-client", false, false, true)

	w, envelope := env.do(t, http.MethodPost, "/operators/create", rec.APIKey,
		map[string]any{"name": "sneaky"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient capability", envelope["message"])

	w, _ = env.do(t, http.MethodPost, "/operators/create", "",
		map[string]any{"name": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Any operator may fetch its own record; other records need manage_operators.
func TestGetOperatorSelfOrManager(t *testing.T) {
	env := newTestServer(t, nil)
	a := env.newOperator(t, "op-a", false, false, true)
	b := env.newOperator(t, "op-b", false, false, true)

	w, envelope := env.do(t, http.MethodPost, "/operators/"+a.UUID.String(), a.APIKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, a.UUID.String(), resultOf(t, envelope)["uuid"])

	w, _ = env.do(t, http.MethodPost, "/operators/"+b.UUID.String(), a.APIKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodPost, "/operators/"+b.UUID.String(), testMasterKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshOperatorKey(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.newOperator(t, "partner-isp", false, false, false)

	w, envelope := env.do(t, http.MethodPost, "/operators/"+rec.UUID.String()+"/refresh", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := resultOf(t, envelope)
	assert.Equal(t, rec.UUID.String(), res["uuid"])
	newKey, ok := res["api_key"].(string)
	require.True(t, ok)
	assert.NotEqual(t, rec.APIKey, newKey)

	// The old key no longer authenticates.
	w, _ = env.do(t, http.MethodGet, "/entities", rec.APIKey, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = env.do(t, http.MethodGet, "/entities", newKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetOperatorEnabled(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.newOperator(t, "partner-isp", false, false, true)

	w, _ := env.do(t, http.MethodPost, "/operators/"+rec.UUID.String()+"/enable", testMasterKey,
		map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/entities", rec.APIKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodPost, "/operators/"+rec.UUID.String()+"/enable", testMasterKey,
		map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/entities", rec.APIKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A missing enabled field is a 400, not a silent disable.
	w, _ = env.do(t, http.MethodPost, "/operators/"+rec.UUID.String()+"/enable", testMasterKey,
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Grantors can only hand out capabilities they hold themselves; revoking is
// always allowed for operator managers.
func TestGrantRestriction(t *testing.T) {
	env := newTestServer(t, nil)
	// Holds manage_operators but not manage_blacklist.
	admin := env.newOperator(t, "admin", true, false, false)
	target := env.newOperator(t, "target", false, true, false)

	w, envelope := env.do(t, http.MethodPost,
		"/operators/"+target.UUID.String()+"/manage_blacklist", admin.APIKey,
		map[string]any{"enabled": true})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "cannot grant a capability the caller lacks", envelope["message"])

	// Revoking a capability the grantor lacks is fine.
	w, _ = env.do(t, http.MethodPost,
		"/operators/"+target.UUID.String()+"/manage_blacklist", admin.APIKey,
		map[string]any{"enabled": false})
	assert.Equal(t, http.StatusOK, w.Code)

	// Granting a held capability is fine.
	w, _ = env.do(t, http.MethodPost,
		"/operators/"+target.UUID.String()+"/manage_operators", admin.APIKey,
		map[string]any{"enabled": true})
	assert.Equal(t, http.StatusOK, w.Code)

	// The master holds everything implicitly.
	w, _ = env.do(t, http.MethodPost,
		"/operators/"+target.UUID.String()+"/manage_blacklist", testMasterKey,
		map[string]any{"enabled": true})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteOperator(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.newOperator(t, "partner-isp", false, false, false)

	w, _ := env.do(t, http.MethodDelete, "/operators/"+rec.UUID.String()+"/delete", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/operators/"+rec.UUID.String(), testMasterKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOperators(t *testing.T) {
	env := newTestServer(t, nil)
	env.newOperator(t, "op-a", false, false, false)
	env.newOperator(t, "op-b", false, false, false)

	w, envelope := env.do(t, http.MethodGet, "/operators", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	// Master plus the two created above.
	assert.Len(t, resultListOf(t, envelope), 3)

	w, envelope = env.do(t, http.MethodGet, "/operators?limit=2&page=2", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 1)
}
