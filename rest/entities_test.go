package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
)

// Pushing the same entity twice is idempotent: the second push answers 200
// with the record the first one created.
func TestPushEntity(t *testing.T) {
	env := newTestServer(t, nil)
	client := env.newOperator(t, "reporter", false, false, true)

	w, envelope := env.do(t, http.MethodPost, "/entities/push", client.APIKey,
		map[string]any{"host": "badsite.example"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := resultOf(t, envelope)

	w, envelope = env.do(t, http.MethodPost, "/entities/push", client.APIKey,
		map[string]any{"host": "badsite.example"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["uuid"], resultOf(t, envelope)["uuid"])

	w, envelope = env.do(t, http.MethodPost, "/entities/push", client.APIKey,
		map[string]any{"host": "not a host"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, envelope["success"])

	w, _ = env.do(t, http.MethodPost, "/entities/push", client.APIKey, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushEntityRequiresCapability(t *testing.T) {
	env := newTestServer(t, nil)
	plain := env.newOperator(t, "bystander", false, false, false)

	w, _ := env.do(t, http.MethodPost, "/entities/push", plain.APIKey,
		map[string]any{"host": "badsite.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListEntitiesPublicFlag(t *testing.T) {
	env := newTestServer(t, nil)

	w, _ := env.do(t, http.MethodGet, "/entities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env = newTestServer(t, func(cfg *config.Config) {
		cfg.Server.PublicEntities = true
	})
	client := env.newOperator(t, "reporter", false, false, true)
	for _, host := range []string{"a.example", "b.example"} {
		w, _ := env.do(t, http.MethodPost, "/entities/push", client.APIKey,
			map[string]any{"host": host})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, envelope := env.do(t, http.MethodGet, "/entities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 2)
}

func TestQueryEntity(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	client := env.newOperator(t, "reporter", false, false, true)

	entity, err := env.reg.Entities.Register(ctx, master, "badsite.example", nil)
	require.NoError(t, err)
	secret := "informant report"
	_, err = env.reg.Evidence.Add(ctx, master, entity.UUID, true, &secret, nil, nil)
	require.NoError(t, err)

	// A plain client never sees confidential evidence.
	w, envelope := env.do(t, http.MethodPost, "/entities/"+entity.UUID.String()+"/query", client.APIKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := resultOf(t, envelope)
	assert.Equal(t, entity.UUID.String(), res["entity"].(map[string]any)["uuid"])
	assert.Empty(t, res["evidence"])

	// A blacklist manager does.
	w, envelope = env.do(t, http.MethodPost, "/entities/"+entity.UUID.String()+"/query", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultOf(t, envelope)["evidence"], 1)

	w, _ = env.do(t, http.MethodPost, "/entities/"+entity.UUID.String()+"/query", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryEntityIncludeLifted(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	entity, err := env.reg.Entities.Register(ctx, master, "badsite.example", nil)
	require.NoError(t, err)
	verdict, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.reg.Blacklist.Lift(ctx, master, verdict.UUID))

	path := "/entities/" + entity.UUID.String() + "/query"
	w, envelope := env.do(t, http.MethodPost, path, testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resultOf(t, envelope)["queriedBlacklists"])

	w, envelope = env.do(t, http.MethodPost, path+"?includeLifted=true", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultOf(t, envelope)["queriedBlacklists"], 1)
}

func TestDeleteEntity(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	client := env.newOperator(t, "reporter", false, false, true)

	entity, err := env.reg.Entities.Register(ctx, master, "badsite.example", nil)
	require.NoError(t, err)

	w, _ := env.do(t, http.MethodDelete, "/entities/"+entity.UUID.String()+"/delete", client.APIKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/entities/"+entity.UUID.String()+"/delete", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/entities/"+entity.UUID.String()+"/query", testMasterKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
