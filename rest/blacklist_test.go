package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
)

func TestCreateBlacklist(t *testing.T) {
	env := newTestServer(t, nil)
	entity := env.registerEntity(t, "badsite.example")
	expires := time.Now().Add(time.Hour).Unix()

	w, envelope := env.do(t, http.MethodPost, "/blacklist/create", testMasterKey,
		map[string]any{
			"entity":  entity.UUID.String(),
			"type":    "phishing",
			"expires": expires,
		})
	require.Equal(t, http.StatusCreated, w.Code)
	res := resultOf(t, envelope)
	assert.Equal(t, entity.UUID.String(), res["entity"])
	assert.Equal(t, "phishing", res["type"])
	assert.Equal(t, float64(expires), res["expires"])
	assert.Equal(t, false, res["lifted"])

	w, envelope = env.do(t, http.MethodPost, "/blacklist/create", testMasterKey,
		map[string]any{"entity": entity.UUID.String(), "type": "novel-category"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, envelope["success"])

	w, _ = env.do(t, http.MethodPost, "/blacklist/create", testMasterKey,
		map[string]any{"type": "spam"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBlacklistRequiresCapability(t *testing.T) {
	env := newTestServer(t, nil)
	client := env.newOperator(t, "reporter", false, false, true)
	entity := env.registerEntity(t, "badsite.example")

	w, _ := env.do(t, http.MethodPost, "/blacklist/create", client.APIKey,
		map[string]any{"entity": entity.UUID.String(), "type": "spam"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLiftBlacklist(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity := env.registerEntity(t, "badsite.example")
	verdict, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)

	w, _ := env.do(t, http.MethodPost, "/blacklist/"+verdict.UUID.String()+"/lift", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := env.reg.Blacklist.GetByUUID(ctx, verdict.UUID)
	require.NoError(t, err)
	assert.True(t, rec.Lifted)
	require.NotNil(t, rec.LiftedBy)
	assert.Equal(t, master.UUID, *rec.LiftedBy)
}

func TestListBlacklist(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	active := env.registerEntity(t, "active.example")
	lifted := env.registerEntity(t, "lifted.example")
	_, err = env.reg.Blacklist.Blacklist(ctx, master, active.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)
	verdict, err := env.reg.Blacklist.Blacklist(ctx, master, lifted.UUID, federation.BlacklistScam, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.reg.Blacklist.Lift(ctx, master, verdict.UUID))

	w, envelope := env.do(t, http.MethodGet, "/blacklist", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 1)

	w, envelope = env.do(t, http.MethodGet, "/blacklist?includeLifted=true", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 2)
}

func TestListBlacklistPublicFlag(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.PublicBlacklist = true
	})

	w, envelope := env.do(t, http.MethodGet, "/blacklist", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resultListOf(t, envelope))
}

func TestAttachBlacklistEvidence(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity := env.registerEntity(t, "badsite.example")
	verdict, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)
	note := "spam run logs"
	ev, err := env.reg.Evidence.Add(ctx, master, entity.UUID, false, nil, &note, nil)
	require.NoError(t, err)

	path := "/blacklist/" + verdict.UUID.String() + "/evidence"

	w, _ := env.do(t, http.MethodPost, path, testMasterKey,
		map[string]any{"evidence": federation.NewUUID().String()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodPost, path, testMasterKey,
		map[string]any{"evidence": ev.UUID.String()})
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := env.reg.Blacklist.GetByUUID(ctx, verdict.UUID)
	require.NoError(t, err)
	require.NotNil(t, rec.Evidence)
	assert.Equal(t, ev.UUID, *rec.Evidence)
}

func TestDeleteBlacklist(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity := env.registerEntity(t, "badsite.example")
	verdict, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)

	w, _ := env.do(t, http.MethodDelete, "/blacklist/"+verdict.UUID.String()+"/delete", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = env.reg.Blacklist.GetByUUID(ctx, verdict.UUID)
	assert.Equal(t, federation.NotFound, federation.CodeOf(err))
}
