package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
)

func (e *serverEnv) registerEntity(t *testing.T, host string) *federation.EntityRecord {
	t.Helper()
	ctx := context.Background()
	master, err := e.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	rec, err := e.reg.Entities.Register(ctx, master, host, nil)
	require.NoError(t, err)
	return rec
}

func TestSubmitEvidence(t *testing.T) {
	env := newTestServer(t, nil)
	manager := env.newOperator(t, "analyst", false, true, false)
	entity := env.registerEntity(t, "badsite.example")

	w, envelope := env.do(t, http.MethodPost, "/evidence/submit", manager.APIKey,
		map[string]any{
			"entity":       entity.UUID.String(),
			"text_content": "phishing landing page",
			"tag":          "phishing",
		})
	require.Equal(t, http.StatusCreated, w.Code)
	res := resultOf(t, envelope)
	assert.Equal(t, entity.UUID.String(), res["entity"])
	assert.Equal(t, manager.UUID.String(), res["operator"])
	assert.Equal(t, "phishing", res["tag"])

	w, envelope = env.do(t, http.MethodPost, "/evidence/submit", manager.APIKey,
		map[string]any{"text_content": "no entity"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "entity is required", envelope["message"])

	w, _ = env.do(t, http.MethodPost, "/evidence/submit", manager.APIKey,
		map[string]any{
			"entity": federation.NewUUID().String(),
			"note":   "dangling reference",
		})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The client role alone does not permit evidence submission.
func TestSubmitEvidenceRequiresManageBlacklist(t *testing.T) {
	env := newTestServer(t, nil)
	client := env.newOperator(t, "reporter", false, false, true)
	entity := env.registerEntity(t, "badsite.example")

	w, _ := env.do(t, http.MethodPost, "/evidence/submit", client.APIKey,
		map[string]any{"entity": entity.UUID.String(), "note": "try"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Confidential evidence reads as absent to everyone but the submitter and
// blacklist managers.
func TestGetEvidenceConfidential(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	submitter := env.newOperator(t, "submitter", false, false, true)
	other := env.newOperator(t, "other", false, false, true)
	entity := env.registerEntity(t, "badsite.example")

	secret := "informant report"
	ev, err := env.reg.Evidence.Add(ctx, submitter, entity.UUID, true, &secret, nil, nil)
	require.NoError(t, err)

	path := "/evidence/" + ev.UUID.String()

	w, envelope := env.do(t, http.MethodGet, path, other.APIKey, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "evidence not found", envelope["message"])

	w, envelope = env.do(t, http.MethodGet, path, submitter.APIKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resultOf(t, envelope)["confidential"])

	w, _ = env.do(t, http.MethodGet, path, testMasterKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListEvidenceFiltersConfidential(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	other := env.newOperator(t, "other", false, false, true)
	entity := env.registerEntity(t, "badsite.example")

	public := "public note"
	secret := "informant report"
	_, err = env.reg.Evidence.Add(ctx, master, entity.UUID, false, &public, nil, nil)
	require.NoError(t, err)
	_, err = env.reg.Evidence.Add(ctx, master, entity.UUID, true, &secret, nil, nil)
	require.NoError(t, err)

	w, envelope := env.do(t, http.MethodGet, "/evidence", other.APIKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 1)

	w, envelope = env.do(t, http.MethodGet, "/evidence", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resultListOf(t, envelope), 2)
}

func TestSetEvidenceConfidential(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity := env.registerEntity(t, "badsite.example")
	note := "observed spam run"
	ev, err := env.reg.Evidence.Add(ctx, master, entity.UUID, false, &note, nil, nil)
	require.NoError(t, err)

	path := "/evidence/" + ev.UUID.String() + "/confidential"

	w, _ := env.do(t, http.MethodPost, path, testMasterKey, map[string]any{"confidential": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := env.do(t, http.MethodGet, "/evidence/"+ev.UUID.String(), testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resultOf(t, envelope)["confidential"])

	w, _ = env.do(t, http.MethodPost, path, testMasterKey, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteEvidence(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	client := env.newOperator(t, "reporter", false, false, true)
	entity := env.registerEntity(t, "badsite.example")
	note := "observed spam run"
	ev, err := env.reg.Evidence.Add(ctx, master, entity.UUID, false, &note, nil, nil)
	require.NoError(t, err)

	w, _ := env.do(t, http.MethodDelete, "/evidence/"+ev.UUID.String()+"/delete", client.APIKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/evidence/"+ev.UUID.String()+"/delete", testMasterKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/evidence/"+ev.UUID.String(), testMasterKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
