package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
)

func TestBlacklistExpiresValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	now := time.Now().Unix()

	_, err = env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistSpam, int64Ptr(now-10), nil)
	assert.Equal(t, federation.InvalidArgument, federation.CodeOf(err))

	// Below the configured minimum lead time.
	_, err = env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistSpam, int64Ptr(now+30), nil)
	assert.Equal(t, federation.InvalidArgument, federation.CodeOf(err))

	_, err = env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		"novel-category", nil, nil)
	assert.Equal(t, federation.InvalidArgument, federation.CodeOf(err))

	rec, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistSpam, int64Ptr(now+3600), nil)
	require.NoError(t, err)
	assert.Equal(t, federation.BlacklistSpam, rec.Type)
}

func TestBlacklistRequiresEntityAndEvidence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	_, err = env.reg.Blacklist.Blacklist(ctx, master, federation.NewUUID(),
		federation.BlacklistSpam, nil, nil)
	assert.Equal(t, federation.NotFound, federation.CodeOf(err))

	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)
	missing := federation.NewUUID()
	_, err = env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistSpam, nil, &missing)
	assert.Equal(t, federation.NotFound, federation.CodeOf(err))
}

func TestBlacklistLift(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	rec, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistAbuse, nil, nil)
	require.NoError(t, err)

	active, err := env.reg.Blacklist.IsActive(ctx, entity.UUID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, env.reg.Blacklist.Lift(ctx, master, rec.UUID))

	got, err := env.reg.Blacklist.GetByUUID(ctx, rec.UUID)
	require.NoError(t, err)
	assert.True(t, got.Lifted)
	require.NotNil(t, got.LiftedBy)
	assert.Equal(t, master.UUID, *got.LiftedBy)

	active, err = env.reg.Blacklist.IsActive(ctx, entity.UUID)
	require.NoError(t, err)
	assert.False(t, active)

	// Lifting an already-lifted verdict is a no-op success.
	before, err := env.reg.AuditLogs.Count(ctx, string(federation.AuditBlacklistLifted))
	require.NoError(t, err)
	require.NoError(t, env.reg.Blacklist.Lift(ctx, master, rec.UUID))
	after, err := env.reg.AuditLogs.Count(ctx, string(federation.AuditBlacklistLifted))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBlacklistAttachEvidence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	rec, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID,
		federation.BlacklistPhishing, nil, nil)
	require.NoError(t, err)

	err = env.reg.Blacklist.AttachEvidence(ctx, master, rec.UUID, federation.NewUUID())
	assert.Equal(t, federation.NotFound, federation.CodeOf(err))

	ev, err := env.reg.Evidence.Add(ctx, master, entity.UUID, false,
		strPtr("phishing kit source"), nil, nil)
	require.NoError(t, err)

	require.NoError(t, env.reg.Blacklist.AttachEvidence(ctx, master, rec.UUID, ev.UUID))
	got, err := env.reg.Blacklist.GetByUUID(ctx, rec.UUID)
	require.NoError(t, err)
	require.NotNil(t, got.Evidence)
	assert.Equal(t, ev.UUID, *got.Evidence)
}

func TestBlacklistListFiltersLifted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	a, err := env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistSpam, nil, nil)
	require.NoError(t, err)
	_, err = env.reg.Blacklist.Blacklist(ctx, master, entity.UUID, federation.BlacklistAbuse, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.reg.Blacklist.Lift(ctx, master, a.UUID))

	recs, err := env.reg.Blacklist.List(ctx, false, 100, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = env.reg.Blacklist.List(ctx, true, 100, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

// The retention predicate removes expired verdicts past the threshold and
// permanent ones created before it; active and recent rows stay.
func TestBlacklistCleanOlderThan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig())
	master, err := env.reg.Operators.GetMaster(ctx)
	require.NoError(t, err)
	entity, err := env.reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	now := time.Now().Unix()
	old := now - 2*86400
	seed := []federation.BlacklistRecord{
		{UUID: federation.NewUUID(), Entity: entity.UUID, Operator: master.UUID,
			Type: federation.BlacklistSpam, Expires: int64Ptr(old), Created: old},
		{UUID: federation.NewUUID(), Entity: entity.UUID, Operator: master.UUID,
			Type: federation.BlacklistSpam, Created: old},
		{UUID: federation.NewUUID(), Entity: entity.UUID, Operator: master.UUID,
			Type: federation.BlacklistSpam, Expires: int64Ptr(now + 3600), Created: old},
		{UUID: federation.NewUUID(), Entity: entity.UUID, Operator: master.UUID,
			Type: federation.BlacklistSpam, Created: now},
	}
	for _, rec := range seed {
		require.NoError(t, env.stores.Blacklist.Add(ctx, rec))
	}

	removed, err := env.reg.Blacklist.CleanOlderThan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := env.reg.Blacklist.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
