package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
	"github.com/federatedsec/federation/inmemory"
	"github.com/federatedsec/federation/mocks"
	"github.com/federatedsec/federation/registry"
)

func newTestScanner(t *testing.T) (*Scanner, *registry.Registry) {
	t.Helper()
	settings := federation.CacheSettings{Enabled: true, Limit: 1000, TTL: time.Hour}
	cfg := config.Config{
		Server: config.Server{
			APIKey:           "m0000000000000000000000000000000",
			MinBlacklistTime: 60,
		},
		OperatorCache:       settings,
		EntityCache:         settings,
		FileAttachmentCache: settings,
		EvidenceCache:       settings,
		BlacklistCache:      settings,
		AuditLogCache:       settings,
	}
	reg := registry.New(cfg, mocks.NewStores(), inmemory.NewCache(), mocks.NewFileStore())
	return NewScanner(reg.Entities, reg.Query), reg
}

func strPtr(s string) *string { return &s }

// An email resolves twice: the id@host pair and the bare domain, the latter
// reported at the domain's own offset inside the address.
func TestScanContentEmailResolvesPairAndDomain(t *testing.T) {
	ctx := context.Background()
	scanner, reg := newTestScanner(t)
	master, err := reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	pair, err := reg.Entities.Register(ctx, master, "example.com", strPtr("john"))
	require.NoError(t, err)
	domain, err := reg.Entities.Register(ctx, master, "example.com", nil)
	require.NoError(t, err)

	results, err := scanner.ScanContent(ctx,
		"Contact john@example.com or visit https://example.com/", 0, false, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, TypeEmail, results[0].Position.Type)
	assert.Equal(t, "john@example.com", results[0].Position.Value)
	assert.Equal(t, 8, results[0].Position.Offset)
	assert.Equal(t, pair.UUID, results[0].Result.Entity.UUID)

	assert.Equal(t, TypeDomain, results[1].Position.Type)
	assert.Equal(t, "example.com", results[1].Position.Value)
	assert.Equal(t, 13, results[1].Position.Offset)
	assert.Equal(t, domain.UUID, results[1].Result.Entity.UUID)

	// The URL resolves through its host to the bare-domain entity.
	assert.Equal(t, TypeURL, results[2].Position.Type)
	assert.Equal(t, 34, results[2].Position.Offset)
	assert.Equal(t, domain.UUID, results[2].Result.Entity.UUID)
}

// Scanning is lookup, not registration: unknown hosts are dropped.
func TestScanContentUnknownHostsDropped(t *testing.T) {
	ctx := context.Background()
	scanner, _ := newTestScanner(t)

	results, err := scanner.ScanContent(ctx,
		"Nothing known about unknown.example or stranger@unknown.example here", 0, false, false)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanContentConfidentialGating(t *testing.T) {
	ctx := context.Background()
	scanner, reg := newTestScanner(t)
	master, err := reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	entity, err := reg.Entities.Register(ctx, master, "badsite.example", nil)
	require.NoError(t, err)
	_, err = reg.Evidence.Add(ctx, master, entity.UUID, true,
		strPtr("informant report"), nil, nil)
	require.NoError(t, err)

	results, err := scanner.ScanContent(ctx, "traffic to badsite.example", 0, false, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Result.Evidence)

	results, err = scanner.ScanContent(ctx, "traffic to badsite.example", 0, true, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Result.Evidence, 1)
}

func TestScanContentLimit(t *testing.T) {
	ctx := context.Background()
	scanner, reg := newTestScanner(t)
	master, err := reg.Operators.GetMaster(ctx)
	require.NoError(t, err)

	for _, host := range []string{"a.example", "b.example"} {
		_, err := reg.Entities.Register(ctx, master, host, nil)
		require.NoError(t, err)
	}

	results, err := scanner.ScanContent(ctx, "a.example and b.example", 1, false, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.example", results[0].Position.Value)
}
