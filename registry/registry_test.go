package registry

import (
	"testing"
	"time"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
	"github.com/federatedsec/federation/inmemory"
	"github.com/federatedsec/federation/mocks"
)

const testMasterKey = "m0000000000000000000000000000000"

func testConfig() config.Config {
	settings := federation.CacheSettings{Enabled: true, Limit: 1000, TTL: time.Hour}
	return config.Config{
		Server: config.Server{
			APIKey:           testMasterKey,
			MaxUploadSize:    1 << 20,
			MinBlacklistTime: 60,
		},
		OperatorCache:       settings,
		EntityCache:         settings,
		FileAttachmentCache: settings,
		EvidenceCache:       settings,
		BlacklistCache:      settings,
		AuditLogCache:       settings,
	}
}

type testEnv struct {
	reg    *Registry
	stores federation.Stores
	files  *mocks.FileStore
	cache  federation.Cache
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	stores := mocks.NewStores()
	files := mocks.NewFileStore()
	cache := inmemory.NewCache()
	return &testEnv{
		reg:    New(cfg, stores, cache, files),
		stores: stores,
		files:  files,
		cache:  cache,
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }
