// Package registry implements the permissioned object model: one manager per
// record kind, each fronted by the cache layer and writing a synchronous
// audit entry for every mutation. Managers are plain value types holding
// their store and cache references, so isolated instances (one per test) are
// trivial to build.
package registry

import (
	"errors"
	"time"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
)

// queryListLimit bounds internal fan-out reads done on behalf of the query
// composer and cascade paths.
const queryListLimit = 1000

// Registry bundles the managers over one store, cache and file store.
type Registry struct {
	Operators   *OperatorManager
	Entities    *EntityManager
	Evidence    *EvidenceManager
	Attachments *FileAttachmentManager
	Blacklist   *BlacklistManager
	AuditLogs   *AuditLog
	Query       *Composer
	Sweeper     *Sweeper
}

// New wires the managers. The cache may be a no-op-free implementation
// (inmemory.Cache) when Redis is disabled.
func New(cfg config.Config, stores federation.Stores, cache federation.Cache, files federation.FileStore) *Registry {
	audit := &AuditLog{
		store: stores.AuditLogs,
		cache: cacheFor(cache, cfg.AuditLogCache),
	}
	operators := &OperatorManager{
		store:     stores.Operators,
		cache:     cacheFor(cache, cfg.OperatorCache),
		audit:     audit,
		masterKey: cfg.Server.APIKey,
	}
	entities := &EntityManager{
		stores: stores,
		cache:  cacheFor(cache, cfg.EntityCache),
		files:  files,
		audit:  audit,
	}
	evidence := &EvidenceManager{
		stores:   stores,
		cache:    cacheFor(cache, cfg.EvidenceCache),
		files:    files,
		audit:    audit,
		preCache: cfg.Redis.PreCacheEnabled,
	}
	attachments := &FileAttachmentManager{
		stores:        stores,
		cache:         cacheFor(cache, cfg.FileAttachmentCache),
		files:         files,
		audit:         audit,
		maxUploadSize: cfg.Server.MaxUploadSize,
	}
	blacklist := &BlacklistManager{
		stores:           stores,
		cache:            cacheFor(cache, cfg.BlacklistCache),
		audit:            audit,
		minBlacklistTime: cfg.Server.MinBlacklistTime,
	}
	operators.preCache = cfg.Redis.PreCacheEnabled
	entities.preCache = cfg.Redis.PreCacheEnabled
	blacklist.preCache = cfg.Redis.PreCacheEnabled

	composer := &Composer{
		entities:    entities,
		evidence:    evidence,
		attachments: attachments,
		blacklist:   blacklist,
		audit:       audit,
	}
	sweeper := &Sweeper{
		audit:              audit,
		blacklist:          blacklist,
		enabled:            cfg.Maintenance.Enabled,
		cleanAuditLogs:     cfg.Maintenance.CleanAuditLogs,
		cleanAuditDays:     cfg.Maintenance.CleanAuditDays,
		cleanBlacklist:     cfg.Maintenance.CleanBlacklist,
		cleanBlacklistDays: cfg.Maintenance.CleanBlacklistDays,
	}

	return &Registry{
		Operators:   operators,
		Entities:    entities,
		Evidence:    evidence,
		Attachments: attachments,
		Blacklist:   blacklist,
		AuditLogs:   audit,
		Query:       composer,
		Sweeper:     sweeper,
	}
}

// tableCache pairs the shared cache client with one table's admission
// settings so managers don't repeat the enabled/limit/ttl plumbing.
type tableCache struct {
	federation.Cache
	settings federation.CacheSettings
}

func cacheFor(cache federation.Cache, settings federation.CacheSettings) tableCache {
	return tableCache{Cache: cache, settings: settings}
}

// dbErr wraps a store failure into the DatabaseOperationFailed kind. Coded
// errors (Conflict from unique keys, cache policy failures) pass through.
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var fe *federation.Error
	if errors.As(err, &fe) {
		return err
	}
	return federation.WrapError(federation.DatabaseOperationFailed, msg, err)
}

// pageOffset converts (limit, page) list arguments to a SQL offset.
func pageOffset(limit, page int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}

func nowUnix() int64 {
	return time.Now().Unix()
}
