// Package config loads the process-wide configuration: defaults, an optional
// YAML file, and FEDERATION_* environment overrides (1:1 with the recognized
// keys, dots replaced by underscores). The configuration is read once at
// startup and passed by value; it is never reloaded.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	federation "github.com/federatedsec/federation"
)

// Server holds the service-level options.
type Server struct {
	Name             string
	Listen           string
	BaseURL          string
	APIKey           string
	MaxUploadSize    int64
	StoragePath      string
	StorageBackend   string
	S3Bucket         string
	MinBlacklistTime int64
	LogFile          string

	PublicAuditLogs   bool
	PublicEntries     bool
	PublicEvidence    bool
	PublicBlacklist   bool
	PublicEntities    bool
	PublicScanContent bool

	ListOperatorsMaxItems int
	ListEntitiesMaxItems  int
	ListEvidenceMaxItems  int
	ListBlacklistMaxItems int
	ListAuditLogsMaxItems int

	LogUnauthorized bool
}

// Database holds the MySQL connection options.
type Database struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Name      string
	Charset   string
	Collation string
}

// Redis holds the cache connection options and error policy.
type Redis struct {
	Enabled              bool
	Host                 string
	Port                 int
	Password             string
	Database             int
	ThrowOnErrors        bool
	PreCacheEnabled      bool
	SystemCachingEnabled bool
}

// Maintenance holds the sweeper options.
type Maintenance struct {
	Enabled            bool
	CleanAuditLogs     bool
	CleanAuditDays     int
	CleanBlacklist     bool
	CleanBlacklistDays int
}

// Config is the full, immutable process configuration.
type Config struct {
	Server      Server
	Database    Database
	Redis       Redis
	Maintenance Maintenance

	// Per-table cache admission settings keyed by record kind.
	OperatorCache       federation.CacheSettings
	EntityCache         federation.CacheSettings
	FileAttachmentCache federation.CacheSettings
	EvidenceCache       federation.CacheSettings
	BlacklistCache      federation.CacheSettings
	AuditLogCache       federation.CacheSettings
}

// APIVersion is the wire protocol version reported by the server info endpoint.
const APIVersion = "2025.01"

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "federation")
	v.SetDefault("listen", ":8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("api_key", "")
	v.SetDefault("max_upload_size", 10<<20)
	v.SetDefault("storage_path", "./storage")
	v.SetDefault("storage_backend", "fs")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("min_blacklist_time", 60)
	v.SetDefault("log_file", "")
	v.SetDefault("log_unauthorized", true)

	v.SetDefault("public_audit_logs", false)
	v.SetDefault("public_entries", false)
	v.SetDefault("public_evidence", false)
	v.SetDefault("public_blacklist", false)
	v.SetDefault("public_entities", false)
	v.SetDefault("public_scan_content", false)

	v.SetDefault("list_operators_max_items", 100)
	v.SetDefault("list_entities_max_items", 100)
	v.SetDefault("list_evidence_max_items", 100)
	v.SetDefault("list_blacklist_max_items", 100)
	v.SetDefault("list_audit_logs_max_items", 100)

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "federation")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "federation")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.collation", "utf8mb4_unicode_ci")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.throw_on_errors", false)
	v.SetDefault("redis.pre_cache_enabled", false)
	v.SetDefault("redis.system_caching_enabled", true)

	for _, table := range []string{"operator", "entity", "file_attachment", "evidence", "blacklist", "audit_log"} {
		v.SetDefault(table+"_cache_enabled", true)
		v.SetDefault(table+"_cache_limit", 1000)
		v.SetDefault(table+"_cache_ttl", 3600)
	}

	v.SetDefault("maintenance.enabled", false)
	v.SetDefault("maintenance.clean_audit_logs", false)
	v.SetDefault("maintenance.clean_audit_logs_days", 365)
	v.SetDefault("maintenance.clean_blacklist", false)
	v.SetDefault("maintenance.clean_blacklist_days", 365)
}

func cacheSettings(v *viper.Viper, table string) federation.CacheSettings {
	return federation.CacheSettings{
		Enabled: v.GetBool(table + "_cache_enabled"),
		Limit:   v.GetInt(table + "_cache_limit"),
		TTL:     time.Duration(v.GetInt(table+"_cache_ttl")) * time.Second,
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment overrides apply. A missing file at a non-empty
// path is an error; an unreadable or malformed file is too.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FEDERATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Server: Server{
			Name:             v.GetString("name"),
			Listen:           v.GetString("listen"),
			BaseURL:          v.GetString("base_url"),
			APIKey:           v.GetString("api_key"),
			MaxUploadSize:    v.GetInt64("max_upload_size"),
			StoragePath:      v.GetString("storage_path"),
			StorageBackend:   v.GetString("storage_backend"),
			S3Bucket:         v.GetString("s3_bucket"),
			MinBlacklistTime: v.GetInt64("min_blacklist_time"),
			LogFile:          v.GetString("log_file"),
			LogUnauthorized:  v.GetBool("log_unauthorized"),

			PublicAuditLogs:   v.GetBool("public_audit_logs"),
			PublicEntries:     v.GetBool("public_entries"),
			PublicEvidence:    v.GetBool("public_evidence"),
			PublicBlacklist:   v.GetBool("public_blacklist"),
			PublicEntities:    v.GetBool("public_entities"),
			PublicScanContent: v.GetBool("public_scan_content"),

			ListOperatorsMaxItems: v.GetInt("list_operators_max_items"),
			ListEntitiesMaxItems:  v.GetInt("list_entities_max_items"),
			ListEvidenceMaxItems:  v.GetInt("list_evidence_max_items"),
			ListBlacklistMaxItems: v.GetInt("list_blacklist_max_items"),
			ListAuditLogsMaxItems: v.GetInt("list_audit_logs_max_items"),
		},
		Database: Database{
			Host:      v.GetString("database.host"),
			Port:      v.GetInt("database.port"),
			Username:  v.GetString("database.username"),
			Password:  v.GetString("database.password"),
			Name:      v.GetString("database.name"),
			Charset:   v.GetString("database.charset"),
			Collation: v.GetString("database.collation"),
		},
		Redis: Redis{
			Enabled:              v.GetBool("redis.enabled"),
			Host:                 v.GetString("redis.host"),
			Port:                 v.GetInt("redis.port"),
			Password:             v.GetString("redis.password"),
			Database:             v.GetInt("redis.database"),
			ThrowOnErrors:        v.GetBool("redis.throw_on_errors"),
			PreCacheEnabled:      v.GetBool("redis.pre_cache_enabled"),
			SystemCachingEnabled: v.GetBool("redis.system_caching_enabled"),
		},
		Maintenance: Maintenance{
			Enabled:            v.GetBool("maintenance.enabled"),
			CleanAuditLogs:     v.GetBool("maintenance.clean_audit_logs"),
			CleanAuditDays:     v.GetInt("maintenance.clean_audit_logs_days"),
			CleanBlacklist:     v.GetBool("maintenance.clean_blacklist"),
			CleanBlacklistDays: v.GetInt("maintenance.clean_blacklist_days"),
		},

		OperatorCache:       cacheSettings(v, "operator"),
		EntityCache:         cacheSettings(v, "entity"),
		FileAttachmentCache: cacheSettings(v, "file_attachment"),
		EvidenceCache:       cacheSettings(v, "evidence"),
		BlacklistCache:      cacheSettings(v, "blacklist"),
		AuditLogCache:       cacheSettings(v, "audit_log"),
	}
	return cfg, nil
}
