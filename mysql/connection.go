// Package mysql is the primary relational store: one sqlx repository per
// table over a go-sql-driver connection. Referential-integrity deletes are
// explicit statements in dependency order so the cache layer can cascade in
// lockstep; no database-side triggers are used.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	federation "github.com/federatedsec/federation"
)

// Config contains the MySQL connection settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Name      string
	Charset   string
	Collation string
}

// Open connects to the configured database and verifies connectivity.
func Open(cfg Config) (*sqlx.DB, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Name
	mc.ParseTime = true
	if cfg.Collation != "" {
		mc.Collation = cfg.Collation
	}
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}

	db, err := sqlx.Connect("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the table definitions in dependency order. Timestamps are
// epoch seconds; UUIDs persist in canonical 36-char form.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS operators (
		uuid CHAR(36) NOT NULL,
		api_key CHAR(32) NOT NULL,
		name VARCHAR(32) NOT NULL,
		disabled TINYINT(1) NOT NULL DEFAULT 0,
		manage_operators TINYINT(1) NOT NULL DEFAULT 0,
		manage_blacklist TINYINT(1) NOT NULL DEFAULT 0,
		is_client TINYINT(1) NOT NULL DEFAULT 0,
		created BIGINT NOT NULL,
		updated BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		UNIQUE KEY uk_operators_api_key (api_key)
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		uuid CHAR(36) NOT NULL,
		hash CHAR(64) NOT NULL,
		id VARCHAR(255) NULL,
		host VARCHAR(255) NOT NULL,
		created BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		UNIQUE KEY uk_entities_hash (hash),
		UNIQUE KEY uk_entities_host_id (host, id)
	)`,
	`CREATE TABLE IF NOT EXISTS evidence (
		uuid CHAR(36) NOT NULL,
		entity CHAR(36) NOT NULL,
		operator CHAR(36) NOT NULL,
		confidential TINYINT(1) NOT NULL DEFAULT 0,
		text_content MEDIUMTEXT NULL,
		note TEXT NULL,
		tag VARCHAR(32) NULL,
		created BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		KEY idx_evidence_entity (entity),
		KEY idx_evidence_operator (operator),
		KEY idx_evidence_tag (tag)
	)`,
	`CREATE TABLE IF NOT EXISTS file_attachments (
		uuid CHAR(36) NOT NULL,
		evidence CHAR(36) NOT NULL,
		file_mime VARCHAR(255) NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		file_size BIGINT NOT NULL,
		created BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		KEY idx_file_attachments_evidence (evidence)
	)`,
	`CREATE TABLE IF NOT EXISTS blacklist (
		uuid CHAR(36) NOT NULL,
		entity CHAR(36) NOT NULL,
		operator CHAR(36) NOT NULL,
		type VARCHAR(16) NOT NULL,
		expires BIGINT NULL,
		lifted TINYINT(1) NOT NULL DEFAULT 0,
		lifted_by CHAR(36) NULL,
		evidence CHAR(36) NULL,
		created BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		KEY idx_blacklist_entity (entity),
		KEY idx_blacklist_operator (operator),
		KEY idx_blacklist_evidence (evidence)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		uuid CHAR(36) NOT NULL,
		type VARCHAR(40) NOT NULL,
		message TEXT NOT NULL,
		operator CHAR(36) NULL,
		entity CHAR(36) NULL,
		timestamp BIGINT NOT NULL,
		PRIMARY KEY (uuid),
		KEY idx_audit_log_operator (operator),
		KEY idx_audit_log_entity (entity),
		KEY idx_audit_log_type (type),
		KEY idx_audit_log_timestamp (timestamp)
	)`,
}

// EnsureSchema creates the six tables if they do not exist. It is idempotent
// and used by "fedsrv init" as well as tests against throwaway databases.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// NewStores bundles one repository per table over the given connection.
func NewStores(db *sqlx.DB) federation.Stores {
	return federation.Stores{
		Operators:   NewOperatorStore(db),
		Entities:    NewEntityStore(db),
		Evidence:    NewEvidenceStore(db),
		Attachments: NewFileAttachmentStore(db),
		Blacklist:   NewBlacklistStore(db),
		AuditLogs:   NewAuditLogStore(db),
	}
}

// mysqlDuplicateEntry is the server error number for unique-key violations.
const mysqlDuplicateEntry = 1062

// asConflict converts a duplicate-entry failure into the Conflict error kind;
// other errors pass through untouched.
func asConflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	if me, ok := err.(*mysql.MySQLError); ok && me.Number == mysqlDuplicateEntry {
		return federation.NewError(federation.Conflict, msg)
	}
	return err
}
