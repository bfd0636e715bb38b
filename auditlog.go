package federation

// AuditLogType enumerates the mutation kinds recorded by the audit log.
type AuditLogType string

const (
	AuditOperatorCreated           AuditLogType = "OPERATOR_CREATED"
	AuditOperatorDeleted           AuditLogType = "OPERATOR_DELETED"
	AuditOperatorEnabled           AuditLogType = "OPERATOR_ENABLED"
	AuditOperatorDisabled          AuditLogType = "OPERATOR_DISABLED"
	AuditOperatorKeyRefreshed      AuditLogType = "OPERATOR_KEY_REFRESHED"
	AuditOperatorCapabilityChanged AuditLogType = "OPERATOR_CAPABILITY_CHANGED"
	AuditEntityPushed              AuditLogType = "ENTITY_PUSHED"
	AuditEntityDeleted             AuditLogType = "ENTITY_DELETED"
	AuditEvidenceSubmitted         AuditLogType = "EVIDENCE_SUBMITTED"
	AuditEvidenceDeleted           AuditLogType = "EVIDENCE_DELETED"
	AuditEvidenceChanged           AuditLogType = "EVIDENCE_CHANGED"
	AuditEvidenceAttached          AuditLogType = "EVIDENCE_ATTACHED"
	AuditAttachmentUploaded        AuditLogType = "ATTACHMENT_UPLOADED"
	AuditAttachmentDeleted         AuditLogType = "ATTACHMENT_DELETED"
	AuditBlacklistCreated          AuditLogType = "BLACKLIST_CREATED"
	AuditBlacklistLifted           AuditLogType = "BLACKLIST_LIFTED"
	AuditBlacklistDeleted          AuditLogType = "BLACKLIST_DELETED"
	AuditMaintenanceRun            AuditLogType = "MAINTENANCE_RUN"
	AuditUnauthorizedAttempt       AuditLogType = "UNAUTHORIZED_ATTEMPT"
)

// AuditLogRecord is one append-only entry. Operator and Entity are nulled
// out when the referenced record is deleted; the row itself survives.
type AuditLogRecord struct {
	UUID      UUID         `db:"uuid" json:"uuid"`
	Type      AuditLogType `db:"type" json:"type"`
	Message   string       `db:"message" json:"message"`
	Operator  *UUID        `db:"operator" json:"operator"`
	Entity    *UUID        `db:"entity" json:"entity"`
	Timestamp int64        `db:"timestamp" json:"timestamp"`
}

// ToMap serializes the record for the cache.
func (a AuditLogRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":      a.UUID.String(),
		"type":      string(a.Type),
		"message":   a.Message,
		"operator":  formatOptUUID(a.Operator),
		"entity":    formatOptUUID(a.Entity),
		"timestamp": formatInt(a.Timestamp),
	}
}

// AuditLogFromMap reconstructs a record from its cache serialization.
func AuditLogFromMap(m map[string]string) AuditLogRecord {
	return AuditLogRecord{
		UUID:      mustParseUUID(m["uuid"]),
		Type:      AuditLogType(m["type"]),
		Message:   m["message"],
		Operator:  parseOptUUID(m["operator"]),
		Entity:    parseOptUUID(m["entity"]),
		Timestamp: parseInt(m["timestamp"]),
	}
}
