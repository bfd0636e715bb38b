package federation

import "strconv"

// Cache key prefixes, one per record kind plus the operator API-key pointer
// index. These exact prefixes are part of the persisted-state contract.
const (
	OperatorPrefix       = "operator:"
	OperatorAPIKeyPrefix = "operator_api_key:"
	EntityPrefix         = "entity:"
	EvidencePrefix       = "evidence:"
	FileAttachmentPrefix = "file_attachment:"
	BlacklistPrefix      = "blacklist:"
	AuditLogPrefix       = "audit_log:"
)

// Field map codec helpers. Records serialize to flat string maps for the
// cache; absent optional fields serialize as the empty string.

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	return s == "1" || s == "true"
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func formatOptString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseOptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatOptInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseOptInt(s string) *int64 {
	if s == "" {
		return nil
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return &v
}

func formatOptUUID(id *UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func parseOptUUID(s string) *UUID {
	if s == "" {
		return nil
	}
	id, err := ParseUUID(s)
	if err != nil {
		return nil
	}
	return &id
}

func mustParseUUID(s string) UUID {
	id, _ := ParseUUID(s)
	return id
}
