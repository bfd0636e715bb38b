package federation

import "time"

// BlacklistType is the abuse category of a verdict.
type BlacklistType string

const (
	BlacklistSpam          BlacklistType = "spam"
	BlacklistAbuse         BlacklistType = "abuse"
	BlacklistMalware       BlacklistType = "malware"
	BlacklistPhishing      BlacklistType = "phishing"
	BlacklistScam          BlacklistType = "scam"
	BlacklistImpersonation BlacklistType = "impersonation"
	BlacklistOther         BlacklistType = "other"
)

// ParseBlacklistType validates a wire value against the enumerated types.
func ParseBlacklistType(s string) (BlacklistType, error) {
	switch t := BlacklistType(s); t {
	case BlacklistSpam, BlacklistAbuse, BlacklistMalware, BlacklistPhishing,
		BlacklistScam, BlacklistImpersonation, BlacklistOther:
		return t, nil
	}
	return "", Errorf(InvalidArgument, "unknown blacklist type %q", s)
}

// BlacklistRecord is a verdict by an operator that an entity belongs to an
// abuse category. A nil Expires means permanent; a lifted verdict survives
// for auditing.
type BlacklistRecord struct {
	UUID     UUID          `db:"uuid" json:"uuid"`
	Entity   UUID          `db:"entity" json:"entity"`
	Operator UUID          `db:"operator" json:"operator"`
	Type     BlacklistType `db:"type" json:"type"`
	Expires  *int64        `db:"expires" json:"expires"`
	Lifted   bool          `db:"lifted" json:"lifted"`
	LiftedBy *UUID         `db:"lifted_by" json:"lifted_by"`
	Evidence *UUID         `db:"evidence" json:"evidence"`
	Created  int64         `db:"created" json:"created"`
}

// IsActive reports whether the verdict is in force at the given instant.
func (b BlacklistRecord) IsActive(now time.Time) bool {
	if b.Lifted {
		return false
	}
	return b.Expires == nil || *b.Expires > now.Unix()
}

// ToMap serializes the record for the cache.
func (b BlacklistRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":      b.UUID.String(),
		"entity":    b.Entity.String(),
		"operator":  b.Operator.String(),
		"type":      string(b.Type),
		"expires":   formatOptInt(b.Expires),
		"lifted":    formatBool(b.Lifted),
		"lifted_by": formatOptUUID(b.LiftedBy),
		"evidence":  formatOptUUID(b.Evidence),
		"created":   formatInt(b.Created),
	}
}

// BlacklistFromMap reconstructs a record from its cache serialization.
func BlacklistFromMap(m map[string]string) BlacklistRecord {
	return BlacklistRecord{
		UUID:     mustParseUUID(m["uuid"]),
		Entity:   mustParseUUID(m["entity"]),
		Operator: mustParseUUID(m["operator"]),
		Type:     BlacklistType(m["type"]),
		Expires:  parseOptInt(m["expires"]),
		Lifted:   parseBool(m["lifted"]),
		LiftedBy: parseOptUUID(m["lifted_by"]),
		Evidence: parseOptUUID(m["evidence"]),
		Created:  parseInt(m["created"]),
	}
}
