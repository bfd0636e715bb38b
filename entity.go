package federation

// MaxEntityIDLength is the longest accepted entity id part.
const MaxEntityIDLength = 255

// EntityRecord is a reference target: a host, or an id@host pair. It is
// uniquely identified by the SHA-256 of its canonical form.
type EntityRecord struct {
	UUID    UUID    `db:"uuid" json:"uuid"`
	Hash    string  `db:"hash" json:"hash"`
	ID      *string `db:"id" json:"id"`
	Host    string  `db:"host" json:"host"`
	Created int64   `db:"created" json:"created"`
}

// ValidateEntity checks the host and optional id constraints.
func ValidateEntity(host string, id *string) error {
	if !IsValidHost(host) {
		return NewError(InvalidArgument, "host must be a domain name or IP literal")
	}
	if id != nil && len(*id) > MaxEntityIDLength {
		return Errorf(InvalidArgument, "id exceeds %d characters", MaxEntityIDLength)
	}
	return nil
}

// ToMap serializes the record for the cache.
func (e EntityRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":    e.UUID.String(),
		"hash":    e.Hash,
		"id":      formatOptString(e.ID),
		"host":    e.Host,
		"created": formatInt(e.Created),
	}
}

// EntityFromMap reconstructs a record from its cache serialization.
func EntityFromMap(m map[string]string) EntityRecord {
	return EntityRecord{
		UUID:    mustParseUUID(m["uuid"]),
		Hash:    m["hash"],
		ID:      parseOptString(m["id"]),
		Host:    m["host"],
		Created: parseInt(m["created"]),
	}
}
