package federation

import "regexp"

const (
	// MaxEvidenceTextLength caps text_content at 16 MiB.
	MaxEvidenceTextLength = 16 << 20
	// MaxEvidenceNoteLength caps the note field.
	MaxEvidenceNoteLength = 65535
	// MaxEvidenceTagLength caps the tag field.
	MaxEvidenceTagLength = 32
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// EvidenceRecord is a note, text blob and tag attached to an entity by an
// operator. Confidential evidence is hidden from unprivileged viewers.
type EvidenceRecord struct {
	UUID         UUID    `db:"uuid" json:"uuid"`
	Entity       UUID    `db:"entity" json:"entity"`
	Operator     UUID    `db:"operator" json:"operator"`
	Confidential bool    `db:"confidential" json:"confidential"`
	TextContent  *string `db:"text_content" json:"text_content"`
	Note         *string `db:"note" json:"note"`
	Tag          *string `db:"tag" json:"tag"`
	Created      int64   `db:"created" json:"created"`
}

// ValidateEvidence checks the length and pattern constraints of the optional
// evidence fields.
func ValidateEvidence(textContent, note, tag *string) error {
	if textContent != nil && len(*textContent) > MaxEvidenceTextLength {
		return NewError(PayloadTooLarge, "text_content exceeds 16 MiB")
	}
	if note != nil && len(*note) > MaxEvidenceNoteLength {
		return Errorf(InvalidArgument, "note exceeds %d characters", MaxEvidenceNoteLength)
	}
	if tag != nil {
		if len(*tag) > MaxEvidenceTagLength {
			return Errorf(InvalidArgument, "tag exceeds %d characters", MaxEvidenceTagLength)
		}
		if !tagPattern.MatchString(*tag) {
			return NewError(InvalidArgument, "tag must match [A-Za-z0-9_-]+")
		}
	}
	return nil
}

// ToMap serializes the record for the cache.
func (e EvidenceRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":         e.UUID.String(),
		"entity":       e.Entity.String(),
		"operator":     e.Operator.String(),
		"confidential": formatBool(e.Confidential),
		"text_content": formatOptString(e.TextContent),
		"note":         formatOptString(e.Note),
		"tag":          formatOptString(e.Tag),
		"created":      formatInt(e.Created),
	}
}

// EvidenceFromMap reconstructs a record from its cache serialization.
func EvidenceFromMap(m map[string]string) EvidenceRecord {
	return EvidenceRecord{
		UUID:         mustParseUUID(m["uuid"]),
		Entity:       mustParseUUID(m["entity"]),
		Operator:     mustParseUUID(m["operator"]),
		Confidential: parseBool(m["confidential"]),
		TextContent:  parseOptString(m["text_content"]),
		Note:         parseOptString(m["note"]),
		Tag:          parseOptString(m["tag"]),
		Created:      parseInt(m["created"]),
	}
}
