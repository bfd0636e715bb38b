package federation

// MaxFileNameLength is the longest accepted attachment file name.
const MaxFileNameLength = 255

// FileAttachmentRecord describes a binary attachment of an evidence record.
// The attachment UUID doubles as the storage key (the on-disk file name).
type FileAttachmentRecord struct {
	UUID     UUID   `db:"uuid" json:"uuid"`
	Evidence UUID   `db:"evidence" json:"evidence"`
	FileMime string `db:"file_mime" json:"file_mime"`
	FileName string `db:"file_name" json:"file_name"`
	FileSize int64  `db:"file_size" json:"file_size"`
	Created  int64  `db:"created" json:"created"`
}

// ValidateAttachment checks the file name and size constraints.
func ValidateAttachment(fileName string, fileSize int64) error {
	if fileName == "" || len(fileName) > MaxFileNameLength {
		return Errorf(InvalidArgument, "file_name must be 1-%d characters", MaxFileNameLength)
	}
	if fileSize <= 0 {
		return NewError(InvalidArgument, "file_size must be positive")
	}
	return nil
}

// ToMap serializes the record for the cache.
func (f FileAttachmentRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":      f.UUID.String(),
		"evidence":  f.Evidence.String(),
		"file_mime": f.FileMime,
		"file_name": f.FileName,
		"file_size": formatInt(f.FileSize),
		"created":   formatInt(f.Created),
	}
}

// FileAttachmentFromMap reconstructs a record from its cache serialization.
func FileAttachmentFromMap(m map[string]string) FileAttachmentRecord {
	return FileAttachmentRecord{
		UUID:     mustParseUUID(m["uuid"]),
		Evidence: mustParseUUID(m["evidence"]),
		FileMime: m["file_mime"],
		FileName: m["file_name"],
		FileSize: parseInt(m["file_size"]),
		Created:  parseInt(m["created"]),
	}
}
