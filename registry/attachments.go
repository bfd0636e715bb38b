package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	federation "github.com/federatedsec/federation"
)

// FileAttachmentManager owns attachment upload, download and deletion. The
// binary lives in the file store under the attachment UUID; the row holds
// the metadata.
type FileAttachmentManager struct {
	stores        federation.Stores
	cache         tableCache
	files         federation.FileStore
	audit         *AuditLog
	maxUploadSize int64
}

// Upload streams the attachment body into the file store and records the
// metadata row. A failed row insert unlinks the just-written blob so no
// orphan file remains.
func (m *FileAttachmentManager) Upload(ctx context.Context, actor *federation.OperatorRecord, evidence federation.UUID, fileMime, fileName string, fileSize int64, r io.Reader) (*federation.FileAttachmentRecord, error) {
	if err := federation.ValidateAttachment(fileName, fileSize); err != nil {
		return nil, err
	}
	if fileSize > m.maxUploadSize {
		return nil, federation.Errorf(federation.PayloadTooLarge, "attachment exceeds %d bytes", m.maxUploadSize)
	}
	ev, err := m.stores.Evidence.GetByUUID(ctx, evidence)
	if err != nil {
		return nil, dbErr(err, "load evidence")
	}
	if ev == nil {
		return nil, federation.NewError(federation.NotFound, "evidence not found")
	}
	rec := federation.FileAttachmentRecord{
		UUID:     federation.NewUUID(),
		Evidence: evidence,
		FileMime: fileMime,
		FileName: fileName,
		FileSize: fileSize,
		Created:  nowUnix(),
	}
	// Cap the stream at the declared size so a lying Content-Length cannot
	// push past the limit.
	written, err := m.files.Write(ctx, rec.UUID, io.LimitReader(r, fileSize))
	if err != nil {
		return nil, federation.WrapError(federation.Internal, "store attachment file", err)
	}
	rec.FileSize = written
	if err := m.stores.Attachments.Add(ctx, rec); err != nil {
		if rmErr := m.files.Remove(ctx, rec.UUID); rmErr != nil {
			slog.Warn("orphaned attachment blob", "uuid", rec.UUID.String(), "error", rmErr)
		}
		return nil, dbErr(err, "add attachment")
	}
	if _, err := m.cache.put(ctx, federation.FileAttachmentPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	if err := m.audit.Append(ctx, federation.AuditAttachmentUploaded,
		fmt.Sprintf("attachment %s (%s, %d bytes) uploaded", rec.UUID.String(), fileName, written),
		actorUUID(actor), &ev.Entity); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns attachment metadata, cache first.
func (m *FileAttachmentManager) Get(ctx context.Context, id federation.UUID) (*federation.FileAttachmentRecord, error) {
	if mp, err := m.cache.get(ctx, federation.FileAttachmentPrefix, id.String()); err != nil {
		return nil, err
	} else if mp != nil {
		rec := federation.FileAttachmentFromMap(mp)
		return &rec, nil
	}
	rec, err := m.stores.Attachments.GetByUUID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "load attachment")
	}
	if rec == nil {
		return nil, federation.NewError(federation.NotFound, "attachment not found")
	}
	if _, err := m.cache.put(ctx, federation.FileAttachmentPrefix, rec.UUID.String(), rec.ToMap()); err != nil {
		return nil, err
	}
	return rec, nil
}

// Open returns the metadata and a reader over the stored binary. The caller
// closes the reader.
func (m *FileAttachmentManager) Open(ctx context.Context, id federation.UUID) (*federation.FileAttachmentRecord, io.ReadCloser, error) {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := m.files.Read(ctx, id)
	if err != nil {
		return nil, nil, federation.WrapError(federation.Internal, "open attachment file", err)
	}
	return rec, rc, nil
}

// ListByEvidence returns the attachments of one evidence record.
func (m *FileAttachmentManager) ListByEvidence(ctx context.Context, evidence federation.UUID) ([]federation.FileAttachmentRecord, error) {
	recs, err := m.stores.Attachments.ListByEvidence(ctx, evidence)
	if err != nil {
		return nil, dbErr(err, "list attachments by evidence")
	}
	return recs, nil
}

// Delete removes the metadata row and unlinks the blob. A failed unlink is
// logged; the row deletion has already happened.
func (m *FileAttachmentManager) Delete(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID) error {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.stores.Attachments.Remove(ctx, id); err != nil {
		return dbErr(err, "delete attachment")
	}
	if err := m.files.Remove(ctx, id); err != nil {
		slog.Warn("attachment blob unlink failed", "uuid", id.String(), "error", err)
	}
	if err := m.cache.Delete(ctx, federation.FileAttachmentPrefix, id.String()); err != nil {
		return err
	}
	return m.audit.Append(ctx, federation.AuditAttachmentDeleted,
		fmt.Sprintf("attachment %s (%s) deleted", id.String(), rec.FileName), actorUUID(actor), nil)
}

// Count returns the number of attachments.
func (m *FileAttachmentManager) Count(ctx context.Context) (int64, error) {
	n, err := m.stores.Attachments.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count attachments")
	}
	return n, nil
}
