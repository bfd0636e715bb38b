package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

// uploadAttachment accepts a multipart form with an "evidence" UUID field
// and a "file" part. The declared size is checked against the configured
// maximum before any bytes are stored.
func (s *Server) uploadAttachment(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	evidence, err := federation.ParseUUID(c.PostForm("evidence"))
	if err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "evidence is required"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "file part is required"))
		return
	}
	if header.Size > s.cfg.Server.MaxUploadSize {
		fail(c, federation.Errorf(federation.PayloadTooLarge,
			"attachment exceeds %d bytes", s.cfg.Server.MaxUploadSize))
		return
	}
	f, err := header.Open()
	if err != nil {
		fail(c, federation.WrapError(federation.Internal, "read upload", err))
		return
	}
	defer f.Close()

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	rec, err := s.reg.Attachments.Upload(c.Request.Context(), actor, evidence,
		mime, header.Filename, header.Size, f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

// downloadAttachment streams the binary with its stored MIME type and file
// name.
func (s *Server) downloadAttachment(c *gin.Context) {
	_, allowed := s.allowPublicOr(c, s.cfg.Server.PublicEvidence)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	rec, body, err := s.reg.Attachments.Open(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	defer body.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.FileName))
	c.DataFromReader(http.StatusOK, rec.FileSize, rec.FileMime, body, nil)
}

func (s *Server) deleteAttachment(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Attachments.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}
