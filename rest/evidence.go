package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

type submitEvidenceRequest struct {
	Entity       federation.UUID `json:"entity"`
	Confidential bool            `json:"confidential"`
	TextContent  *string         `json:"text_content"`
	Note         *string         `json:"note"`
	Tag          *string         `json:"tag"`
}

func (s *Server) submitEvidence(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	var req submitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Entity.IsNil() {
		fail(c, federation.NewError(federation.InvalidArgument, "entity is required"))
		return
	}
	rec, err := s.reg.Evidence.Add(c.Request.Context(), actor, req.Entity,
		req.Confidential, req.TextContent, req.Note, req.Tag)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

// getEvidence returns one record. Confidential evidence is only shown to
// blacklist managers and the submitting operator.
func (s *Server) getEvidence(c *gin.Context) {
	actor, allowed := s.allowPublicOr(c, s.cfg.Server.PublicEvidence)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := s.reg.Evidence.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if rec.Confidential && !s.mayViewConfidential(actor, rec) {
		fail(c, federation.NewError(federation.NotFound, "evidence not found"))
		return
	}
	ok(c, http.StatusOK, rec)
}

func (s *Server) listEvidence(c *gin.Context) {
	actor, allowed := s.allowPublicOr(c, s.cfg.Server.PublicEvidence)
	if !allowed {
		return
	}
	limit := clampLimit(c, s.cfg.Server.ListEvidenceMaxItems)
	recs, err := s.reg.Evidence.List(c.Request.Context(), limit, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	visible := make([]federation.EvidenceRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Confidential && !s.mayViewConfidential(actor, &rec) {
			continue
		}
		visible = append(visible, rec)
	}
	ok(c, http.StatusOK, visible)
}

func (s *Server) deleteEvidence(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Evidence.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

type confidentialRequest struct {
	Confidential *bool `json:"confidential" binding:"required"`
}

func (s *Server) setEvidenceConfidential(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req confidentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "confidential is required"))
		return
	}
	if err := s.reg.Evidence.SetConfidential(c.Request.Context(), actor, id, *req.Confidential); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

func (s *Server) mayViewConfidential(actor *federation.OperatorRecord, rec *federation.EvidenceRecord) bool {
	if actor == nil {
		return false
	}
	return s.reg.Operators.CanManageBlacklist(actor) || actor.UUID.Compare(rec.Operator) == 0
}
