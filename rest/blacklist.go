package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

type createBlacklistRequest struct {
	Entity   federation.UUID  `json:"entity"`
	Type     string           `json:"type"`
	Expires  *int64           `json:"expires"`
	Evidence *federation.UUID `json:"evidence"`
}

func (s *Server) createBlacklist(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	var req createBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Entity.IsNil() {
		fail(c, federation.NewError(federation.InvalidArgument, "entity and type are required"))
		return
	}
	typ, err := federation.ParseBlacklistType(req.Type)
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := s.reg.Blacklist.Blacklist(c.Request.Context(), actor, req.Entity, typ, req.Expires, req.Evidence)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

func (s *Server) listBlacklist(c *gin.Context) {
	_, allowed := s.allowPublicOr(c, s.cfg.Server.PublicBlacklist)
	if !allowed {
		return
	}
	limit := clampLimit(c, s.cfg.Server.ListBlacklistMaxItems)
	includeLifted := c.Query("includeLifted") == "true"
	recs, err := s.reg.Blacklist.List(c.Request.Context(), includeLifted, limit, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, recs)
}

func (s *Server) liftBlacklist(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Blacklist.Lift(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

func (s *Server) deleteBlacklist(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Blacklist.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

type attachEvidenceRequest struct {
	Evidence federation.UUID `json:"evidence"`
}

func (s *Server) attachBlacklistEvidence(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req attachEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Evidence.IsNil() {
		fail(c, federation.NewError(federation.InvalidArgument, "evidence is required"))
		return
	}
	if err := s.reg.Blacklist.AttachEvidence(c.Request.Context(), actor, id, req.Evidence); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}
