package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

type pushEntityRequest struct {
	Host string  `json:"host" binding:"required"`
	ID   *string `json:"id"`
}

// pushEntity registers an entity, answering 201 on creation and 200 with
// the existing record when the hash is already known.
func (s *Server) pushEntity(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanPushEntities)
	if !allowed {
		return
	}
	var req pushEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "host is required"))
		return
	}
	ctx := c.Request.Context()
	existing, err := s.reg.Entities.GetByHostID(ctx, req.Host, req.ID)
	if err == nil {
		ok(c, http.StatusOK, existing)
		return
	}
	if federation.CodeOf(err) != federation.NotFound {
		fail(c, err)
		return
	}
	rec, err := s.reg.Entities.Register(ctx, actor, req.Host, req.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

func (s *Server) listEntities(c *gin.Context) {
	_, allowed := s.allowPublicOr(c, s.cfg.Server.PublicEntities)
	if !allowed {
		return
	}
	limit := clampLimit(c, s.cfg.Server.ListEntitiesMaxItems)
	recs, err := s.reg.Entities.List(c.Request.Context(), limit, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, recs)
}

// queryEntity composes the full reputation picture. Confidential evidence is
// visible to blacklist managers only; lifted verdicts on request.
func (s *Server) queryEntity(c *gin.Context) {
	actor, authed := s.requireAuth(c)
	if !authed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	includeConfidential := s.reg.Operators.CanManageBlacklist(actor)
	includeLifted := c.Query("includeLifted") == "true"
	result, err := s.reg.Query.Query(c.Request.Context(), id, includeConfidential, includeLifted)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

func (s *Server) deleteEntity(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageBlacklist)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Entities.DeleteByUUID(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}
