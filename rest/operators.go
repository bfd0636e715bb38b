package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

type createOperatorRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createOperator(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "name is required"))
		return
	}
	rec, err := s.reg.Operators.Create(c.Request.Context(), actor, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

func (s *Server) listOperators(c *gin.Context) {
	_, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	limit := clampLimit(c, s.cfg.Server.ListOperatorsMaxItems)
	recs, err := s.reg.Operators.List(c.Request.Context(), limit, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, recs)
}

// getOperator returns a single operator. Any operator may retrieve its own
// record; everything else needs manage_operators.
func (s *Server) getOperator(c *gin.Context) {
	actor, authed := s.requireAuth(c)
	if !authed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if id.Compare(actor.UUID) != 0 && !s.reg.Operators.CanManageOperators(actor) {
		s.logUnauthorized(c, actor, "insufficient capability")
		fail(c, federation.NewError(federation.Forbidden, "insufficient capability"))
		return
	}
	rec, err := s.reg.Operators.GetByUUID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

func (s *Server) deleteOperator(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reg.Operators.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) setOperatorEnabled(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "enabled is required"))
		return
	}
	if *req.Enabled {
		err = s.reg.Operators.Enable(c.Request.Context(), actor, id)
	} else {
		err = s.reg.Operators.Disable(c.Request.Context(), actor, id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}

func (s *Server) refreshOperatorKey(c *gin.Context) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := s.reg.Operators.RefreshAPIKey(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"uuid": rec.UUID, "api_key": rec.APIKey})
}

// Grantors may only hand out capabilities they hold themselves; the master
// operator holds them all.
func (s *Server) setManageOperators(c *gin.Context) {
	s.setCapability(c, s.reg.Operators.CanManageOperators, s.reg.Operators.SetManageOperators)
}

func (s *Server) setManageBlacklist(c *gin.Context) {
	s.setCapability(c, s.reg.Operators.CanManageBlacklist, s.reg.Operators.SetManageBlacklist)
}

func (s *Server) setClient(c *gin.Context) {
	s.setCapability(c, s.reg.Operators.CanScan, s.reg.Operators.SetClient)
}

func (s *Server) setCapability(c *gin.Context, grantorHolds func(*federation.OperatorRecord) bool,
	set func(ctx context.Context, actor *federation.OperatorRecord, id federation.UUID, v bool) error) {
	actor, allowed := s.requireCap(c, s.reg.Operators.CanManageOperators)
	if !allowed {
		return
	}
	id, err := pathUUID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, federation.NewError(federation.InvalidArgument, "enabled is required"))
		return
	}
	if *req.Enabled && !grantorHolds(actor) {
		s.logUnauthorized(c, actor, "granting a capability the caller lacks")
		fail(c, federation.NewError(federation.Forbidden, "cannot grant a capability the caller lacks"))
		return
	}
	if err := set(c.Request.Context(), actor, id, *req.Enabled); err != nil {
		fail(c, err)
		return
	}
	okVoid(c)
}
