package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/config"
)

// serverInfo reports the instance identity, wire version, public-surface
// flags and record counts. It is always reachable without a key.
func (s *Server) serverInfo(c *gin.Context) {
	ctx := c.Request.Context()
	operators, err := s.reg.Operators.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	entities, err := s.reg.Entities.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	evidence, err := s.reg.Evidence.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	attachments, err := s.reg.Attachments.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	blacklist, err := s.reg.Blacklist.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	auditLogs, err := s.reg.AuditLogs.Count(ctx, "")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"name":        s.cfg.Server.Name,
		"base_url":    s.cfg.Server.BaseURL,
		"api_version": config.APIVersion,
		"public": gin.H{
			"audit_logs":   s.cfg.Server.PublicAuditLogs,
			"entries":      s.cfg.Server.PublicEntries,
			"evidence":     s.cfg.Server.PublicEvidence,
			"blacklist":    s.cfg.Server.PublicBlacklist,
			"entities":     s.cfg.Server.PublicEntities,
			"scan_content": s.cfg.Server.PublicScanContent,
		},
		"counts": gin.H{
			"operators":   operators,
			"entities":    entities,
			"evidence":    evidence,
			"attachments": attachments,
			"blacklist":   blacklist,
			"audit_logs":  auditLogs,
		},
	})
}

func pathUUID(c *gin.Context) (federation.UUID, error) {
	id, err := federation.ParseUUID(c.Param("uuid"))
	if err != nil {
		return federation.NilUUID, federation.NewError(federation.InvalidArgument, "malformed uuid")
	}
	return id, nil
}
