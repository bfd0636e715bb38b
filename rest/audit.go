package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listAuditLogs returns audit entries newest first, optionally filtered by
// type via the "type" query parameter.
func (s *Server) listAuditLogs(c *gin.Context) {
	_, allowed := s.allowPublicOr(c, s.cfg.Server.PublicAuditLogs)
	if !allowed {
		return
	}
	limit := clampLimit(c, s.cfg.Server.ListAuditLogsMaxItems)
	recs, err := s.reg.AuditLogs.List(c.Request.Context(), c.Query("type"), limit, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, recs)
}
