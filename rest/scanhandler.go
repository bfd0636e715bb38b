package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

type scanRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

// scanContent extracts named entities from free text and returns the
// reputation picture of every one that is a registered entity.
func (s *Server) scanContent(c *gin.Context) {
	var actor *federation.OperatorRecord
	if s.cfg.Server.PublicScanContent {
		actor = caller(c)
	} else {
		op, allowed := s.requireCap(c, s.reg.Operators.CanScan)
		if !allowed {
			return
		}
		actor = op
	}
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		fail(c, federation.NewError(federation.InvalidArgument, "text is required"))
		return
	}
	if req.Limit < 0 {
		fail(c, federation.NewError(federation.InvalidArgument, "limit must not be negative"))
		return
	}
	includeConfidential := actor != nil && s.reg.Operators.CanManageBlacklist(actor)
	results, err := s.scanner.ScanContent(c.Request.Context(), req.Text, req.Limit, includeConfidential, false)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, results)
}
