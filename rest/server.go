// Package rest is the HTTP surface: gin routes over the registry managers,
// the authorization gate, and the wire envelope.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/federatedsec/federation/config"
	"github.com/federatedsec/federation/registry"
	"github.com/federatedsec/federation/scan"
)

// Server is the HTTP front of one registry.
type Server struct {
	cfg     config.Config
	reg     *registry.Registry
	scanner *scan.Scanner
	engine  *gin.Engine
}

// NewServer builds the engine and registers all routes.
func NewServer(cfg config.Config, reg *registry.Registry, scanner *scan.Scanner) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	s := &Server{cfg: cfg, reg: reg, scanner: scanner, engine: engine}
	s.routes()
	return s
}

// Handler exposes the engine for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(s.authenticate())

	r.GET("/", s.serverInfo)

	r.POST("/operators/create", s.createOperator)
	r.GET("/operators", s.listOperators)
	r.POST("/operators/:uuid", s.getOperator)
	r.DELETE("/operators/:uuid/delete", s.deleteOperator)
	r.POST("/operators/:uuid/enable", s.setOperatorEnabled)
	r.POST("/operators/:uuid/refresh", s.refreshOperatorKey)
	r.POST("/operators/:uuid/manage_operators", s.setManageOperators)
	r.POST("/operators/:uuid/manage_blacklist", s.setManageBlacklist)
	r.POST("/operators/:uuid/manage_client", s.setClient)

	r.POST("/entities/push", s.pushEntity)
	r.GET("/entities", s.listEntities)
	r.POST("/entities/:uuid/query", s.queryEntity)
	r.DELETE("/entities/:uuid/delete", s.deleteEntity)

	r.POST("/evidence/submit", s.submitEvidence)
	r.GET("/evidence", s.listEvidence)
	r.GET("/evidence/:uuid", s.getEvidence)
	r.DELETE("/evidence/:uuid/delete", s.deleteEvidence)
	r.POST("/evidence/:uuid/confidential", s.setEvidenceConfidential)

	r.POST("/attachment/upload", s.uploadAttachment)
	r.GET("/attachment/:uuid", s.downloadAttachment)
	r.DELETE("/attachment/:uuid/delete", s.deleteAttachment)

	r.POST("/blacklist/create", s.createBlacklist)
	r.GET("/blacklist", s.listBlacklist)
	r.POST("/blacklist/:uuid/lift", s.liftBlacklist)
	r.DELETE("/blacklist/:uuid/delete", s.deleteBlacklist)
	r.POST("/blacklist/:uuid/evidence", s.attachBlacklistEvidence)

	r.POST("/scan", s.scanContent)

	r.GET("/audit", s.listAuditLogs)
}

// Run serves until the context is canceled, then drains with a short
// shutdown grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Listen,
		Handler: s.engine,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// clampLimit parses the limit query parameter against a route's maximum.
func clampLimit(c *gin.Context, max int) int {
	limit := queryInt(c, "limit", max)
	if limit < 1 || limit > max {
		return max
	}
	return limit
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryPage(c *gin.Context) int {
	page := queryInt(c, "page", 1)
	if page < 1 {
		return 1
	}
	return page
}
