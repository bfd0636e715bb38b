package rest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

// operatorKey is the gin context key the resolved caller is stored under.
const operatorKey = "federation_operator"

// authenticate resolves the presented API key to an operator and stores it
// in the request context. No key means an anonymous request; whether that is
// acceptable is decided per route. A presented but unknown key aborts with
// 401 and a disabled operator with 403 regardless of route.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := presentedAPIKey(c)
		if key == "" {
			c.Next()
			return
		}
		op, err := s.reg.Operators.GetByAPIKey(c.Request.Context(), key)
		if err != nil {
			if federation.CodeOf(err) == federation.NotFound {
				s.logUnauthorized(c, nil, "unknown api key")
				fail(c, federation.NewError(federation.Unauthenticated, "unknown api key"))
				return
			}
			fail(c, err)
			return
		}
		if op.Disabled {
			s.logUnauthorized(c, op, "disabled operator")
			fail(c, federation.NewError(federation.Forbidden, "operator is disabled"))
			return
		}
		c.Set(operatorKey, op)
		c.Next()
	}
}

// presentedAPIKey extracts the API key from the Authorization header:
// "Bearer <key>", or Basic auth with an empty user and the key as password.
func presentedAPIKey(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if _, password, ok := c.Request.BasicAuth(); ok {
		return password
	}
	return ""
}

// caller returns the authenticated operator, nil for anonymous requests.
func caller(c *gin.Context) *federation.OperatorRecord {
	if v, exists := c.Get(operatorKey); exists {
		return v.(*federation.OperatorRecord)
	}
	return nil
}

// requireAuth aborts with 401 when the request is anonymous.
func (s *Server) requireAuth(c *gin.Context) (*federation.OperatorRecord, bool) {
	op := caller(c)
	if op == nil {
		s.logUnauthorized(c, nil, "authentication required")
		fail(c, federation.NewError(federation.Unauthenticated, "authentication required"))
		return nil, false
	}
	return op, true
}

// requireCap aborts with 401/403 when the caller is anonymous or lacks the
// capability.
func (s *Server) requireCap(c *gin.Context, has func(*federation.OperatorRecord) bool) (*federation.OperatorRecord, bool) {
	op, authed := s.requireAuth(c)
	if !authed {
		return nil, false
	}
	if !has(op) {
		s.logUnauthorized(c, op, "insufficient capability")
		fail(c, federation.NewError(federation.Forbidden, "insufficient capability"))
		return nil, false
	}
	return op, true
}

// allowPublicOr passes anonymous requests through when the route's public
// flag is set, and otherwise requires any authenticated operator.
func (s *Server) allowPublicOr(c *gin.Context, public bool) (*federation.OperatorRecord, bool) {
	if op := caller(c); op != nil {
		return op, true
	}
	if public {
		return nil, true
	}
	s.logUnauthorized(c, nil, "authentication required")
	fail(c, federation.NewError(federation.Unauthenticated, "authentication required"))
	return nil, false
}

// logUnauthorized appends an UNAUTHORIZED_ATTEMPT audit entry when enabled.
// Failure to log never changes the response.
func (s *Server) logUnauthorized(c *gin.Context, op *federation.OperatorRecord, reason string) {
	if !s.cfg.Server.LogUnauthorized {
		return
	}
	var operator *federation.UUID
	if op != nil {
		operator = &op.UUID
	}
	msg := reason + ": " + c.Request.Method + " " + c.Request.URL.Path + " from " + c.ClientIP()
	if err := s.reg.AuditLogs.Append(context.WithoutCancel(c.Request.Context()),
		federation.AuditUnauthorizedAttempt, msg, operator, nil); err != nil {
		slog.Warn("unauthorized-attempt audit append failed", "error", err)
	}
}
