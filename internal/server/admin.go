package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"go.uber.org/zap"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type accountsPage struct {
	Users []identitydomain.User
}

func (s *Server) AdminIndex(c *gin.Context) {
	s.render(c, http.StatusOK, "admin_index", view{Title: "Administration"})
}

func (s *Server) ListAccounts(c *gin.Context) {
	users, err := s.users.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.render(c, http.StatusOK, "accounts", view{Title: "Accounts", Data: accountsPage{Users: users}})
}

// recordMutation counts a console write and, when it succeeded, appends it
// to the audit log. The actor comes from the request context.
func (s *Server) recordMutation(c *gin.Context, resource, action, targetID string, metadata map[string]any) {
	ctx := c.Request.Context()
	s.obsMetrics.RecordAdminMutation(ctx, resource, action, outcomeSuccess)

	var target *string
	if targetID != "" {
		target = &targetID
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, resource+"."+action, resource, target, metadata); err != nil {
		s.log.Warn("failed to audit admin mutation",
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Server) recordMutationFailure(c *gin.Context, resource, action string) {
	s.obsMetrics.RecordAdminMutation(c.Request.Context(), resource, action, outcomeFailure)
}
