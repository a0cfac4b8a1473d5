package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	authdomain "github.com/smallbiznis/idadmin/internal/auth/domain"
	"github.com/smallbiznis/idadmin/internal/auth/session"
	"github.com/smallbiznis/idadmin/internal/authorization"
	obscontext "github.com/smallbiznis/idadmin/internal/observability/context"
	"go.uber.org/zap"
)

const (
	loginPath          = "/account/login"
	contextIdentityKey = "console_identity"
)

// LoadPrincipal resolves the console cookie into a principal on the request
// context. A cookie whose security stamp no longer matches is cleared.
func (s *Server) LoadPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := s.sessions.Identity(c)
		if !ok {
			c.Next()
			return
		}

		principal, err := s.authsvc.Principal(c.Request.Context(), id.UserID, id.SecurityStamp)
		if err != nil {
			if errors.Is(err, authdomain.ErrInvalidSession) {
				if err := s.sessions.SignOut(c); err != nil {
					s.log.Warn("failed to clear stale cookie", zap.Error(err))
				}
				c.Next()
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), principal.UserID)
		ctx = authorization.WithPrincipal(ctx, principal)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextIdentityKey, id)
		c.Next()
	}
}

// RequireAuth sends anonymous page requests to the login page.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentPrincipal(c).IsAuthenticated() {
			c.Next()
			return
		}
		if wantsJSON(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Redirect(http.StatusFound, loginPath+"?return_url="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func (s *Server) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authzSvc.RequireRole(c.Request.Context(), currentPrincipal(c), role); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) RequirePolicy(policy authorization.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorize(c, policy); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorize(c *gin.Context, policy authorization.Policy) error {
	return s.authzSvc.Authorize(c.Request.Context(), currentPrincipal(c), policy)
}

func (s *Server) allowed(c *gin.Context, policy authorization.Policy) bool {
	return s.authzSvc.Allowed(c.Request.Context(), currentPrincipal(c), policy)
}

func currentPrincipal(c *gin.Context) *authorization.Principal {
	return authorization.PrincipalFromContext(c.Request.Context())
}

func identityFromContext(c *gin.Context) (session.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return session.Identity{}, false
	}
	id, ok := value.(session.Identity)
	return id, ok
}
