package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/idadmin/internal/auth/domain"
	"github.com/smallbiznis/idadmin/internal/auth/session"
	"go.uber.org/zap"
)

const (
	msgInvalidLogin    = "Invalid username or password"
	msgLockedOut       = "This account is locked out. Try again later."
	msgTooManyAttempts = "Too many sign-in attempts. Try again later."
)

type loginForm struct {
	UserName  string `form:"user_name"`
	Password  string `form:"password"`
	ReturnURL string `form:"return_url"`
}

type loginPage struct {
	UserName  string
	ReturnURL string
}

func (s *Server) LoginPage(c *gin.Context) {
	returnURL := safeReturnURL(c.Query("return_url"))
	if currentPrincipal(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, returnURL)
		return
	}
	s.render(c, http.StatusOK, "login", view{
		Title: "Sign in",
		Data:  loginPage{ReturnURL: returnURL},
	})
}

func (s *Server) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	returnURL := safeReturnURL(form.ReturnURL)

	result, err := s.authsvc.SignIn(c.Request.Context(), authdomain.SignInRequest{
		UserName:  form.UserName,
		Password:  form.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		page := loginPage{UserName: strings.TrimSpace(form.UserName), ReturnURL: returnURL}
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			s.render(c, http.StatusOK, "login", view{Title: "Sign in", Errors: []string{msgInvalidLogin}, Data: page})
		case errors.Is(err, authdomain.ErrLockedOut):
			s.render(c, http.StatusOK, "login", view{Title: "Sign in", Errors: []string{msgLockedOut}, Data: page})
		case errors.Is(err, authdomain.ErrTooManyAttempts):
			s.render(c, http.StatusTooManyRequests, "login", view{Title: "Sign in", Errors: []string{msgTooManyAttempts}, Data: page})
		default:
			AbortWithError(c, err)
		}
		return
	}

	if err := s.sessions.SignIn(c, session.Identity{
		UserID:        result.User.ID,
		SecurityStamp: result.User.SecurityStamp,
		SessionKey:    result.SessionKey,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, returnURL)
}

func (s *Server) Logout(c *gin.Context) {
	if id, ok := identityFromContext(c); ok {
		if err := s.authsvc.SignOut(c.Request.Context(), id.UserID, id.SessionKey); err != nil {
			s.log.Warn("failed to end server-side session", zap.Error(err))
		}
	}
	if err := s.sessions.SignOut(c); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, loginPath)
}

// safeReturnURL only follows local paths.
func safeReturnURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/admin"
	}
	return raw
}
