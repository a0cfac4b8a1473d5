package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/smallbiznis/idadmin/internal/config"
	"go.uber.org/zap"
)

const (
	DefaultCookieName = "_idadmin"

	keyUserID        = "uid"
	keySecurityStamp = "sst"
	keySessionKey    = "ssk"

	// maxAge matches the server-side session lifetime set at sign-in.
	maxAge = 8 * time.Hour
)

var ErrMissingSecret = errors.New("session: SESSION_SECRET is required in production")

// Identity is what the console cookie remembers about a signed-in user.
type Identity struct {
	UserID        string
	SecurityStamp string
	// SessionKey points at the server-side session, when one was created.
	SessionKey string
}

// Manager reads and writes the signed console cookie and its flash messages.
type Manager struct {
	store      *sessions.CookieStore
	cookieName string
	log        *zap.Logger
}

func NewManager(cfg config.Config, log *zap.Logger) (*Manager, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		if cfg.Environment == "production" {
			return nil, ErrMissingSecret
		}
		log.Warn("SESSION_SECRET not set; console cookies will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}
	return newManager(secret, cfg.AuthCookieSecure, int(maxAge.Seconds()), log), nil
}

func newManager(secret []byte, secure bool, maxAgeSeconds int, log *zap.Logger) *Manager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, cookieName: DefaultCookieName, log: log.Named("auth.session")}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// session ignores decode failures: a tampered or stale cookie reads as empty.
func (m *Manager) session(c *gin.Context) *sessions.Session {
	sess, _ := m.store.Get(c.Request, m.cookieName)
	return sess
}

func (m *Manager) Identity(c *gin.Context) (Identity, bool) {
	sess := m.session(c)
	userID, _ := sess.Values[keyUserID].(string)
	stamp, _ := sess.Values[keySecurityStamp].(string)
	if userID == "" || stamp == "" {
		return Identity{}, false
	}
	key, _ := sess.Values[keySessionKey].(string)
	return Identity{UserID: userID, SecurityStamp: stamp, SessionKey: key}, true
}

func (m *Manager) SignIn(c *gin.Context, id Identity) error {
	sess := m.session(c)
	sess.Values[keyUserID] = id.UserID
	sess.Values[keySecurityStamp] = id.SecurityStamp
	sess.Values[keySessionKey] = id.SessionKey
	return sess.Save(c.Request, c.Writer)
}

// SignOut expires the cookie, dropping any pending flashes with it.
func (m *Manager) SignOut(c *gin.Context) error {
	sess := m.session(c)
	sess.Values = map[interface{}]interface{}{}
	sess.Options = &sessions.Options{
		Path:     m.store.Options.Path,
		MaxAge:   -1,
		Secure:   m.store.Options.Secure,
		HttpOnly: true,
		SameSite: m.store.Options.SameSite,
	}
	return sess.Save(c.Request, c.Writer)
}

func (m *Manager) AddFlash(c *gin.Context, message string) error {
	sess := m.session(c)
	sess.AddFlash(message)
	return sess.Save(c.Request, c.Writer)
}

// Flashes pops pending messages. The cookie is rewritten only when there
// was something to pop.
func (m *Manager) Flashes(c *gin.Context) []string {
	sess := m.session(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		m.log.Warn("failed to save session after reading flashes", zap.Error(err))
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if msg, ok := item.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
