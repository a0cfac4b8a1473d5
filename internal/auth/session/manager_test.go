package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(cookies []*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	c.Request = req
	return c, w
}

func TestSignInRoundTrip(t *testing.T) {
	m := newManager([]byte("0123456789abcdef0123456789abcdef"), false, 3600, zap.NewNop())

	c, w := newContext(nil)
	_, ok := m.Identity(c)
	assert.False(t, ok)

	require.NoError(t, m.SignIn(c, Identity{UserID: "u1", SecurityStamp: "s1", SessionKey: "k1"}))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	c, _ = newContext(cookies)
	id, ok := m.Identity(c)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "u1", SecurityStamp: "s1", SessionKey: "k1"}, id)
}

func TestSignOutExpiresCookie(t *testing.T) {
	m := newManager([]byte("0123456789abcdef0123456789abcdef"), false, 3600, zap.NewNop())

	c, w := newContext(nil)
	require.NoError(t, m.SignIn(c, Identity{UserID: "u1", SecurityStamp: "s1"}))

	c, w = newContext(w.Result().Cookies())
	require.NoError(t, m.SignOut(c))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestFlashesArePoppedOnce(t *testing.T) {
	m := newManager([]byte("0123456789abcdef0123456789abcdef"), false, 3600, zap.NewNop())

	c, w := newContext(nil)
	require.NoError(t, m.AddFlash(c, "Client updated successfully"))

	c, w2 := newContext(w.Result().Cookies())
	assert.Equal(t, []string{"Client updated successfully"}, m.Flashes(c))

	c, _ = newContext(w2.Result().Cookies())
	assert.Empty(t, m.Flashes(c))
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	m := newManager([]byte("0123456789abcdef0123456789abcdef"), false, 3600, zap.NewNop())
	other := newManager([]byte("fedcba9876543210fedcba9876543210"), false, 3600, zap.NewNop())

	c, w := newContext(nil)
	require.NoError(t, other.SignIn(c, Identity{UserID: "u1", SecurityStamp: "s1"}))

	c, _ = newContext(w.Result().Cookies())
	_, ok := m.Identity(c)
	assert.False(t, ok)
}

func TestNewManagerRequiresSecretInProduction(t *testing.T) {
	_, err := NewManager(config.Config{Environment: "production"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingSecret)

	m, err := NewManager(config.Config{Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultCookieName, m.CookieName())
}

// encodeFailing reads cookies normally but refuses to write them.
type encodeFailing struct {
	securecookie.GobEncoder
}

func (encodeFailing) Serialize(interface{}) ([]byte, error) {
	return nil, errors.New("serialize refused")
}

func TestFlashesLogsSaveFailure(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	writer := newManager(secret, false, 3600, zap.NewNop())
	c, w := newContext(nil)
	require.NoError(t, writer.AddFlash(c, "User updated successfully"))

	core, logs := observer.New(zap.WarnLevel)
	reader := newManager(secret, false, 3600, zap.New(core))
	for _, codec := range reader.store.Codecs {
		codec.(*securecookie.SecureCookie).SetSerializer(encodeFailing{})
	}

	c, _ = newContext(w.Result().Cookies())
	assert.Equal(t, []string{"User updated successfully"}, reader.Flashes(c))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to save session after reading flashes", logs.All()[0].Message)
}
