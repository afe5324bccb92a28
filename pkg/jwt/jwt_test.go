package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social-im/config"

	"github.com/gin-gonic/gin"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "social-im",
		ExpireTime:      15 * time.Minute,
		LoginExpireTime: 30 * time.Minute,
	})
}

func TestLoginToken_RoundTrip(t *testing.T) {
	s := newService()
	token, err := s.GenerateLoginToken(1, "alice", "a@x.io")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.io", claims.Email)
	ttl := time.Until(claims.ExpiresAt.Time)
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)
}

func TestDefaultToken_UsesShortExpiry(t *testing.T) {
	s := newService()
	token, err := s.GenerateToken(1, "alice", "a@x.io")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.InDelta(t, (15 * time.Minute).Seconds(), time.Until(claims.ExpiresAt.Time).Seconds(), 5)
}

func TestValidateToken_Rejects(t *testing.T) {
	s := newService()

	expired, err := s.Issue(1, "alice", "a@x.io", -time.Minute)
	require.NoError(t, err)
	_, err = s.ValidateToken(expired)
	assert.Error(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "other", Issuer: "social-im", ExpireTime: time.Minute})
	forged, err := other.GenerateToken(1, "alice", "a@x.io")
	require.NoError(t, err)
	_, err = s.ValidateToken(forged)
	assert.Error(t, err)

	none := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, &CustomClaims{UserID: 1})
	unsigned, err := none.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateToken(unsigned)
	assert.Error(t, err)

	_, err = s.ValidateToken("")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newService()
	r := gin.New()
	r.GET("/me", s.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "username": GetClaims(c).Username})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := s.GenerateLoginToken(7, "bob", "b@x.io")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"username":"bob"}`, w.Body.String())
}
