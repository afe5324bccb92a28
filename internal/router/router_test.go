package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"social-im/config"
	"social-im/internal/dbtest"
	"social-im/internal/model"
	"social-im/internal/router"
	"social-im/pkg/db"
	"social-im/pkg/events"
	"social-im/pkg/jwt"
	"social-im/pkg/password"
	"social-im/pkg/response"
	"social-im/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	password.Cost = bcrypt.MinCost
}

type app struct {
	t      *testing.T
	engine *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	orm := dbtest.Open(t, model.All()...)
	require.NoError(t, db.Seed(context.Background(), orm, model.StatusCodes()))

	engine := router.New(router.Deps{
		Gateway: db.New(orm),
		JWT: jwt.NewJWTService(config.JWTConfig{
			Secret:          "test-secret",
			Issuer:          "social-im",
			ExpireTime:      15 * time.Minute,
			LoginExpireTime: 30 * time.Minute,
		}),
		Manager:    websocket.NewManager(),
		Aggregator: events.New(),
		WebSocket: config.WebSocketConfig{
			PingInterval: time.Minute,
			ReadTimeout:  time.Minute,
			SendQueue:    16,
			TokenCookie:  "access_token",
		},
	})
	return &app{t: t, engine: engine}
}

func (a *app) do(method, path, token string, body string, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// signUp 注册并返回令牌
func (a *app) signUp(username string) string {
	a.t.Helper()
	form := url.Values{"username": {username + "@x.io"}, "password": {"Aaaa1111"}}
	w := a.do(http.MethodPost, "/auth/sign-up?username="+username, "", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var tok response.Token
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(a.t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func (a *app) befriend(fromTok, fromName, toTok, toName string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/friends/requests/send-request?username="+toName, fromTok, "", "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/friends/requests/accept?requester_username="+fromName, toTok, "", "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

func TestSignUpThenSelfView(t *testing.T) {
	a := newApp(t)
	tok := a.signUp("alice")

	w := a.do(http.MethodGet, "/users/", tok, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1,"username":"alice","email":"alice@x.io"}`, w.Body.String())

	w = a.do(http.MethodGet, "/users/", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Could not validate credentials", detail(t, w))

	form := url.Values{"email": {"alice@x.io"}, "password": {"Aaaa1111"}}
	w = a.do(http.MethodPost, "/auth/sign-in", "", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusCreated, w.Code)

	form = url.Values{"email": {"nobody@x.io"}, "password": {"Aaaa1111"}}
	w = a.do(http.MethodPost, "/auth/sign-in", "", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusNotFound, w.Code)

	form = url.Values{"email": {"alice@x.io"}, "password": {"nope"}}
	w = a.do(http.MethodPost, "/auth/sign-in", "", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", detail(t, w))

	form = url.Values{"username": {"alice@x.io"}, "password": {"Aaaa1111"}}
	w = a.do(http.MethodPost, "/auth/sign-up?username=alice2", "", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "account already exists", detail(t, w))
}

func TestFriendRequestLifecycle(t *testing.T) {
	a := newApp(t)
	alice := a.signUp("alice")
	bob := a.signUp("bob")

	w := a.do(http.MethodPost, "/friends/requests/send-request?username=bob", alice, "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var f model.Friendship
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	assert.EqualValues(t, 1, f.RequesterID)
	assert.EqualValues(t, 2, f.AddresseeID)

	w = a.do(http.MethodGet, "/friends/requests/senders?limit=10", bob, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = a.do(http.MethodPost, "/friends/requests/accept?requester_username=alice", bob, "", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodGet, "/friends/requests/accepted?limit=10", alice, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cursor":{"prev_page":null,"next_page":null},"results":[{"user_id":2,"username":"bob","email":"bob@x.io"}]}`, w.Body.String())

	w = a.do(http.MethodPost, "/friends/requests/accept?requester_username=alice", bob, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/friends/requests/accepted?cursor=bogus", alice, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid cursor", detail(t, w))

	w = a.do(http.MethodDelete, "/friends/requests?friend_username=bob", alice, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodDelete, "/friends/requests?friend_username=bob", alice, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlockShortCircuit(t *testing.T) {
	a := newApp(t)
	alice := a.signUp("alice")
	bob := a.signUp("bob")

	w := a.do(http.MethodPost, "/friends/requests/send-request?username=bob", alice, "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = a.do(http.MethodPost, "/friends/requests/block?user_to_block_username=alice", bob, "", "")
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{
		"/friends/requests/accept?requester_username=bob",
		"/friends/requests/decline?requester_username=bob",
		"/friends/requests/send-request?username=bob",
	} {
		w = a.do(http.MethodPost, path, alice, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "friendship is blocked", detail(t, w), path)
	}

	w = a.do(http.MethodPost, "/friends/requests/block?user_to_block_username=alice", bob, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user is already blocked", detail(t, w))
}

func TestMessageAuthorization(t *testing.T) {
	a := newApp(t)
	alice := a.signUp("alice")
	a.signUp("bob")
	carol := a.signUp("carol")

	w := a.do(http.MethodPost, "/messages/?addressee_username=carol", alice, `{"content":"hi"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "you cannot message this person if you are not their friend", detail(t, w))

	a.befriend(alice, "alice", carol, "carol")
	w = a.do(http.MethodPost, "/messages/?addressee_username=carol", alice, `{"content":"hi"}`, "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var msg model.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "hi", msg.Content)
	require.NotNil(t, msg.RecieverID)
	assert.EqualValues(t, 3, *msg.RecieverID)

	w = a.do(http.MethodPost, "/messages/", alice, `{"content":"hi"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no addressee or groupchat specified", detail(t, w))

	w = a.do(http.MethodPost, "/messages/", alice, `{"content":"hi","group_chat_id":99}`, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/messages/unread-count", carol, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread_count":1}`, w.Body.String())

	w = a.do(http.MethodGet, "/messages/?sender_username=alice", carol, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hi"`)

	w = a.do(http.MethodPost, "/messages/seen?sender_username=alice", carol, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())
}

func TestGroupChatRoutes(t *testing.T) {
	a := newApp(t)
	alice := a.signUp("alice")
	bob := a.signUp("bob")
	a.befriend(alice, "alice", bob, "bob")

	w := a.do(http.MethodPost, "/group-chats/", alice, `{"name":"team"}`, "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var gc model.GroupChat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gc))

	w = a.do(http.MethodPost, "/group-chats/1/members?username=bob", alice, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/messages/", bob, `{"content":"hello","group_chat_id":1}`, "application/json")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)
	w := a.do(http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
	assert.Contains(t, w.Body.String(), `"async_running":0`)

	w = a.do(http.MethodGet, "/metrics", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
