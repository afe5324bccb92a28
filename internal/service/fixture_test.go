package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"social-im/config"
	"social-im/internal/dbtest"
	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/internal/service"
	"social-im/pkg/db"
	"social-im/pkg/jwt"
	"social-im/pkg/password"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	password.Cost = bcrypt.MinCost
}

type emitted struct {
	UserID uint
	Event  string
	Data   interface{}
}

// recorder 记录推送的事件
type recorder struct {
	mu     sync.Mutex
	frames []emitted
}

func (r *recorder) EmitToRoom(userID uint, event string, data interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, emitted{UserID: userID, Event: event, Data: data})
	return 1
}

func (r *recorder) to(userID uint) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emitted
	for _, f := range r.frames {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out
}

type env struct {
	t        *testing.T
	gw       *db.Gateway
	users    *repository.UserRepository
	friends  *repository.FriendshipRepository
	messages *repository.MessageRepository
	groups   *repository.GroupChatRepository
	tokens   *jwt.JWTService
	emitter  *recorder

	userSvc      *service.UserService
	friendSvc    *service.FriendshipService
	messageSvc   *service.MessageService
	groupChatSvc *service.GroupChatService

	ids map[string]uint
}

func newEnv(t *testing.T, usernames ...string) *env {
	t.Helper()
	orm := dbtest.Open(t, model.All()...)
	require.NoError(t, db.Seed(context.Background(), orm, model.StatusCodes()))

	gw := db.New(orm)
	e := &env{
		gw:       gw,
		users:    repository.NewUserRepository(gw),
		friends:  repository.NewFriendshipRepository(gw),
		messages: repository.NewMessageRepository(gw),
		groups:   repository.NewGroupChatRepository(gw),
		tokens: jwt.NewJWTService(config.JWTConfig{
			Secret:          "test-secret",
			Issuer:          "social-im",
			ExpireTime:      15 * time.Minute,
			LoginExpireTime: 30 * time.Minute,
		}),
		emitter: &recorder{},
		ids:     map[string]uint{},
		t:       t,
	}
	e.userSvc = service.NewUserService(e.users, e.tokens)
	e.friendSvc = service.NewFriendshipService(gw, e.users, e.friends, nil)
	e.messageSvc = service.NewMessageService(gw, e.users, e.friends, e.messages, e.groups, e.emitter, nil)
	e.groupChatSvc = service.NewGroupChatService(gw, e.users, e.friends, e.groups)

	for _, name := range usernames {
		u := &model.User{Username: name, Email: name + "@x.io", PasswordHash: "h"}
		require.NoError(t, e.users.Create(context.Background(), u))
		e.ids[name] = u.ID
	}
	return e
}

// befriend alice 发请求，bob 接受
func (e *env) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.friendSvc.Send(ctx, e.ids[a], b)
	require.NoError(t, err)
	_, err = e.friendSvc.Accept(ctx, e.ids[b], a)
	require.NoError(t, err)
}

func (e *env) latest(t *testing.T, a, b string) *model.FriendshipStatus {
	t.Helper()
	h := e.friends.Handle()
	require.NoError(t, h.LoadBidirectional(context.Background(), e.ids[a], e.ids[b]))
	st, err := h.LatestStatus(context.Background())
	require.NoError(t, err)
	return st
}

func strPtr(s string) *string { return &s }

// staticPresence 固定的在线用户集合
type staticPresence map[uint]bool

func (p staticPresence) OnlineAmong(_ context.Context, ids []uint) ([]uint, error) {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if p[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func newFriendSvcWithPresence(e *env, p service.PresenceLookup) *service.FriendshipService {
	return service.NewFriendshipService(e.gw, e.users, e.friends, p)
}
