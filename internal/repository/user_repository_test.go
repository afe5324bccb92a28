package repository_test

import (
	"context"
	"testing"

	"social-im/internal/dbtest"
	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestUserRepository_LockPair(t *testing.T) {
	orm := dbtest.Open(t, model.All()...)
	var locks []string
	require.NoError(t, orm.Callback().Query().Before("gorm:query").Register("test:locking", func(tx *gorm.DB) {
		if c, ok := tx.Statement.Clauses["FOR"]; ok {
			if l, ok := c.Expression.(clause.Locking); ok {
				locks = append(locks, l.Strength)
			}
		}
	}))

	gw := db.New(orm)
	users := repository.NewUserRepository(gw)
	ctx := context.Background()
	alice := &model.User{Username: "alice", Email: "alice@x.io", PasswordHash: "h"}
	bob := &model.User{Username: "bob", Email: "bob@x.io", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	// 事务外加锁没有意义
	assert.Error(t, users.LockPair(ctx, bob.ID, alice.ID))
	assert.Empty(t, locks)

	err := gw.Transaction(ctx, func(ctx context.Context) error {
		return users.LockPair(ctx, bob.ID, alice.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"UPDATE"}, locks)
}
