package db_test

import (
	"context"
	"errors"
	"testing"

	"social-im/internal/dbtest"
	"social-im/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
	Kind string
}

func newGateway(t *testing.T) *db.Gateway {
	t.Helper()
	return db.New(dbtest.Open(t, &widget{}))
}

func countWidgets(t *testing.T, g *db.Gateway) int64 {
	t.Helper()
	var n int64
	require.NoError(t, g.Conn(context.Background()).Model(&widget{}).Count(&n).Error)
	return n
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	err := g.Transaction(ctx, func(ctx context.Context) error {
		assert.True(t, db.InTransaction(ctx))
		return g.Conn(ctx).Create(&widget{Name: "a"}).Error
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, countWidgets(t, g))
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	g := newGateway(t)
	boom := errors.New("boom")

	err := g.Transaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, g.Conn(ctx).Create(&widget{Name: "a"}).Error)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, countWidgets(t, g))
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	g := newGateway(t)

	assert.Panics(t, func() {
		_ = g.Transaction(context.Background(), func(ctx context.Context) error {
			require.NoError(t, g.Conn(ctx).Create(&widget{Name: "a"}).Error)
			panic("boom")
		})
	})
	assert.EqualValues(t, 0, countWidgets(t, g))
}

func TestTransaction_NestedReusesOuterScope(t *testing.T) {
	g := newGateway(t)
	boom := errors.New("outer failed")

	err := g.Transaction(context.Background(), func(outer context.Context) error {
		innerErr := g.Transaction(outer, func(inner context.Context) error {
			return g.Conn(inner).Create(&widget{Name: "inner"}).Error
		})
		require.NoError(t, innerErr)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, countWidgets(t, g), "inner write must roll back with the outer scope")
}

func TestFindOne(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	require.NoError(t, g.Conn(ctx).Create(&[]widget{
		{Name: "a", Kind: "x"},
		{Name: "b", Kind: "y"},
		{Name: "c", Kind: "y"},
	}).Error)

	got, err := db.FindOne[widget](g.Conn(ctx), "name = ?", "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Kind)

	_, err = db.FindOne[widget](g.Conn(ctx), "name = ?", "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = db.FindOne[widget](g.Conn(ctx), "kind = ?", "y")
	assert.ErrorIs(t, err, db.ErrMultipleFound)
}

func TestFindMany(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	require.NoError(t, g.Conn(ctx).Create(&[]widget{
		{Name: "a", Kind: "y"},
		{Name: "b", Kind: "y"},
	}).Error)

	rows, err := db.FindMany[widget](g.Conn(ctx).Order("name"), "kind = ?", "y")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Name)

	rows, err = db.FindMany[widget](g.Conn(ctx), "kind = ?", "none")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestPing(t *testing.T) {
	g := newGateway(t)
	assert.NoError(t, g.Ping(context.Background()))
}
