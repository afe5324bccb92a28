package pagination_test

import (
	"fmt"
	"math/rand"
	"testing"

	"social-im/internal/dbtest"
	"social-im/pkg/apperr"
	"social-im/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type item struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:32"`
}

var (
	byName = pagination.Column[item]{
		Name: "item.name",
		Key:  func(i item) string { return i.Name },
	}
	byID = pagination.Column[item]{
		Name: "item.id",
		Key:  func(i item) string { return pagination.KeyUint(i.ID) },
		Bind: pagination.BindUint,
	}
)

func seed(t *testing.T, names ...string) *gorm.DB {
	t.Helper()
	orm := dbtest.Open(t, &item{})
	for _, n := range names {
		require.NoError(t, orm.Create(&item{Name: n}).Error)
	}
	return orm
}

func page(t *testing.T, orm *gorm.DB, col pagination.Column[item], raw string, limit int) *pagination.Page[item] {
	t.Helper()
	cur, err := pagination.ParseCursor(raw)
	require.NoError(t, err)
	p, err := pagination.Paginate(orm.Model(&item{}), col, cur, limit)
	require.NoError(t, err)
	return p
}

func names(p *pagination.Page[item]) []string {
	out := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		out = append(out, r.Name)
	}
	return out
}

func str(s string) *string { return &s }

func TestParseCursor(t *testing.T) {
	tests := []struct {
		raw     string
		want    pagination.Cursor
		wantErr bool
	}{
		{raw: "", want: pagination.Cursor{State: pagination.StateNext}},
		{raw: "next___u2", want: pagination.Cursor{State: pagination.StateNext, Value: "u2"}},
		{raw: "prev___42", want: pagination.Cursor{State: pagination.StatePrev, Value: "42"}},
		{raw: "next___a___b", want: pagination.Cursor{State: pagination.StateNext, Value: "a___b"}},
		{raw: "next___", wantErr: true},
		{raw: "next__u2", wantErr: true},
		{raw: "forward___u2", wantErr: true},
		{raw: "NEXT___u2", wantErr: true},
		{raw: "u2", wantErr: true},
		{raw: " next___u2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := pagination.ParseCursor(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidCursor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLimit(t *testing.T) {
	n, err := pagination.ParseLimit("")
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, n)

	n, err = pagination.ParseLimit("25")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, raw := range []string{"0", "-1", "101", "ten"} {
		_, err := pagination.ParseLimit(raw)
		assert.ErrorIs(t, err, apperr.ErrInvalidLimit, raw)
	}
}

func TestPaginate_FiveUsernamesLimitTwo(t *testing.T) {
	orm := seed(t, "u3", "u1", "u5", "u2", "u4")

	p := page(t, orm, byName, "", 2)
	assert.Equal(t, []string{"u1", "u2"}, names(p))
	assert.Nil(t, p.Cursor.PrevPage)
	assert.Equal(t, str("next___u2"), p.Cursor.NextPage)

	p = page(t, orm, byName, "next___u2", 2)
	assert.Equal(t, []string{"u3", "u4"}, names(p))
	assert.Equal(t, str("prev___u3"), p.Cursor.PrevPage)
	assert.Equal(t, str("next___u4"), p.Cursor.NextPage)

	p = page(t, orm, byName, "next___u4", 2)
	assert.Equal(t, []string{"u5"}, names(p))
	assert.Equal(t, str("prev___u5"), p.Cursor.PrevPage)
	assert.Nil(t, p.Cursor.NextPage)

	p = page(t, orm, byName, "prev___u5", 2)
	assert.Equal(t, []string{"u3", "u4"}, names(p))
	assert.Equal(t, str("prev___u3"), p.Cursor.PrevPage)
	assert.Equal(t, str("next___u4"), p.Cursor.NextPage)

	p = page(t, orm, byName, "prev___u3", 2)
	assert.Equal(t, []string{"u1", "u2"}, names(p))
	assert.Nil(t, p.Cursor.PrevPage)
	assert.Equal(t, str("next___u2"), p.Cursor.NextPage)
}

func TestPaginate_EmptyAndSinglePage(t *testing.T) {
	orm := seed(t)
	p := page(t, orm, byName, "", 3)
	assert.Empty(t, p.Results)
	assert.NotNil(t, p.Results)
	assert.Nil(t, p.Cursor.PrevPage)
	assert.Nil(t, p.Cursor.NextPage)

	orm = seed(t, "a", "b")
	p = page(t, orm, byName, "", 3)
	assert.Equal(t, []string{"a", "b"}, names(p))
	assert.Nil(t, p.Cursor.PrevPage)
	assert.Nil(t, p.Cursor.NextPage)
}

func TestPaginate_BindFailureIsInvalidCursor(t *testing.T) {
	orm := seed(t, "a")
	cur, err := pagination.ParseCursor("next___abc")
	require.NoError(t, err)

	_, err = pagination.Paginate(orm.Model(&item{}), byID, cur, 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidCursor)
}

func TestPaginate_IntegerColumnOrdersNumerically(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("n%02d", i)
	}
	orm := seed(t, names...)

	p := page(t, orm, byID, "next___9", 5)
	require.Len(t, p.Results, 3)
	assert.EqualValues(t, 10, p.Results[0].ID)
	assert.EqualValues(t, 12, p.Results[2].ID)
	assert.Equal(t, str("prev___10"), p.Cursor.PrevPage)
	assert.Nil(t, p.Cursor.NextPage)
}

// 顺着 next 走完应恰好访问每一行一次，再顺着 prev 走回来得到相同的页
func TestPaginate_ClosedOrbit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 12; round++ {
		size := rng.Intn(17)
		limit := 1 + rng.Intn(5)
		t.Run(fmt.Sprintf("size=%d/limit=%d", size, limit), func(t *testing.T) {
			all := make([]string, size)
			for i := range all {
				all[i] = fmt.Sprintf("row%03d", i)
			}
			orm := seed(t, shuffled(rng, all)...)

			var forward [][]string
			var seen []string
			raw := ""
			for {
				p := page(t, orm, byName, raw, limit)
				assertBoundaries(t, all, p)
				if len(p.Results) > 0 {
					forward = append(forward, names(p))
				}
				seen = append(seen, names(p)...)
				if p.Cursor.NextPage == nil {
					if p.Cursor.PrevPage != nil {
						raw = *p.Cursor.PrevPage
					} else {
						raw = ""
					}
					break
				}
				raw = *p.Cursor.NextPage
			}
			assert.Equal(t, all, append([]string{}, seen...))

			if len(forward) < 2 {
				return
			}
			// 从最后一页的 prev 游标往回走
			var backward [][]string
			for raw != "" {
				p := page(t, orm, byName, raw, limit)
				assertBoundaries(t, all, p)
				backward = append(backward, names(p))
				if p.Cursor.PrevPage == nil {
					break
				}
				raw = *p.Cursor.PrevPage
			}
			var back []string
			for i := len(backward) - 1; i >= 0; i-- {
				back = append(back, backward[i]...)
			}
			last := forward[len(forward)-1]
			assert.Equal(t, all[:len(all)-len(last)], back)
		})
	}
}

// next 非空当且仅当存在大于结果最大值的行；prev 同理
func assertBoundaries(t *testing.T, all []string, p *pagination.Page[item]) {
	t.Helper()
	if len(p.Results) == 0 {
		return
	}
	got := names(p)
	minV, maxV := got[0], got[len(got)-1]
	var below, above bool
	for _, v := range all {
		if v < minV {
			below = true
		}
		if v > maxV {
			above = true
		}
	}
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "results must be ascending")
	}
	assert.Equal(t, above, p.Cursor.NextPage != nil, "next cursor for %v", got)
	if p.Cursor.PrevPage != nil {
		assert.True(t, below, "prev cursor without rows below %v", got)
	}
}

func shuffled(rng *rand.Rand, in []string) []string {
	out := append([]string{}, in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
