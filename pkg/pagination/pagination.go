// Package pagination 实现基于游标的双向分页。
//
// 游标格式为 "<prev|next>___<value>"，value 是锚点行唯一列的文本值。
// 无论向前还是向后翻页，结果总是按唯一列升序返回。
package pagination

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"social-im/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// State 翻页方向
type State string

const (
	StatePrev State = "prev"
	StateNext State = "next"
)

const (
	separator    = "___"
	DefaultLimit = 10
	MaxLimit     = 100
)

var cursorPattern = regexp.MustCompile(`^(prev|next)___(.+)$`)

// Cursor 解析后的游标
type Cursor struct {
	State State
	Value string
}

// ParseCursor 解析游标字符串，空串等价于 ("next", "")
func ParseCursor(raw string) (Cursor, error) {
	if raw == "" {
		return Cursor{State: StateNext}, nil
	}
	m := cursorPattern.FindStringSubmatch(raw)
	if m == nil {
		return Cursor{}, apperr.ErrInvalidCursor
	}
	return Cursor{State: State(m[1]), Value: m[2]}, nil
}

// String 编码游标
func (c Cursor) String() string {
	return string(c.State) + separator + c.Value
}

// ParseLimit 解析每页条数，空串取默认值
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLimit {
		return 0, apperr.ErrInvalidLimit
	}
	return n, nil
}

// Column 分页所依据的唯一列
type Column[T any] struct {
	// Name 带表名的列名，例如 app_user.username
	Name string
	// Key 取出行在该列上的文本值
	Key func(T) string
	// Bind 把游标中的文本值转换成比较用的值，为空时按字符串比较
	Bind func(string) (interface{}, error)
}

// PageCursor 相邻页的游标，没有相邻页时为 null
type PageCursor struct {
	PrevPage *string `json:"prev_page"`
	NextPage *string `json:"next_page"`
}

// Page 一页结果
type Page[T any] struct {
	Cursor  PageCursor `json:"cursor"`
	Results []T        `json:"results"`
}

// Paginate 在关系 q 上按列 col 与游标 cur 取一页，最多 limit 条
func Paginate[T any](q *gorm.DB, col Column[T], cur Cursor, limit int) (*Page[T], error) {
	if limit < 1 {
		return nil, apperr.ErrInvalidLimit
	}
	backward := cur.State == StatePrev

	if cur.Value != "" {
		var value interface{} = cur.Value
		if col.Bind != nil {
			v, err := col.Bind(cur.Value)
			if err != nil {
				return nil, apperr.Wrap(apperr.ErrInvalidCursor, err)
			}
			value = v
		}
		op := ">"
		if backward {
			op = "<"
		}
		q = q.Where(fmt.Sprintf("%s %s ?", col.Name, op), value)
	}

	// 向后翻页时倒序，LIMIT 才能截取到靠近锚点的一侧
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col.Name, Raw: true}, Desc: backward})

	rows := make([]T, 0, limit+1)
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("paginate %s: %w", col.Name, err)
	}
	if backward {
		slices.Reverse(rows)
	}

	page := &Page[T]{Results: make([]T, 0, limit)}
	n := len(rows)
	switch {
	case n == 0:
	case n < limit+1:
		page.Results = rows
		switch {
		case backward:
			page.Cursor.NextPage = encode(StateNext, col.Key(rows[n-1]))
		case cur.Value != "":
			page.Cursor.PrevPage = encode(StatePrev, col.Key(rows[0]))
		}
	case backward:
		page.Cursor.PrevPage = encode(StatePrev, col.Key(rows[1]))
		page.Cursor.NextPage = encode(StateNext, col.Key(rows[limit]))
		page.Results = rows[1:]
	default:
		page.Cursor.NextPage = encode(StateNext, col.Key(rows[limit-1]))
		if cur.Value != "" {
			page.Cursor.PrevPage = encode(StatePrev, col.Key(rows[0]))
		}
		page.Results = rows[:limit]
	}
	return page, nil
}

// BindUint 整数主键列的 Bind
func BindUint(raw string) (interface{}, error) {
	return strconv.ParseUint(raw, 10, 64)
}

// KeyUint 整数主键的文本值
func KeyUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func encode(state State, value string) *string {
	s := Cursor{State: state, Value: value}.String()
	return &s
}

// Map 转换结果类型，游标保持不变
func Map[T, U any](p *Page[T], f func(T) U) *Page[U] {
	out := &Page[U]{Cursor: p.Cursor, Results: make([]U, 0, len(p.Results))}
	for _, r := range p.Results {
		out.Results = append(out.Results, f(r))
	}
	return out
}
