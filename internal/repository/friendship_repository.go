package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-im/internal/model"
	"social-im/pkg/apperr"
	"social-im/pkg/db"

	"gorm.io/gorm"
)

// FriendshipRepository 好友关系仓储：关系行、状态事件以及派生查询
type FriendshipRepository struct {
	gw *db.Gateway
}

// NewFriendshipRepository 创建FriendshipRepository实例
func NewFriendshipRepository(gw *db.Gateway) *FriendshipRepository {
	return &FriendshipRepository{gw: gw}
}

// Handle 返回一个未绑定关系行的句柄
func (r *FriendshipRepository) Handle() *FriendshipHandle {
	return &FriendshipHandle{repo: r}
}

// FriendshipHandle 绑定（至多）一条好友关系行，在其上读取最新状态、追加事件
type FriendshipHandle struct {
	repo       *FriendshipRepository
	Friendship *model.Friendship
}

// Bound 是否已绑定关系行
func (h *FriendshipHandle) Bound() bool {
	return h.Friendship != nil
}

// LoadDirected 按 (requester, addressee) 方向查找关系行
func (h *FriendshipHandle) LoadDirected(ctx context.Context, requesterID, addresseeID uint) error {
	f, err := db.FindOne[model.Friendship](h.repo.gw.Conn(ctx),
		"requester_id = ? AND addressee_id = ?", requesterID, addresseeID)
	return h.bind(f, err)
}

// LoadBidirectional 查找两人之间的关系行，不区分发起方
func (h *FriendshipHandle) LoadBidirectional(ctx context.Context, userA, userB uint) error {
	f, err := db.FindOne[model.Friendship](h.repo.gw.Conn(ctx),
		"((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?))",
		userA, userB, userB, userA)
	return h.bind(f, err)
}

func (h *FriendshipHandle) bind(f *model.Friendship, err error) error {
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.ErrFriendshipNotFound
		}
		return fmt.Errorf("load friendship: %w", err)
	}
	h.Friendship = f
	return nil
}

// LatestStatus 返回绑定关系的最新状态事件；未绑定或没有事件时返回 nil
func (h *FriendshipHandle) LatestStatus(ctx context.Context) (*model.FriendshipStatus, error) {
	if !h.Bound() {
		return nil, nil
	}
	return h.repo.latestFor(ctx, h.Friendship.RequesterID, h.Friendship.AddresseeID)
}

// RaiseIfBlocked 最新状态为 BLOCKED 时返回 apperr.ErrBlocked
func (h *FriendshipHandle) RaiseIfBlocked(ctx context.Context) error {
	latest, err := h.LatestStatus(ctx)
	if err != nil {
		return err
	}
	if latest != nil && latest.StatusCodeID == model.StatusBlocked {
		return apperr.ErrBlocked
	}
	return nil
}

// Create 创建关系行并绑定
func (h *FriendshipHandle) Create(ctx context.Context, requesterID, addresseeID uint) error {
	if requesterID == addresseeID {
		return apperr.ErrSelfTarget
	}
	f := &model.Friendship{RequesterID: requesterID, AddresseeID: addresseeID}
	if err := h.repo.gw.Conn(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create friendship: %w", err)
	}
	h.Friendship = f
	return nil
}

// AppendStatus 追加一条状态事件，不做任何状态检查。
// 时间戳取 max(now, 上一条 + 1µs)，同一对用户的事件时间严格递增。
func (h *FriendshipHandle) AppendStatus(ctx context.Context, requesterID, addresseeID, specifierID uint, code model.StatusCode) (*model.FriendshipStatus, error) {
	stamp := time.Now().UTC().Truncate(time.Microsecond)
	prev, err := h.repo.latestFor(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if prev != nil && !stamp.After(prev.SpecifiedDateTime) {
		stamp = prev.SpecifiedDateTime.UTC().Add(time.Microsecond)
	}

	ev := &model.FriendshipStatus{
		RequesterID:       requesterID,
		AddresseeID:       addresseeID,
		SpecifiedDateTime: stamp,
		StatusCodeID:      code,
		SpecifierID:       specifierID,
	}
	if err := h.repo.gw.Conn(ctx).Create(ev).Error; err != nil {
		return nil, fmt.Errorf("append friendship status: %w", err)
	}
	return ev, nil
}

// Delete 删除绑定的关系行及其全部历史事件
func (h *FriendshipHandle) Delete(ctx context.Context) error {
	if !h.Bound() {
		return apperr.ErrFriendshipNotFound
	}
	f := h.Friendship
	conn := h.repo.gw.Conn(ctx)
	if err := conn.Where("requester_id = ? AND addressee_id = ?", f.RequesterID, f.AddresseeID).
		Delete(&model.FriendshipStatus{}).Error; err != nil {
		return fmt.Errorf("delete friendship history: %w", err)
	}
	if err := h.repo.gw.Conn(ctx).Where("requester_id = ? AND addressee_id = ?", f.RequesterID, f.AddresseeID).
		Delete(&model.Friendship{}).Error; err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	h.Friendship = nil
	return nil
}

// History 按时间升序返回两人之间的全部事件
func (r *FriendshipRepository) History(ctx context.Context, requesterID, addresseeID uint) ([]model.FriendshipStatus, error) {
	return db.FindMany[model.FriendshipStatus](
		r.gw.Conn(ctx).Order("specified_date_time"),
		"requester_id = ? AND addressee_id = ?", requesterID, addresseeID)
}

func (r *FriendshipRepository) latestFor(ctx context.Context, requesterID, addresseeID uint) (*model.FriendshipStatus, error) {
	var rows []model.FriendshipStatus
	err := r.gw.Conn(ctx).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		Order("specified_date_time DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest friendship status: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// latestEvents 与 uid 相关的每对用户的最新事件（按 requester/addressee 分组取最大时间）
func (r *FriendshipRepository) latestEvents(conn *gorm.DB, uid uint) *gorm.DB {
	return conn.Model(&model.FriendshipStatus{}).
		Select("requester_id, addressee_id, MAX(specified_date_time) AS specified_date_time").
		Where("requester_id = ? OR addressee_id = ?", uid, uid).
		Group("requester_id, addressee_id")
}

const joinLatest = "JOIN (?) AS latest ON latest.requester_id = fs.requester_id" +
	" AND latest.addressee_id = fs.addressee_id" +
	" AND latest.specified_date_time = fs.specified_date_time"

// AcceptedFriends 最新状态为 ACCEPTED 的好友（app_user 行），唯一列 app_user.username
func (r *FriendshipRepository) AcceptedFriends(ctx context.Context, uid uint) *gorm.DB {
	return r.gw.Conn(ctx).Model(&model.User{}).
		Select("app_user.*").
		Joins("JOIN friendship_status AS fs ON ((fs.requester_id = ? AND fs.addressee_id = app_user.user_id) OR (fs.addressee_id = ? AND fs.requester_id = app_user.user_id))", uid, uid).
		Joins(joinLatest, r.latestEvents(r.gw.Conn(ctx), uid)).
		Where("fs.status_code_id = ?", model.StatusAccepted)
}

// RequestSenders 向 uid 发出且仍待处理的好友请求的发起人
func (r *FriendshipRepository) RequestSenders(ctx context.Context, uid uint) *gorm.DB {
	return r.gw.Conn(ctx).Model(&model.User{}).
		Select("app_user.*").
		Joins("JOIN friendship_status AS fs ON fs.requester_id = app_user.user_id AND fs.addressee_id = ?", uid).
		Joins(joinLatest, r.latestEvents(r.gw.Conn(ctx), uid)).
		Where("fs.status_code_id = ?", model.StatusRequested)
}

// RequestsSent uid 发出且仍待处理的好友请求（friendship 行），唯一列 friendship.addressee_id
func (r *FriendshipRepository) RequestsSent(ctx context.Context, uid uint) *gorm.DB {
	return r.gw.Conn(ctx).Model(&model.Friendship{}).
		Select("friendship.*").
		Joins("JOIN friendship_status AS fs ON fs.requester_id = friendship.requester_id AND fs.addressee_id = friendship.addressee_id").
		Joins(joinLatest, r.latestEvents(r.gw.Conn(ctx), uid)).
		Where("friendship.requester_id = ? AND fs.status_code_id = ?", uid, model.StatusRequested)
}

// AcceptedFriendIDs 好友ID列表，用于在线状态推送
func (r *FriendshipRepository) AcceptedFriendIDs(ctx context.Context, uid uint) ([]uint, error) {
	var ids []uint
	err := r.AcceptedFriends(ctx, uid).
		Select("app_user.user_id").
		Order("app_user.user_id").
		Pluck("app_user.user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("accepted friend ids: %w", err)
	}
	return ids, nil
}

// AreFriends 两人最新状态是否为 ACCEPTED
func (r *FriendshipRepository) AreFriends(ctx context.Context, userA, userB uint) (bool, error) {
	h := r.Handle()
	if err := h.LoadBidirectional(ctx, userA, userB); err != nil {
		if errors.Is(err, apperr.ErrFriendshipNotFound) {
			return false, nil
		}
		return false, err
	}
	latest, err := h.LatestStatus(ctx)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.StatusCodeID == model.StatusAccepted, nil
}
