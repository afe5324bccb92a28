// Package apperr 定义业务错误类型，每种错误携带HTTP状态码与对外展示的detail文本。
package apperr

import (
	"errors"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindBlocked          Kind = "BLOCKED"
	KindAlreadyAddressed Kind = "ALREADY_ADDRESSED"
	KindAlreadyRequested Kind = "ALREADY_REQUESTED"
	KindAlreadyBlocked   Kind = "ALREADY_BLOCKED"
	KindCannotSend       Kind = "CANNOT_SEND"
	KindNotCancellable   Kind = "NOT_CANCELLABLE"
	KindSelfTarget       Kind = "SELF_TARGET"
	KindNotAFriend       Kind = "NOT_A_FRIEND"
	KindNotAMember       Kind = "NOT_A_MEMBER"
	KindNoTarget         Kind = "NO_TARGET"
	KindBadRequest       Kind = "BAD_REQUEST"
	KindInvalidCursor    Kind = "INVALID_CURSOR"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindInvalidEmail     Kind = "INVALID_EMAIL"
	KindAccountExists    Kind = "ACCOUNT_EXISTS"
	KindInvalidUsername  Kind = "INVALID_USERNAME"
	KindUsernameTaken    Kind = "USERNAME_TAKEN"
	KindInvalidPassword  Kind = "INVALID_PASSWORD"
	KindInternal         Kind = "INTERNAL"
)

// Error 业务错误
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按 Kind 与 Detail 匹配，Wrap 出来的错误仍然等于原哨兵
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Detail == t.Detail
}

// New 创建业务错误
func New(kind Kind, status int, detail string) *Error {
	return &Error{Kind: kind, Status: status, Detail: detail}
}

// Wrap 以哨兵错误为模板包装底层错误
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Status: sentinel.Status, Detail: sentinel.Detail, Err: err}
}

// As 提取 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrUserNotFound       = New(KindNotFound, http.StatusNotFound, "no such user exists")
	ErrFriendshipNotFound = New(KindNotFound, http.StatusNotFound, "friendship was not found")
	ErrGroupChatNotFound  = New(KindNotFound, http.StatusNotFound, "no such group chat exists")
	ErrMemberNotFound     = New(KindNotFound, http.StatusNotFound, "user not found")

	ErrBlocked          = New(KindBlocked, http.StatusBadRequest, "friendship is blocked")
	ErrAlreadyAddressed = New(KindAlreadyAddressed, http.StatusBadRequest, "friend request already addressed")
	ErrAlreadyRequested = New(KindAlreadyRequested, http.StatusBadRequest, "a friendship request was already sent")
	ErrAlreadyBlocked   = New(KindAlreadyBlocked, http.StatusBadRequest, "user is already blocked")
	ErrCannotSend       = New(KindCannotSend, http.StatusBadRequest, "you cannot send a friendship request")
	ErrNotCancellable   = New(KindNotCancellable, http.StatusBadRequest, "friendship request cannot be cancelled")
	ErrSelfTarget       = New(KindSelfTarget, http.StatusBadRequest, "cannot send friendship request to yourself")

	ErrNotAFriend      = New(KindNotAFriend, http.StatusBadRequest, "you cannot message this person if you are not their friend")
	ErrNotAMember      = New(KindNotAMember, http.StatusNotFound, "no such group chat exists")
	ErrNoTarget        = New(KindNoTarget, http.StatusBadRequest, "no addressee or groupchat specified")
	ErrAmbiguousTarget = New(KindBadRequest, http.StatusBadRequest, "cannot specify both an addressee and a groupchat")
	ErrEmptyContent    = New(KindBadRequest, http.StatusBadRequest, "message content is empty")
	ErrInvalidLimit    = New(KindBadRequest, http.StatusBadRequest, "invalid limit")
	ErrAlreadyMember   = New(KindBadRequest, http.StatusBadRequest, "user is already a member")
	ErrInvalidName     = New(KindBadRequest, http.StatusBadRequest, "invalid group chat name")
	ErrBadRequest      = New(KindBadRequest, http.StatusBadRequest, "bad request")

	ErrInvalidCursor = New(KindInvalidCursor, http.StatusBadRequest, "invalid cursor")

	ErrUnauthorized       = New(KindUnauthorized, http.StatusUnauthorized, "Could not validate credentials")
	ErrInvalidCredentials = New(KindUnauthorized, http.StatusUnauthorized, "invalid credentials")

	ErrInvalidEmail    = New(KindInvalidEmail, http.StatusBadRequest, "invalid email")
	ErrAccountExists   = New(KindAccountExists, http.StatusBadRequest, "account already exists")
	ErrInvalidUsername = New(KindInvalidUsername, http.StatusBadRequest, "invalid username")
	ErrUsernameTaken   = New(KindUsernameTaken, http.StatusBadRequest, "username is taken")
	ErrInvalidPassword = New(KindInvalidPassword, http.StatusBadRequest, "invalid password")

	ErrInternal = New(KindInternal, http.StatusInternalServerError, "internal server error")
)
