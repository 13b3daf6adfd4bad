package session

import (
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// DefaultMaxAge はセッションのデフォルト有効期間（7日）。
const DefaultMaxAge = 7 * 24 * time.Hour

// AdminUsername はadminロールが付与されるユーザー名。
const AdminUsername = "admin"

// New は認証済みユーザーから新しいセッションを生成する。
// 不変条件: ExpiresAt = CreatedAt + maxAge。
// ロールはユーザー名が "admin" の場合にのみadminとなる。
func New(user model.SessionUser, maxAge time.Duration, now time.Time) *model.Session {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	role := model.RoleUser
	if user.Username == AdminUsername {
		role = model.RoleAdmin
		user.IsAdmin = true
	}
	createdAt := now.UTC()
	return &model.Session{
		User:      user,
		Role:      role,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(maxAge),
	}
}
