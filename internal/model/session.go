// Package model はドメインモデルを定義する。
package model

import "time"

// Role はセッションに紐付くユーザーの権限ロールを表す。
type Role string

const (
	// RoleAdmin は管理者ロール。管理画面と管理APIにアクセスできる。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザーロール。自分自身のリソースのみ操作できる。
	RoleUser Role = "user"
)

// SessionUser はセッションに格納される認証済みユーザーの情報を表す。
type SessionUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	IsAdmin   bool      `json:"isAdmin"`
}

// Session はCookieで運搬される認証済みセッションを表す。
// 不変条件: ExpiresAt = CreatedAt + セッション有効期間（デフォルト7日）。
type Session struct {
	User      SessionUser `json:"user"`
	Role      Role        `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Expired はセッションが指定時刻時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// HasRequiredFields はデコード結果が必須フィールド（role, expiresAt）を
// 持っているかどうかを返す。欠落している場合は「セッション無し」として扱う。
func (s *Session) HasRequiredFields() bool {
	return s.Role != "" && !s.ExpiresAt.IsZero()
}
