// Package model はドメインモデルを定義する。
package model

import "time"

// User はバックエンドAPIが所有するユーザーレコードを表す。
// 本アプリはCRUD操作の転送と表示のみを行い、独自の不変条件は持たない。
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Access はユーザーに割り当て可能なアクセス権限レコードを表す。
// 名前は大文字とアンダースコアのみの識別子（例: "READ_DOCUMENTS"）。
type Access struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	RenewalPeriod *int      `json:"renewal_period,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserList はバックエンドのページネーション付きユーザー一覧レスポンス。
type UserList struct {
	Users  []User `json:"users"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// AccessList はバックエンドのページネーション付きアクセス一覧レスポンス。
type AccessList struct {
	Accesses []Access `json:"accesses"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

// UserAccessList はユーザーに割り当てられたアクセスの一覧レスポンス。
type UserAccessList struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Accesses []Access `json:"accesses"`
	Total    int      `json:"total"`
}
