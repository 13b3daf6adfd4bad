package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// listPageSize はユーザー名検索時に1回で取得する件数（バックエンドの上限）。
const listPageSize = 100

// ListUsers は全ユーザーの一覧をページネーション付きで取得する。管理者認証が必要。
func (c *Client) ListUsers(ctx context.Context, limit, offset int) (*model.UserList, error) {
	data, err := c.Do(ctx, http.MethodGet,
		fmt.Sprintf("/admin/users?limit=%d&offset=%d", limit, offset),
		nil, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	list := &model.UserList{}
	if err := json.Unmarshal(data, list); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "ユーザー一覧レスポンスのパースに失敗しました。"}
	}
	return list, nil
}

// GetUser は指定IDのユーザーを取得する。管理者認証が必要。
// 割り当て操作などでの対象ユーザー解決はこのIDダイレクト取得を使用し、
// 一覧の全件走査は行わない。
func (c *Client) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	data, err := c.Do(ctx, http.MethodGet,
		fmt.Sprintf("/admin/users/%d", userID),
		nil, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "ユーザーレスポンスのパースに失敗しました。"}
	}
	return user, nil
}

// FindUserByUsername はユーザー名からユーザーを検索する。
// バックエンドはユーザー名での直接検索を提供しないため、
// 一覧をページ単位で取得して照合する（ログイン時のみ使用）。
// 見つからない場合はnil, nilを返す。
func (c *Client) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	offset := 0
	for {
		list, err := c.ListUsers(ctx, listPageSize, offset)
		if err != nil {
			return nil, err
		}
		for i := range list.Users {
			if list.Users[i].Username == username {
				return &list.Users[i], nil
			}
		}
		offset += len(list.Users)
		if offset >= list.Total || len(list.Users) == 0 {
			return nil, nil
		}
	}
}

// CreateUserRequest はユーザー作成リクエストのボディ。
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUser は新しいユーザーを作成する。管理者認証が必要。
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	data, err := c.Do(ctx, http.MethodPost, "/admin/users", req, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "ユーザーレスポンスのパースに失敗しました。"}
	}
	return user, nil
}

// UpdateUserRequest はユーザー更新リクエストのボディ。未設定フィールドは変更されない。
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateUser は既存ユーザーを部分更新する。管理者認証が必要。
func (c *Client) UpdateUser(ctx context.Context, userID int64, req UpdateUserRequest) (*model.User, error) {
	data, err := c.Do(ctx, http.MethodPatch,
		fmt.Sprintf("/admin/users/%d", userID),
		req, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "ユーザーレスポンスのパースに失敗しました。"}
	}
	return user, nil
}

// DeleteUser はユーザーと紐付くアクセス割り当てを削除する。管理者認証が必要。
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	_, err := c.Do(ctx, http.MethodDelete,
		fmt.Sprintf("/admin/users/%d", userID),
		nil, &RequestOptions{AdminAuth: true})
	return err
}
