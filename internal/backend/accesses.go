package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// ListAccesses はアクセスカタログの一覧をページネーション付きで取得する。管理者認証が必要。
func (c *Client) ListAccesses(ctx context.Context, limit, offset int) (*model.AccessList, error) {
	data, err := c.Do(ctx, http.MethodGet,
		fmt.Sprintf("/admin/accesses?limit=%d&offset=%d", limit, offset),
		nil, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	list := &model.AccessList{}
	if err := json.Unmarshal(data, list); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "アクセス一覧レスポンスのパースに失敗しました。"}
	}
	return list, nil
}

// GetAccess は指定IDのアクセスを取得する。管理者認証が必要。
func (c *Client) GetAccess(ctx context.Context, accessID int64) (*model.Access, error) {
	data, err := c.Do(ctx, http.MethodGet,
		fmt.Sprintf("/admin/accesses/%d", accessID),
		nil, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	access := &model.Access{}
	if err := json.Unmarshal(data, access); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "アクセスレスポンスのパースに失敗しました。"}
	}
	return access, nil
}

// CreateAccessRequest はアクセス作成リクエストのボディ。
type CreateAccessRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	RenewalPeriod *int   `json:"renewal_period,omitempty"`
}

// CreateAccess はアクセスカタログに新しいアクセスを作成する。管理者認証が必要。
func (c *Client) CreateAccess(ctx context.Context, req CreateAccessRequest) (*model.Access, error) {
	data, err := c.Do(ctx, http.MethodPost, "/admin/accesses", req, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	access := &model.Access{}
	if err := json.Unmarshal(data, access); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "アクセスレスポンスのパースに失敗しました。"}
	}
	return access, nil
}

// UpdateAccessRequest はアクセス更新リクエストのボディ。未設定フィールドは変更されない。
type UpdateAccessRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	RenewalPeriod *int    `json:"renewal_period,omitempty"`
}

// UpdateAccess は既存アクセスを部分更新する。管理者認証が必要。
func (c *Client) UpdateAccess(ctx context.Context, accessID int64, req UpdateAccessRequest) (*model.Access, error) {
	data, err := c.Do(ctx, http.MethodPatch,
		fmt.Sprintf("/admin/accesses/%d", accessID),
		req, &RequestOptions{AdminAuth: true})
	if err != nil {
		return nil, err
	}
	access := &model.Access{}
	if err := json.Unmarshal(data, access); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "アクセスレスポンスのパースに失敗しました。"}
	}
	return access, nil
}

// DeleteAccess はアクセスとその全割り当てを削除する。管理者認証が必要。
func (c *Client) DeleteAccess(ctx context.Context, accessID int64) error {
	_, err := c.Do(ctx, http.MethodDelete,
		fmt.Sprintf("/admin/accesses/%d", accessID),
		nil, &RequestOptions{AdminAuth: true})
	return err
}

// GetUserAccesses は指定ユーザーに割り当てられたアクセス一覧を取得する。
// usernameはX-Usernameヘッダーとして送信され、バックエンドが本人確認を行う。
func (c *Client) GetUserAccesses(ctx context.Context, userID int64, username string) (*model.UserAccessList, error) {
	data, err := c.Do(ctx, http.MethodGet,
		fmt.Sprintf("/users/%d/accesses", userID),
		nil, &RequestOptions{Username: username})
	if err != nil {
		return nil, err
	}
	list := &model.UserAccessList{}
	if err := json.Unmarshal(data, list); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "ユーザーアクセス一覧レスポンスのパースに失敗しました。"}
	}
	return list, nil
}

// grantAccessRequest はアクセス付与リクエストのボディ。
type grantAccessRequest struct {
	AccessName string `json:"access_name"`
}

// GrantAccess は指定ユーザーにアクセスを名前で付与する（自動承認）。
func (c *Client) GrantAccess(ctx context.Context, userID int64, accessName, username string) (*model.Access, error) {
	data, err := c.Do(ctx, http.MethodPost,
		fmt.Sprintf("/users/%d/accesses", userID),
		grantAccessRequest{AccessName: accessName},
		&RequestOptions{Username: username})
	if err != nil {
		return nil, err
	}
	access := &model.Access{}
	if err := json.Unmarshal(data, access); err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: "アクセスレスポンスのパースに失敗しました。"}
	}
	return access, nil
}

// RevokeAccess は指定ユーザーからアクセス割り当てを解除する。
func (c *Client) RevokeAccess(ctx context.Context, userID, accessID int64, username string) error {
	_, err := c.Do(ctx, http.MethodDelete,
		fmt.Sprintf("/users/%d/accesses/%d", userID, accessID),
		nil, &RequestOptions{Username: username})
	return err
}

// AnalyticsQueryRequest は分析クエリリクエストのボディ。SELECT文のみ許可される。
type AnalyticsQueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ExecuteAnalyticsQuery は分析用のSELECTクエリをバックエンドで実行する。管理者認証が必要。
// 結果の構造（columns/rows/row_count）はバックエンド所有のため、パースせずraw JSONを転送する。
func (c *Client) ExecuteAnalyticsQuery(ctx context.Context, req AnalyticsQueryRequest) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, "/admin/analytics/query", req, &RequestOptions{AdminAuth: true})
}
