// Package agent はチャットエージェントAPIへのクライアントを提供する。
package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
)

// ChatRequest はエージェントへのチャット送信リクエスト。
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse はエージェントからのチャット応答。
// SessionIDが返された場合、以降のリクエストはそのIDを使用する。
type ChatResponse struct {
	Response        string   `json:"response"`
	SessionID       string   `json:"session_id,omitempty"`
	ToolsUsed       []string `json:"tools_used,omitempty"`
	AccessesGranted []string `json:"accesses_granted,omitempty"`
}

// HealthStatus はエージェントのヘルスチェック結果。
type HealthStatus struct {
	Status string `json:"status"`
}

// Client はチャットエージェントAPIへのクライアント。
// リトライとエラー分類はバックエンドクライアントの機構をそのまま使用する。
type Client struct {
	backend *backend.Client
	timeout time.Duration
}

// NewClient はClientを生成する。
// timeoutはエージェント応答生成の遅さを考慮した1試行あたりのタイムアウト。
func NewClient(backendClient *backend.Client, timeout time.Duration) *Client {
	return &Client{backend: backendClient, timeout: timeout}
}

// Chat はエージェントにメッセージを送信し、応答を返す。
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	data, err := c.backend.Do(ctx, http.MethodPost, "/agent/chat", req,
		&backend.RequestOptions{Username: req.Username, Timeout: c.timeout})
	if err != nil {
		return nil, err
	}
	resp := &ChatResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, &backend.RequestError{Kind: backend.KindUnknown, Message: "エージェント応答のパースに失敗しました。"}
	}
	return resp, nil
}

// Health はエージェントのヘルスチェックを行う。
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	data, err := c.backend.Do(ctx, http.MethodGet, "/agent/health", nil,
		&backend.RequestOptions{Timeout: c.timeout})
	if err != nil {
		return nil, err
	}
	status := &HealthStatus{}
	if err := json.Unmarshal(data, status); err != nil {
		return nil, &backend.RequestError{Kind: backend.KindUnknown, Message: "ヘルスチェック応答のパースに失敗しました。"}
	}
	return status, nil
}
