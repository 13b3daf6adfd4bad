package handler

import (
	"context"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/agent"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// ChatService はチャットハンドラーが利用する会話操作のインターフェース。
type ChatService interface {
	Load(ctx context.Context, userID int64) (*model.ChatTranscript, error)
	Send(ctx context.Context, sess *model.Session, message string) (*model.ChatTranscript, error)
	Clear(ctx context.Context, userID int64) (*model.ChatTranscript, error)
}

// AgentHealthChecker はチャットエージェントの死活確認インターフェース。
type AgentHealthChecker interface {
	Health(ctx context.Context) (*agent.HealthStatus, error)
}

// ChatHandler はチャット会話のHTTPハンドラー。
type ChatHandler struct {
	service ChatService
	health  AgentHealthChecker
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatService, health AgentHealthChecker) *ChatHandler {
	return &ChatHandler{service: service, health: health}
}

// History はログイン中ユーザーの会話履歴を返す。履歴が無い場合は空の会話を作成する。
// GET /api/chat
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	transcript, err := h.service.Load(r.Context(), sess.User.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Message string `json:"message"`
}

// Send はメッセージをエージェントに送信し、更新後の会話全体を返す。
// POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	transcript, err := h.service.Send(r.Context(), sess, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

// Clear は会話履歴を削除し、新しいセッションIDを持つ空の会話を返す。
// DELETE /api/chat
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	transcript, err := h.service.Clear(r.Context(), sess.User.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

// AgentHealth はチャットエージェントの死活状態を返す。
// GET /api/chat/health
func (h *ChatHandler) AgentHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.health.Health(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
