package handler

import (
	"context"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// UserAccessService は一般ユーザーのアクセス操作に必要なバックエンド操作のインターフェース。
type UserAccessService interface {
	GetUserAccesses(ctx context.Context, userID int64, username string) (*model.UserAccessList, error)
	GrantAccess(ctx context.Context, userID int64, accessName, username string) (*model.Access, error)
	RevokeAccess(ctx context.Context, userID, accessID int64, username string) error
}

// UserAccessesHandler はログイン中ユーザー自身のアクセス操作のHTTPハンドラー。
// 操作対象は常にセッションのユーザーであり、他ユーザーのIDは受け付けない。
type UserAccessesHandler struct {
	service UserAccessService
}

// NewUserAccessesHandler はUserAccessesHandlerを生成する。
func NewUserAccessesHandler(service UserAccessService) *UserAccessesHandler {
	return &UserAccessesHandler{service: service}
}

// List はログイン中ユーザーのアクセス一覧を返す。
// GET /api/accesses/user
func (h *UserAccessesHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	list, err := h.service.GetUserAccesses(r.Context(), sess.User.ID, sess.User.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// requestAccessRequest はアクセス申請リクエストのボディ。
type requestAccessRequest struct {
	AccessName string `json:"access_name"`
}

// Request はログイン中ユーザーにアクセスを名前で割り当てる。
// POST /api/accesses/user
func (h *UserAccessesHandler) Request(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	var req requestAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if apiErr := model.ValidateAccessName(req.AccessName); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	access, err := h.service.GrantAccess(r.Context(), sess.User.ID, req.AccessName, sess.User.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, access)
}

// Revoke はログイン中ユーザーからアクセス割り当てを解除する。
// DELETE /api/accesses/user/{accessId}
func (h *UserAccessesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	accessID, ok := pathID(w, r, "accessId")
	if !ok {
		return
	}

	if err := h.service.RevokeAccess(r.Context(), sess.User.ID, accessID, sess.User.Username); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
