package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// AdminUserService は管理者ユーザーハンドラーが必要とするバックエンド操作のインターフェース。
type AdminUserService interface {
	ListUsers(ctx context.Context, limit, offset int) (*model.UserList, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	CreateUser(ctx context.Context, req backend.CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, userID int64, req backend.UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, userID int64) error
	GetUserAccesses(ctx context.Context, userID int64, username string) (*model.UserAccessList, error)
	GrantAccess(ctx context.Context, userID int64, accessName, username string) (*model.Access, error)
	RevokeAccess(ctx context.Context, userID, accessID int64, username string) error
}

// AdminUsersHandler は管理者向けユーザー管理のHTTPハンドラー。
// セッションミドルウェアが管理者ロールを保証した後に呼ばれる。
// すべての操作はバックエンドAPIへの転送であり、ローカル状態を持たない。
type AdminUsersHandler struct {
	service AdminUserService
}

// NewAdminUsersHandler はAdminUsersHandlerを生成する。
func NewAdminUsersHandler(service AdminUserService) *AdminUsersHandler {
	return &AdminUsersHandler{service: service}
}

// parsePagination はクエリパラメータからlimit/offsetを取得する。
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pathID はURLパスパラメータを数値IDとして取得する。
// 不正な場合はバリデーションエラーを書き込み、falseを返す。
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteAPIError(w, model.NewValidationError(
			"IDが不正です。",
			map[string]any{"field": name},
		))
		return 0, false
	}
	return id, true
}

// List はユーザー一覧をページネーション付きで返す。
// GET /api/admin/users
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	list, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// createUserRequest はユーザー作成リクエストのボディ。
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Create は新しいユーザーを作成する。
// POST /api/admin/users
func (h *AdminUsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if apiErr := model.ValidateUsername(req.Username); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	if apiErr := model.ValidatePassword(req.Password); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	user, err := h.service.CreateUser(r.Context(), backend.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Get は指定IDのユーザーを返す。
// GET /api/admin/users/{id}
func (h *AdminUsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateUserRequest はユーザー更新リクエストのボディ。未設定フィールドは変更されない。
type updateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Update は既存ユーザーを部分更新する。
// PATCH /api/admin/users/{id}
func (h *AdminUsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Username != nil {
		if apiErr := model.ValidateUsername(*req.Username); apiErr != nil {
			middleware.WriteAPIError(w, apiErr)
			return
		}
	}
	if req.Password != nil {
		if apiErr := model.ValidatePassword(*req.Password); apiErr != nil {
			middleware.WriteAPIError(w, apiErr)
			return
		}
	}

	user, err := h.service.UpdateUser(r.Context(), id, backend.UpdateUserRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete はユーザーと紐付くアクセス割り当てを削除する。
// DELETE /api/admin/users/{id}
func (h *AdminUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAccesses は指定ユーザーに割り当てられたアクセス一覧を返す。
// GET /api/admin/users/{id}/accesses
func (h *AdminUsersHandler) ListAccesses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// 対象ユーザーのユーザー名を解決してから割り当てを取得する
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	list, err := h.service.GetUserAccesses(r.Context(), id, user.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// assignAccessRequest はアクセス割り当てリクエストのボディ。
type assignAccessRequest struct {
	AccessName string `json:"access_name"`
}

// AssignAccess は指定ユーザーにアクセスを名前で割り当てる。
// POST /api/admin/users/{id}/accesses
func (h *AdminUsersHandler) AssignAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req assignAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if apiErr := model.ValidateAccessName(req.AccessName); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	access, err := h.service.GrantAccess(r.Context(), id, req.AccessName, user.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, access)
}

// RevokeAccess は指定ユーザーからアクセス割り当てを解除する。
// DELETE /api/admin/users/{id}/accesses/{accessId}
func (h *AdminUsersHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	accessID, ok := pathID(w, r, "accessId")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.RevokeAccess(r.Context(), id, accessID, user.Username); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
