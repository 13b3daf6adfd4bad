package handler

import (
	"context"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// AdminAccessService は管理者アクセスハンドラーが必要とするバックエンド操作のインターフェース。
type AdminAccessService interface {
	ListAccesses(ctx context.Context, limit, offset int) (*model.AccessList, error)
	GetAccess(ctx context.Context, accessID int64) (*model.Access, error)
	CreateAccess(ctx context.Context, req backend.CreateAccessRequest) (*model.Access, error)
	UpdateAccess(ctx context.Context, accessID int64, req backend.UpdateAccessRequest) (*model.Access, error)
	DeleteAccess(ctx context.Context, accessID int64) error
}

// AdminAccessesHandler はアクセスカタログ管理のHTTPハンドラー。管理者専用。
type AdminAccessesHandler struct {
	service AdminAccessService
}

// NewAdminAccessesHandler はAdminAccessesHandlerを生成する。
func NewAdminAccessesHandler(service AdminAccessService) *AdminAccessesHandler {
	return &AdminAccessesHandler{service: service}
}

// List はアクセスカタログの一覧を返す。
// GET /api/admin/accesses
func (h *AdminAccessesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	list, err := h.service.ListAccesses(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// createAccessRequest はアクセス作成リクエストのボディ。
type createAccessRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	RenewalPeriod *int   `json:"renewal_period"`
}

// Create はカタログに新しいアクセスを作成する。
// POST /api/admin/accesses
func (h *AdminAccessesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if apiErr := model.ValidateAccessName(req.Name); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	access, err := h.service.CreateAccess(r.Context(), backend.CreateAccessRequest{
		Name:          req.Name,
		Description:   req.Description,
		RenewalPeriod: req.RenewalPeriod,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, access)
}

// Get は指定IDのアクセスを返す。
// GET /api/admin/accesses/{id}
func (h *AdminAccessesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	access, err := h.service.GetAccess(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

// updateAccessRequest はアクセス更新リクエストのボディ。未設定フィールドは変更されない。
type updateAccessRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	RenewalPeriod *int    `json:"renewal_period,omitempty"`
}

// Update は既存アクセスを部分更新する。
// PATCH /api/admin/accesses/{id}
func (h *AdminAccessesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name != nil {
		if apiErr := model.ValidateAccessName(*req.Name); apiErr != nil {
			middleware.WriteAPIError(w, apiErr)
			return
		}
	}

	access, err := h.service.UpdateAccess(r.Context(), id, backend.UpdateAccessRequest{
		Name:          req.Name,
		Description:   req.Description,
		RenewalPeriod: req.RenewalPeriod,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

// Delete はアクセスとその全割り当てを削除する。
// DELETE /api/admin/accesses/{id}
func (h *AdminAccessesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAccess(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
