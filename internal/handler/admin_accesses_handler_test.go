package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// mockAdminAccessService はAdminAccessServiceのモック実装。
type mockAdminAccessService struct {
	listAccessesFn func(ctx context.Context, limit, offset int) (*model.AccessList, error)
	getAccessFn    func(ctx context.Context, accessID int64) (*model.Access, error)
	createAccessFn func(ctx context.Context, req backend.CreateAccessRequest) (*model.Access, error)
	updateAccessFn func(ctx context.Context, accessID int64, req backend.UpdateAccessRequest) (*model.Access, error)
	deleteAccessFn func(ctx context.Context, accessID int64) error
}

func (m *mockAdminAccessService) ListAccesses(ctx context.Context, limit, offset int) (*model.AccessList, error) {
	if m.listAccessesFn != nil {
		return m.listAccessesFn(ctx, limit, offset)
	}
	return &model.AccessList{}, nil
}

func (m *mockAdminAccessService) GetAccess(ctx context.Context, accessID int64) (*model.Access, error) {
	if m.getAccessFn != nil {
		return m.getAccessFn(ctx, accessID)
	}
	return &model.Access{ID: accessID}, nil
}

func (m *mockAdminAccessService) CreateAccess(ctx context.Context, req backend.CreateAccessRequest) (*model.Access, error) {
	if m.createAccessFn != nil {
		return m.createAccessFn(ctx, req)
	}
	return &model.Access{ID: 1, Name: req.Name}, nil
}

func (m *mockAdminAccessService) UpdateAccess(ctx context.Context, accessID int64, req backend.UpdateAccessRequest) (*model.Access, error) {
	if m.updateAccessFn != nil {
		return m.updateAccessFn(ctx, accessID, req)
	}
	return &model.Access{ID: accessID}, nil
}

func (m *mockAdminAccessService) DeleteAccess(ctx context.Context, accessID int64) error {
	if m.deleteAccessFn != nil {
		return m.deleteAccessFn(ctx, accessID)
	}
	return nil
}

// --- GET /api/admin/accesses テスト ---

func TestAdminAccessesHandler_List_Success(t *testing.T) {
	svc := &mockAdminAccessService{
		listAccessesFn: func(ctx context.Context, limit, offset int) (*model.AccessList, error) {
			return &model.AccessList{
				Accesses: []model.Access{
					{ID: 1, Name: "READ_DOCUMENTS"},
					{ID: 2, Name: "WRITE_DOCUMENTS"},
				},
				Total: 2,
			}, nil
		},
	}
	h := NewAdminAccessesHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/accesses", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	var body model.AccessList
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if len(body.Accesses) != 2 {
		t.Errorf("アクセス数 = %d, want 2", len(body.Accesses))
	}
}

// --- POST /api/admin/accesses テスト ---

func TestAdminAccessesHandler_Create_Success(t *testing.T) {
	svc := &mockAdminAccessService{
		createAccessFn: func(ctx context.Context, req backend.CreateAccessRequest) (*model.Access, error) {
			if req.Name != "DEPLOY_SERVICES" {
				t.Errorf("name = %q, want DEPLOY_SERVICES", req.Name)
			}
			if req.Description != "サービスのデプロイ権限" {
				t.Errorf("description = %q", req.Description)
			}
			if req.RenewalPeriod == nil || *req.RenewalPeriod != 90 {
				t.Errorf("renewal_period = %v, want 90", req.RenewalPeriod)
			}
			return &model.Access{ID: 3, Name: req.Name}, nil
		},
	}
	h := NewAdminAccessesHandler(svc)

	body := `{"name": "DEPLOY_SERVICES", "description": "サービスのデプロイ権限", "renewal_period": 90}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/accesses", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestAdminAccessesHandler_Create_InvalidName_Returns400(t *testing.T) {
	called := false
	svc := &mockAdminAccessService{
		createAccessFn: func(ctx context.Context, req backend.CreateAccessRequest) (*model.Access, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAdminAccessesHandler(svc)

	tests := []string{"read_documents", "READ DOCUMENTS", "", "READ-DOCS"}
	for _, name := range tests {
		body, _ := json.Marshal(map[string]string{"name": name})
		req := httptest.NewRequest(http.MethodPost, "/api/admin/accesses", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		h.Create(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("name=%q: ステータスコード = %d, want %d", name, w.Code, http.StatusBadRequest)
		}
	}
	if called {
		t.Error("バリデーション失敗時にバックエンドが呼ばれている")
	}
}

// --- PATCH /api/admin/accesses/{id} テスト ---

func TestAdminAccessesHandler_Update_ValidatesNameWhenPresent(t *testing.T) {
	h := NewAdminAccessesHandler(&mockAdminAccessService{})

	body := `{"name": "lower_case"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/accesses/1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminAccessesHandler_Update_DescriptionOnly(t *testing.T) {
	svc := &mockAdminAccessService{
		updateAccessFn: func(ctx context.Context, accessID int64, req backend.UpdateAccessRequest) (*model.Access, error) {
			if req.Name != nil {
				t.Errorf("name = %v, want nil", req.Name)
			}
			if req.Description == nil || *req.Description != "更新後の説明" {
				t.Errorf("description = %v", req.Description)
			}
			return &model.Access{ID: accessID}, nil
		},
	}
	h := NewAdminAccessesHandler(svc)

	body := `{"description": "更新後の説明"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/accesses/1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- DELETE /api/admin/accesses/{id} テスト ---

func TestAdminAccessesHandler_Delete_Returns204(t *testing.T) {
	svc := &mockAdminAccessService{
		deleteAccessFn: func(ctx context.Context, accessID int64) error {
			if accessID != 4 {
				t.Errorf("accessID = %d, want 4", accessID)
			}
			return nil
		},
	}
	h := NewAdminAccessesHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/accesses/4", nil)
	req = withChiURLParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
	}
}
