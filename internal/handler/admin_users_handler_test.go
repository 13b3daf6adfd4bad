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

// mockAdminUserService はAdminUserServiceのモック実装。
type mockAdminUserService struct {
	listUsersFn       func(ctx context.Context, limit, offset int) (*model.UserList, error)
	getUserFn         func(ctx context.Context, userID int64) (*model.User, error)
	createUserFn      func(ctx context.Context, req backend.CreateUserRequest) (*model.User, error)
	updateUserFn      func(ctx context.Context, userID int64, req backend.UpdateUserRequest) (*model.User, error)
	deleteUserFn      func(ctx context.Context, userID int64) error
	getUserAccessesFn func(ctx context.Context, userID int64, username string) (*model.UserAccessList, error)
	grantAccessFn     func(ctx context.Context, userID int64, accessName, username string) (*model.Access, error)
	revokeAccessFn    func(ctx context.Context, userID, accessID int64, username string) error
}

func (m *mockAdminUserService) ListUsers(ctx context.Context, limit, offset int) (*model.UserList, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, limit, offset)
	}
	return &model.UserList{}, nil
}

func (m *mockAdminUserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Username: "john_doe"}, nil
}

func (m *mockAdminUserService) CreateUser(ctx context.Context, req backend.CreateUserRequest) (*model.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, req)
	}
	return &model.User{ID: 1, Username: req.Username}, nil
}

func (m *mockAdminUserService) UpdateUser(ctx context.Context, userID int64, req backend.UpdateUserRequest) (*model.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, userID, req)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockAdminUserService) DeleteUser(ctx context.Context, userID int64) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, userID)
	}
	return nil
}

func (m *mockAdminUserService) GetUserAccesses(ctx context.Context, userID int64, username string) (*model.UserAccessList, error) {
	if m.getUserAccessesFn != nil {
		return m.getUserAccessesFn(ctx, userID, username)
	}
	return &model.UserAccessList{}, nil
}

func (m *mockAdminUserService) GrantAccess(ctx context.Context, userID int64, accessName, username string) (*model.Access, error) {
	if m.grantAccessFn != nil {
		return m.grantAccessFn(ctx, userID, accessName, username)
	}
	return &model.Access{ID: 1, Name: accessName}, nil
}

func (m *mockAdminUserService) RevokeAccess(ctx context.Context, userID, accessID int64, username string) error {
	if m.revokeAccessFn != nil {
		return m.revokeAccessFn(ctx, userID, accessID, username)
	}
	return nil
}

// --- GET /api/admin/users テスト ---

func TestAdminUsersHandler_List_PassesPagination(t *testing.T) {
	svc := &mockAdminUserService{
		listUsersFn: func(ctx context.Context, limit, offset int) (*model.UserList, error) {
			if limit != 25 {
				t.Errorf("limit = %d, want 25", limit)
			}
			if offset != 50 {
				t.Errorf("offset = %d, want 50", offset)
			}
			return &model.UserList{
				Users: []model.User{{ID: 1, Username: "john_doe"}},
				Total: 1,
			}, nil
		},
	}
	h := NewAdminUsersHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=25&offset=50", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	var body model.UserList
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if len(body.Users) != 1 {
		t.Errorf("ユーザー数 = %d, want 1", len(body.Users))
	}
}

func TestAdminUsersHandler_List_DefaultsAndCapsPagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{"パラメータ無しはデフォルト", "", defaultListLimit},
		{"上限超過は上限に丸める", "?limit=500", maxListLimit},
		{"不正な値はデフォルト", "?limit=abc", defaultListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAdminUserService{
				listUsersFn: func(ctx context.Context, limit, offset int) (*model.UserList, error) {
					if limit != tt.wantLimit {
						t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
					}
					return &model.UserList{}, nil
				},
			}
			h := NewAdminUsersHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users"+tt.query, nil)
			w := httptest.NewRecorder()

			h.List(w, req)
		})
	}
}

// --- POST /api/admin/users テスト ---

func TestAdminUsersHandler_Create_Success(t *testing.T) {
	svc := &mockAdminUserService{
		createUserFn: func(ctx context.Context, req backend.CreateUserRequest) (*model.User, error) {
			if req.Username != "new_user" {
				t.Errorf("username = %q, want %q", req.Username, "new_user")
			}
			if req.Password != "password123" {
				t.Errorf("password = %q, want %q", req.Password, "password123")
			}
			return &model.User{ID: 10, Username: req.Username}, nil
		},
	}
	h := NewAdminUsersHandler(svc)

	body := `{"username": "new_user", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestAdminUsersHandler_Create_ShortPassword_Returns400(t *testing.T) {
	called := false
	svc := &mockAdminUserService{
		createUserFn: func(ctx context.Context, req backend.CreateUserRequest) (*model.User, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAdminUsersHandler(svc)

	body := `{"username": "new_user", "password": "short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("バリデーション失敗時にバックエンドが呼ばれている")
	}
}

func TestAdminUsersHandler_Create_BackendConflict_Returns409(t *testing.T) {
	svc := &mockAdminUserService{
		createUserFn: func(ctx context.Context, req backend.CreateUserRequest) (*model.User, error) {
			return nil, &backend.RequestError{
				Kind:    backend.KindConflict,
				Status:  http.StatusConflict,
				Message: "ユーザー名は既に使用されています。",
			}
		},
	}
	h := NewAdminUsersHandler(svc)

	body := `{"username": "new_user", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
	}
	resp := parseErrorResponse(t, w)
	if resp.Error.Type != string(model.ErrTypeConflict) {
		t.Errorf("エラータイプ = %q, want %q", resp.Error.Type, model.ErrTypeConflict)
	}
}

// --- GET/PATCH/DELETE /api/admin/users/{id} テスト ---

func TestAdminUsersHandler_Get_InvalidID_Returns400(t *testing.T) {
	h := NewAdminUsersHandler(&mockAdminUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/abc", nil)
	req = withChiURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminUsersHandler_Get_NotFound_Returns404(t *testing.T) {
	svc := &mockAdminUserService{
		getUserFn: func(ctx context.Context, userID int64) (*model.User, error) {
			return nil, &backend.RequestError{
				Kind:    backend.KindNotFound,
				Status:  http.StatusNotFound,
				Message: "ユーザーが見つかりません。",
			}
		},
	}
	h := NewAdminUsersHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/999", nil)
	req = withChiURLParam(req, "id", "999")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAdminUsersHandler_Update_PartialFields(t *testing.T) {
	svc := &mockAdminUserService{
		updateUserFn: func(ctx context.Context, userID int64, req backend.UpdateUserRequest) (*model.User, error) {
			if userID != 5 {
				t.Errorf("userID = %d, want 5", userID)
			}
			if req.Username == nil || *req.Username != "renamed" {
				t.Errorf("username = %v, want renamed", req.Username)
			}
			if req.Password != nil {
				t.Errorf("password = %v, want nil", req.Password)
			}
			return &model.User{ID: userID, Username: "renamed"}, nil
		},
	}
	h := NewAdminUsersHandler(svc)

	body := `{"username": "renamed"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/users/5", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "5")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAdminUsersHandler_Delete_Returns204(t *testing.T) {
	deleted := int64(0)
	svc := &mockAdminUserService{
		deleteUserFn: func(ctx context.Context, userID int64) error {
			deleted = userID
			return nil
		},
	}
	h := NewAdminUsersHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/3", nil)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != 3 {
		t.Errorf("削除されたID = %d, want 3", deleted)
	}
}

// --- アクセス割り当てテスト ---

func TestAdminUsersHandler_AssignAccess_ResolvesTargetUsername(t *testing.T) {
	svc := &mockAdminUserService{
		getUserFn: func(ctx context.Context, userID int64) (*model.User, error) {
			return &model.User{ID: userID, Username: "target_user"}, nil
		},
		grantAccessFn: func(ctx context.Context, userID int64, accessName, username string) (*model.Access, error) {
			if userID != 8 {
				t.Errorf("userID = %d, want 8", userID)
			}
			if accessName != "READ_DOCUMENTS" {
				t.Errorf("accessName = %q, want READ_DOCUMENTS", accessName)
			}
			// 割り当て先ユーザーのユーザー名で実行されること
			if username != "target_user" {
				t.Errorf("username = %q, want target_user", username)
			}
			return &model.Access{ID: 2, Name: accessName}, nil
		},
	}
	h := NewAdminUsersHandler(svc)

	body := `{"access_name": "READ_DOCUMENTS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/8/accesses", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "8")
	w := httptest.NewRecorder()

	h.AssignAccess(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestAdminUsersHandler_AssignAccess_InvalidName_Returns400(t *testing.T) {
	h := NewAdminUsersHandler(&mockAdminUserService{})

	body := `{"access_name": "read documents"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/8/accesses", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "8")
	w := httptest.NewRecorder()

	h.AssignAccess(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminUsersHandler_RevokeAccess_Returns204(t *testing.T) {
	svc := &mockAdminUserService{
		revokeAccessFn: func(ctx context.Context, userID, accessID int64, username string) error {
			if userID != 8 || accessID != 2 {
				t.Errorf("(userID, accessID) = (%d, %d), want (8, 2)", userID, accessID)
			}
			return nil
		},
	}
	h := NewAdminUsersHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/8/accesses/2", nil)
	req = withChiURLParam(req, "id", "8")
	req = withChiURLParam(req, "accessId", "2")
	w := httptest.NewRecorder()

	h.RevokeAccess(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
	}
}
