package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// --- テストヘルパー ---

// testSession はテスト用のセッションを生成するヘルパー。
func testSession(userID int64, username string, role model.Role) *model.Session {
	now := time.Now().UTC()
	return &model.Session{
		User: model.SessionUser{
			ID:        userID,
			Username:  username,
			CreatedAt: now.Add(-24 * time.Hour),
			IsAdmin:   role == model.RoleAdmin,
		},
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// withSession はテスト用にリクエストコンテキストに検証済みセッションを注入するヘルパー。
func withSession(r *http.Request, sess *model.Session) *http.Request {
	ctx := middleware.ContextWithSession(r.Context(), sess)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorResponse はレスポンスボディから統一エラーレスポンスをパースするヘルパー。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
