// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
// 失敗時はバリデーションエラーを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError(
			"リクエストボディの解析に失敗しました。",
			map[string]any{"error": "invalid_json"},
		))
		return false
	}
	return true
}

// handleServiceError はサービス層・クライアント層から返されたエラーを
// 統一エラーフォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var reqErr *backend.RequestError
	if errors.As(err, &reqErr) {
		apiErr := reqErr.APIError()
		if apiErr.Type == model.ErrTypeServer {
			// ネットワーク・バックエンド障害の詳細はログのみに残す
			slog.Error("backend request failed", slog.String("error", reqErr.Error()))
		}
		middleware.WriteAPIError(w, apiErr)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// sessionFromRequest はコンテキストから検証済みセッションを取得する。
// 取得できない場合は401を書き込み、nilを返す。
// セッションミドルウェアを通過したルートでは常に成功する。
func sessionFromRequest(w http.ResponseWriter, r *http.Request) *model.Session {
	sess, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewAuthenticationError("認証が必要です。"))
		return nil
	}
	return sess
}
