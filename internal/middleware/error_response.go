package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// errorBody はAPIエラーレスポンスの内側の構造。
type errorBody struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// すべてのAPIエンドポイントは {"error": {...}} の形でエラーを返す。
type ErrorResponseBody struct {
	Error errorBody `json:"error"`
}

// StatusForError はエラータイプに対応するHTTPステータスコードを返す。
func StatusForError(apiErr *model.APIError) int {
	switch apiErr.Type {
	case model.ErrTypeAuthentication:
		return http.StatusUnauthorized
	case model.ErrTypeAuthorization:
		return http.StatusForbidden
	case model.ErrTypeValidation:
		return http.StatusBadRequest
	case model.ErrTypeNotFound:
		return http.StatusNotFound
	case model.ErrTypeConflict:
		return http.StatusConflict
	case model.ErrTypeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error: errorBody{
			Message: apiErr.Message,
			Type:    string(apiErr.Type),
			Details: apiErr.Details,
		},
	})
}

// WriteAPIError はエラータイプから導出したステータスコードでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
