// Package model はドメインモデルを定義する。
package model

import "fmt"

// ErrorType はAPIエラーの種別タグを表す。
// レイヤー境界を越える前に必ずこの閉じた型集合のいずれかに変換する。
type ErrorType string

const (
	// ErrTypeAuthentication はセッション無し・無効・期限切れを表す。HTTP 401に対応する。
	ErrTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	// ErrTypeAuthorization は有効なセッションだが権限不足を表す。HTTP 403に対応する。
	ErrTypeAuthorization ErrorType = "AUTHORIZATION_ERROR"
	// ErrTypeValidation は入力形式の不正を表す。HTTP 400に対応する。
	ErrTypeValidation ErrorType = "VALIDATION_ERROR"
	// ErrTypeNotFound はリソース未検出を表す。HTTP 404に対応する。
	ErrTypeNotFound ErrorType = "NOT_FOUND"
	// ErrTypeConflict はリソースの競合（重複作成など）を表す。HTTP 409に対応する。
	ErrTypeConflict ErrorType = "CONFLICT"
	// ErrTypeRateLimited はレート制限超過を表す。HTTP 429に対応する。
	ErrTypeRateLimited ErrorType = "RATE_LIMITED"
	// ErrTypeServer は内部エラーおよびバックエンド障害を表す。HTTP 500に対応する。
	ErrTypeServer ErrorType = "INTERNAL_SERVER_ERROR"
)

// APIError は統一エラーフォーマットを表す。
// ハンドラーはすべての失敗をこの型に変換してから
// {"error": {"message", "type", "details"}} 形式でレスポンスに書き込む。
type APIError struct {
	Type    ErrorType
	Message string
	Details map[string]any
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewAuthenticationError は認証エラーを生成する。
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeAuthentication,
		Message: message,
	}
}

// NewAuthorizationError は認可エラーを生成する。
func NewAuthorizationError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeAuthorization,
		Message: message,
	}
}

// NewValidationError は入力検証エラーを生成する。
// detailsには検証に失敗したフィールド名と理由を含める。
func NewValidationError(message string, details map[string]any) *APIError {
	return &APIError{
		Type:    ErrTypeValidation,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeNotFound,
		Message: message,
	}
}

// NewConflictError はリソース競合エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeConflict,
		Message: message,
	}
}

// NewRateLimitedError はレート制限エラーを生成する。
func NewRateLimitedError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeRateLimited,
		Message: message,
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザー向けメッセージは一般的な文言とする。
func NewInternalError() *APIError {
	return &APIError{
		Type:    ErrTypeServer,
		Message: "内部エラーが発生しました。しばらく待ってから再度お試しください。",
	}
}
