// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 50
	passwordMinLength = 8
	passwordMaxLength = 128
	accessNameMaxLength = 100
	chatMessageMaxLength = 4000
)

var (
	// usernamePattern はユーザー名の形式（英数字とアンダースコア・ハイフン）。
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// accessNamePattern はアクセス名の形式（大文字とアンダースコアのみ）。
	accessNamePattern = regexp.MustCompile(`^[A-Z_]+$`)
)

// ValidateUsername はユーザー名の形式を検証する。
// 入力が不正な場合はVALIDATION_ERRORを返す。
func ValidateUsername(username string) *APIError {
	if len(username) < usernameMinLength || len(username) > usernameMaxLength {
		return NewValidationError(
			fmt.Sprintf("ユーザー名は%d〜%d文字で指定してください。", usernameMinLength, usernameMaxLength),
			map[string]any{"field": "username"},
		)
	}
	if !usernamePattern.MatchString(username) {
		return NewValidationError(
			"ユーザー名に使用できるのは英数字とアンダースコア・ハイフンのみです。",
			map[string]any{"field": "username"},
		)
	}
	return nil
}

// ValidatePassword はパスワードの長さを検証する。
func ValidatePassword(password string) *APIError {
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return NewValidationError(
			fmt.Sprintf("パスワードは%d〜%d文字で指定してください。", passwordMinLength, passwordMaxLength),
			map[string]any{"field": "password"},
		)
	}
	return nil
}

// ValidateAccessName はアクセス名の形式を検証する。
// 大文字とアンダースコアのみを許可する（例: "READ_DOCUMENTS"）。
// "read_documents" のような小文字を含む名前は拒否される。
func ValidateAccessName(name string) *APIError {
	if name == "" || len(name) > accessNameMaxLength {
		return NewValidationError(
			fmt.Sprintf("アクセス名は1〜%d文字で指定してください。", accessNameMaxLength),
			map[string]any{"field": "access_name"},
		)
	}
	if !accessNamePattern.MatchString(name) {
		return NewValidationError(
			"アクセス名に使用できるのは大文字英字とアンダースコアのみです。",
			map[string]any{"field": "access_name", "value": name},
		)
	}
	return nil
}

// ValidateChatMessage はチャットメッセージの内容を検証する。
// 空白のみのメッセージは空として扱う。
func ValidateChatMessage(message string) *APIError {
	if strings.TrimSpace(message) == "" {
		return NewValidationError(
			"メッセージが空です。",
			map[string]any{"field": "message"},
		)
	}
	if len(message) > chatMessageMaxLength {
		return NewValidationError(
			fmt.Sprintf("メッセージは%d文字以内で指定してください。", chatMessageMaxLength),
			map[string]any{"field": "message"},
		)
	}
	return nil
}
