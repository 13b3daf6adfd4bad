// Package session はセッションペイロードのエンコード・デコードと生成を提供する。
//
// CodecはセッションをCookieで運搬可能な文字列に変換する契約を定義する。
// デフォルトのBase64CodecはJSONをbase64エンコードするだけのプレースホルダーで、
// 完全性保護を提供しない。署名付きトークンが必要な場合はSignedCodecを
// SESSION_CODEC=signed で選択する。呼び出し側の契約はどちらでも同一である。
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// ErrInvalidToken はトークンのデコード失敗を表す。
// 呼び出し側はこのエラーを「セッション無し」と同一に扱うこと。
var ErrInvalidToken = errors.New("session: invalid token")

// Codec はセッションペイロードとトークン文字列の相互変換の契約。
type Codec interface {
	// Encode はセッションをトークン文字列にエンコードする。
	Encode(s *model.Session) (string, error)
	// Decode はトークン文字列をセッションに復元する。
	// 不正な入力にはErrInvalidTokenを返す。
	Decode(token string) (*model.Session, error)
}

// Base64Codec はJSONをbase64urlエンコードするコーデック。
// 機密性・完全性の保証は無い。リファレンス実装互換のプレースホルダー。
type Base64Codec struct{}

// NewBase64Codec はBase64Codecを生成する。
func NewBase64Codec() *Base64Codec {
	return &Base64Codec{}
}

// Encode はセッションをbase64url(JSON)にエンコードする。
func (c *Base64Codec) Encode(s *model.Session) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode はbase64url(JSON)トークンをセッションに復元する。
// base64デコードまたはJSONパースに失敗した場合はErrInvalidTokenを返す。
func (c *Base64Codec) Decode(token string) (*model.Session, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	s := &model.Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, ErrInvalidToken
	}
	return s, nil
}

// sessionClaims はSignedCodecのJWTクレーム。
// セッションペイロード全体をカスタムクレームとして埋め込む。
type sessionClaims struct {
	Session *model.Session `json:"session"`
	jwt.RegisteredClaims
}

// SignedCodec はHS256署名付きJWTでセッションを運搬するコーデック。
// 署名検証に失敗したトークンはErrInvalidTokenとして拒否される。
type SignedCodec struct {
	secret []byte
}

// NewSignedCodec はSignedCodecを生成する。
func NewSignedCodec(secret string) *SignedCodec {
	return &SignedCodec{secret: []byte(secret)}
}

// Encode はセッションをHS256署名付きJWTにエンコードする。
func (c *SignedCodec) Encode(s *model.Session) (string, error) {
	claims := sessionClaims{
		Session: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.User.Username,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode は署名を検証してセッションを復元する。
// 期限切れの判定はバリデーター側で一元的に行うため、
// ここではexpクレームの検証を無効化してペイロードをそのまま返す。
func (c *SignedCodec) Decode(token string) (*model.Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Session == nil {
		return nil, ErrInvalidToken
	}
	return claims.Session, nil
}

// CodecKind は設定で選択可能なコーデック種別。
type CodecKind string

const (
	// CodecBase64 はbase64-over-JSONのプレースホルダーコーデック。
	CodecBase64 CodecKind = "base64"
	// CodecSigned はHS256署名付きJWTコーデック。
	CodecSigned CodecKind = "signed"
)

// NewCodec は設定に応じたコーデックを生成する。
// 未知の種別はbase64にフォールバックする。
func NewCodec(kind CodecKind, secret string) Codec {
	if kind == CodecSigned {
		return NewSignedCodec(secret)
	}
	return NewBase64Codec()
}
