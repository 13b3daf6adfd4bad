// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/model"
	"github.com/IsakHolmdahl/accesshub/internal/session"
)

// SessionCookieName はセッションを保持するCookieの名前。
const SessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストに検証済みセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// defaultPublicPaths は認証なしでアクセスできるパスの一覧。
// 末尾が "/" のエントリはプレフィックス一致として扱う。
var defaultPublicPaths = []string{
	"/login",
	"/api/auth/login",
	"/api/auth/logout",
	"/health",
	"/metrics",
	"/favicon.ico",
	"/static/",
	"/assets/",
}

// adminPathPrefixes は管理者ロールを必須とするパスのプレフィックス。
var adminPathPrefixes = []string{
	"/api/admin",
	"/admin",
}

// SessionConfig はセッション検証ミドルウェアの設定。
type SessionConfig struct {
	Codec        session.Codec
	CookieSecure bool
	CookieDomain string
	// PublicPaths が空の場合はデフォルトの公開パス一覧を使用する。
	PublicPaths []string
	// Now はテストで時刻を差し替えるためのフック。nilの場合はtime.Now。
	Now func() time.Time
}

// SessionMiddleware はCookieからセッションを復号・検証するミドルウェア。
// すべてのリクエストに適用され、公開パス以外では有効なセッションを必須とする。
type SessionMiddleware struct {
	config SessionConfig
	logger *slog.Logger
}

// NewSessionMiddleware はSessionMiddlewareを生成する。
func NewSessionMiddleware(config SessionConfig, logger *slog.Logger) *SessionMiddleware {
	if config.Now == nil {
		config.Now = time.Now
	}
	if len(config.PublicPaths) == 0 {
		config.PublicPaths = defaultPublicPaths
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionMiddleware{config: config, logger: logger}
}

// Handler はセッション検証をリクエストごとに評価する。
//  1. 公開パスは無条件に通過させる（セッションがあれば参考情報として注入する）。
//  2. Cookie欠如・復号失敗・必須フィールド欠落は未認証として拒否する。
//  3. 有効期限切れはCookieを削除し、期限切れとして区別して拒否する。
//  4. 管理者パスで role != admin の場合は認可エラーとして拒否する。
//  5. それ以外は検証済みセッションをコンテキストに注入して通過させる。
//
// 同一Cookieを連続して検証した場合、期限境界をまたがない限り同じ判定になる。
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublicPath(r.URL.Path) {
			// ログインページなどでもユーザー表示のためにセッションがあれば注入する
			if sess := m.decodeSession(r); sess != nil && !sess.Expired(m.config.Now()) {
				r = r.WithContext(ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			m.denyUnauthenticated(w, r, "セッションがありません。ログインしてください。")
			return
		}

		sess, err := m.config.Codec.Decode(cookie.Value)
		if err != nil || !sess.HasRequiredFields() {
			// 復号失敗と必須フィールド欠落はCookie欠如と同じ扱い
			m.logger.Warn("invalid session cookie",
				slog.String("path", r.URL.Path),
			)
			m.clearSessionCookie(w)
			m.denyUnauthenticated(w, r, "セッションが無効です。再度ログインしてください。")
			return
		}

		if sess.Expired(m.config.Now()) {
			m.clearSessionCookie(w)
			m.denyExpired(w, r)
			return
		}

		if m.isAdminPath(r.URL.Path) && sess.Role != model.RoleAdmin {
			m.denyForbidden(w, r, sess)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}

// decodeSession はCookieからセッションを復号する。失敗時はnilを返す。
func (m *SessionMiddleware) decodeSession(r *http.Request) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := m.config.Codec.Decode(cookie.Value)
	if err != nil || !sess.HasRequiredFields() {
		return nil
	}
	return sess
}

// isPublicPath はパスが公開パス一覧に含まれるかを判定する。
func (m *SessionMiddleware) isPublicPath(path string) bool {
	for _, p := range m.config.PublicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// isAdminPath はパスが管理者専用かを判定する。
func (m *SessionMiddleware) isAdminPath(path string) bool {
	for _, prefix := range adminPathPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// isAPIPath はAPIリクエストかページリクエストかを判定する。
// APIにはJSONエラーを、ページにはリダイレクトを返す。
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// denyUnauthenticated は未認証リクエストを拒否する。
func (m *SessionMiddleware) denyUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	if isAPIPath(r.URL.Path) {
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationError(message))
		return
	}
	m.redirectToLogin(w, r, false)
}

// denyExpired は期限切れセッションのリクエストを拒否する。
// 未認証とはユーザー向けメッセージを区別する。
func (m *SessionMiddleware) denyExpired(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		apiErr := model.NewAuthenticationError("セッションの有効期限が切れました。再度ログインしてください。")
		apiErr.Details = map[string]any{"reason": "session_expired"}
		WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
		return
	}
	m.redirectToLogin(w, r, true)
}

// denyForbidden は権限不足のリクエストを拒否する。
// ページは認証済みのデフォルトページへ静かにリダイレクトする。
func (m *SessionMiddleware) denyForbidden(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	m.logger.Warn("admin route denied",
		slog.Int64("user_id", sess.User.ID),
		slog.String("path", r.URL.Path),
	)
	if isAPIPath(r.URL.Path) {
		WriteErrorResponse(w, http.StatusForbidden,
			model.NewAuthorizationError("この操作には管理者権限が必要です。"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// redirectToLogin は元のパスをredirectパラメータに保持してログインページへ転送する。
func (m *SessionMiddleware) redirectToLogin(w http.ResponseWriter, r *http.Request, expired bool) {
	query := url.Values{}
	query.Set("redirect", r.URL.RequestURI())
	if expired {
		query.Set("expired", "true")
	}
	http.Redirect(w, r, "/login?"+query.Encode(), http.StatusSeeOther)
}

// clearSessionCookie はセッションCookieを即時失効させる。
func (m *SessionMiddleware) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionFromContext はリクエストコンテキストから検証済みセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	sess, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || sess == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return sess, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
