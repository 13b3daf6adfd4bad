package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
	"github.com/IsakHolmdahl/accesshub/internal/session"
)

// UserFinder は認証ハンドラーが必要とするバックエンド操作のインターフェース。
// backend.Clientの部分集合として定義する。
type UserFinder interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// LoginMetrics はログイン結果を記録するメトリクスのインターフェース。
type LoginMetrics interface {
	RecordLogin(success bool)
}

// noopLoginMetrics はメトリクス未設定時のフォールバック。
type noopLoginMetrics struct{}

func (noopLoginMetrics) RecordLogin(bool) {}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge time.Duration
}

// AuthHandler はログイン・ログアウト・セッション取得のHTTPハンドラー。
type AuthHandler struct {
	users   UserFinder
	codec   session.Codec
	config  AuthHandlerConfig
	metrics LoginMetrics
	logger  *slog.Logger

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(users UserFinder, codec session.Codec, config AuthHandlerConfig, m LoginMetrics, logger *slog.Logger) *AuthHandler {
	if config.SessionMaxAge <= 0 {
		config.SessionMaxAge = session.DefaultMaxAge
	}
	if m == nil {
		m = noopLoginMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:   users,
		codec:   codec,
		config:  config,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse はセッション情報のAPIレスポンス。
type sessionResponse struct {
	User      model.SessionUser `json:"user"`
	Role      model.Role        `json:"role"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Login はログインを処理し、セッションCookieを発行する。
// POST /api/auth/login
// ユーザーの実在確認はバックエンドのユーザー一覧に対して行う。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if apiErr := model.ValidateUsername(req.Username); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	if apiErr := model.ValidatePassword(req.Password); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	user, err := h.users.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.metrics.RecordLogin(false)
		handleServiceError(w, err)
		return
	}
	if user == nil {
		h.metrics.RecordLogin(false)
		h.logger.Warn("login failed: unknown user",
			slog.String("username", req.Username),
		)
		// ユーザーの存在を漏らさないため、詳細を区別しないメッセージを返す
		middleware.WriteAPIError(w, model.NewAuthenticationError("ユーザー名またはパスワードが正しくありません。"))
		return
	}

	sess := session.New(model.SessionUser{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}, h.config.SessionMaxAge, h.now())

	token, err := h.codec.Encode(sess)
	if err != nil {
		h.metrics.RecordLogin(false)
		h.logger.Error("failed to encode session", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	h.metrics.RecordLogin(true)
	h.logger.Info("login succeeded",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(sess.Role)),
	)

	writeJSON(w, http.StatusOK, sessionResponse{
		User:      sess.User,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout はセッションCookieを破棄する。
// POST /api/auth/logout
// Cookieの有無に関わらず成功を返す（冪等）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Session は現在のセッション情報を返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:      sess.User,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}
