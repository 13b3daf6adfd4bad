package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// ErrorKind はクライアント側の失敗分類を表す。
type ErrorKind string

const (
	// KindNetwork は接続失敗・タイムアウトを表す。
	KindNetwork ErrorKind = "network"
	// KindValidation はバックエンドが入力を拒否したことを表す（400/422）。
	KindValidation ErrorKind = "validation"
	// KindAuth は認証・認可の失敗を表す（401/403）。
	KindAuth ErrorKind = "auth"
	// KindNotFound はリソース未検出を表す（404）。
	KindNotFound ErrorKind = "not_found"
	// KindConflict はリソース競合を表す（409）。
	KindConflict ErrorKind = "conflict"
	// KindServer はバックエンド側の障害を表す（429/5xx）。
	KindServer ErrorKind = "server"
	// KindUnknown は上記いずれにも該当しない失敗を表す。
	KindUnknown ErrorKind = "unknown"
)

// RequestError はバックエンドリクエストの失敗を表す。
// 通常のHTTP・ネットワーク失敗はすべてこの型で返され、panicは発生しない。
type RequestError struct {
	Kind    ErrorKind
	Status  int // HTTPステータス。ネットワークエラーの場合は0。
	Message string
	Details map[string]any
}

// Error はerrorインターフェースを実装する。
func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s: %s", e.Kind, e.Message)
}

// Retryable はこの失敗がリトライ対象かどうかを返す。
func (e *RequestError) Retryable() bool {
	if e.Kind == KindNetwork {
		return true
	}
	return ClassifyStatus(e.Status) == ClassRetryable
}

// APIError はRequestErrorをハンドラー層の統一エラー型に変換する。
func (e *RequestError) APIError() *model.APIError {
	switch e.Kind {
	case KindValidation:
		return model.NewValidationError(e.Message, e.Details)
	case KindAuth:
		return model.NewAuthorizationError(e.Message)
	case KindNotFound:
		return model.NewNotFoundError(e.Message)
	case KindConflict:
		return model.NewConflictError(e.Message)
	default:
		// ネットワーク・サーバー障害の詳細はログのみに残す
		return model.NewInternalError()
	}
}

// kindForStatus はHTTPステータスコードからErrorKindを導出する。
func kindForStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 400 || statusCode == 422:
		return KindValidation
	case statusCode == 401 || statusCode == 403:
		return KindAuth
	case statusCode == 404:
		return KindNotFound
	case statusCode == 409:
		return KindConflict
	case statusCode == 429 || statusCode >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// MetricsRecorder はクライアントが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordBackendRequest(method string, statusCode int, duration time.Duration)
	RecordBackendRetry(reason string)
}

// noopMetrics はメトリクス未設定時のフォールバック。
type noopMetrics struct{}

func (noopMetrics) RecordBackendRequest(string, int, time.Duration) {}
func (noopMetrics) RecordBackendRetry(string)                      {}

// Config はクライアントの設定。ゼロ値のフィールドにはデフォルトが適用される。
type Config struct {
	BaseURL    string
	AdminKey   string
	Timeout    time.Duration // 1試行あたりのタイムアウト
	Retries    int           // 初回試行後の追加試行回数
	BaseDelay  time.Duration
	MaxBackoff time.Duration
}

// Client は外部アクセス管理APIへのリトライ付きHTTPクライアント。
// リクエストごとに独立しており、共有可変状態は乱数生成器のみ（mutex保護）。
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	metrics    MetricsRecorder

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewClient はClientを生成する。
// httpClientがnilの場合はデフォルトのhttp.Clientを使用する。
func NewClient(httpClient *http.Client, config Config, logger *slog.Logger, metrics MetricsRecorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retries < 0 {
		config.Retries = DefaultRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
		metrics:    metrics,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RequestOptions は1リクエストごとの認証ヘッダーと上書き設定。
type RequestOptions struct {
	// Username を設定するとX-Usernameヘッダーを付与する。
	Username string
	// AdminAuth を設定するとX-Admin-Keyヘッダーを付与する。
	AdminAuth bool
	// Headers はデフォルトヘッダーを上書きする追加ヘッダー。
	Headers map[string]string
	// Timeout は1試行あたりのタイムアウトを上書きする。
	Timeout time.Duration
}

// Do はバックエンドAPIへリクエストを送り、成功時はレスポンスボディを返す。
// 失敗はすべて*RequestErrorとして返り、通常のHTTP・ネットワーク失敗でpanicしない。
//   - ネットワークエラー・タイムアウト・5xx・429はリトライ対象
//   - 429を除く4xxは即時失敗
//   - リトライn回目の前に min(maxBackoff, baseDelay*2^n) ±25%ジッターの遅延を挿入
//   - リトライを使い切った場合は最後に観測した失敗を元の分類のまま返す
func (c *Client) Do(ctx context.Context, method, path string, body any, opts *RequestOptions) (json.RawMessage, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			// リクエストボディのエンコード失敗はプログラミングエラー
			return nil, fmt.Errorf("backend: encode request body: %w", err)
		}
	}

	timeout := c.config.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	var lastErr *RequestError
	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if attempt > 0 {
			delay := c.nextDelay(attempt - 1)
			c.logger.Warn("retrying backend request",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("reason", string(lastErr.Kind)),
			)
			c.metrics.RecordBackendRetry(string(lastErr.Kind))

			select {
			case <-ctx.Done():
				return nil, &RequestError{Kind: KindNetwork, Message: "リクエストがキャンセルされました。"}
			case <-time.After(delay):
			}
		}

		data, reqErr := c.attempt(ctx, method, path, payload, opts, timeout)
		if reqErr == nil {
			return data, nil
		}

		// 親コンテキストのキャンセルはリトライせず即時に返す
		if ctx.Err() != nil {
			return nil, reqErr
		}
		if !reqErr.Retryable() {
			return nil, reqErr
		}
		lastErr = reqErr
	}

	return nil, lastErr
}

// attempt は1回分のHTTPリクエストを実行する。
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, opts *RequestOptions, timeout time.Duration) (json.RawMessage, *RequestError) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return nil, &RequestError{Kind: KindUnknown, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if opts.AdminAuth {
		req.Header.Set("X-Admin-Key", c.config.AdminKey)
	}
	if opts.Username != "" {
		req.Header.Set("X-Username", opts.Username)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		// タイムアウトを含むトランスポート層の失敗はネットワークエラーとして分類する
		c.metrics.RecordBackendRequest(method, 0, duration)
		message := "バックエンドAPIに接続できません。"
		if errors.Is(err, context.DeadlineExceeded) {
			message = "バックエンドAPIへのリクエストがタイムアウトしました。"
		}
		return nil, &RequestError{Kind: KindNetwork, Message: message, Details: map[string]any{"error": err.Error()}}
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendRequest(method, resp.StatusCode, duration)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Kind: KindNetwork, Message: "レスポンスボディの読み取りに失敗しました。", Details: map[string]any{"error": err.Error()}}
	}

	if ClassifyStatus(resp.StatusCode) == ClassOK {
		return data, nil
	}

	return nil, &RequestError{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: extractErrorMessage(data, resp.StatusCode),
	}
}

// nextDelay はリトライn回目（0始まり）の前に挿入する遅延を返す。
func (c *Client) nextDelay(attempt int) time.Duration {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return BackoffWithJitter(attempt, c.config.BaseDelay, c.config.MaxBackoff, c.rnd)
}

// extractErrorMessage はバックエンドのエラーレスポンスからメッセージを抽出する。
// {"detail": "..."} と {"error": {"message": "..."}} の両形式に対応する。
func extractErrorMessage(body []byte, statusCode int) string {
	var detail struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Error.Message != "" {
			return detail.Error.Message
		}
	}
	return fmt.Sprintf("バックエンドAPIがステータス %d を返しました。", statusCode)
}
