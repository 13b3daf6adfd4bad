package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(nil, Config{
		BaseURL:    baseURL,
		AdminKey:   "test-admin-key",
		Timeout:    2 * time.Second,
		Retries:    retries,
		BaseDelay:  1 * time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestClientDo_Success_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "username": "alice"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	data, err := client.Do(context.Background(), http.MethodGet, "/admin/users/1", nil, nil)
	if err != nil {
		t.Fatalf("成功レスポンスでエラーが返りました: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗しました: %v", err)
	}
	if body["username"] != "alice" {
		t.Errorf("username alice を期待しましたが %v でした", body["username"])
	}
}

func TestClientDo_RetriesOn500_ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Do(context.Background(), http.MethodGet, "/admin/users", nil, nil)
	if err != nil {
		t.Fatalf("リトライ後の成功を期待しましたがエラーでした: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("3回の試行を期待しましたが %d 回でした", got)
	}
}

func TestClientDo_TerminalStatus_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "User not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Do(context.Background(), http.MethodGet, "/admin/users/99", nil, nil)
	if err == nil {
		t.Fatal("404でエラーが返りませんでした")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("404では1回のみの試行を期待しましたが %d 回でした", got)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("*RequestErrorを期待しましたが %T でした", err)
	}
	if reqErr.Kind != KindNotFound {
		t.Errorf("KindNotFoundを期待しましたが %s でした", reqErr.Kind)
	}
	if reqErr.Message != "User not found" {
		t.Errorf("detailフィールドのメッセージを期待しましたが %q でした", reqErr.Message)
	}
}

func TestClientDo_ValidationStatus_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "invalid username"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Do(context.Background(), http.MethodPost, "/admin/users", map[string]string{"username": "x"}, nil)
	if err == nil {
		t.Fatal("422でエラーが返りませんでした")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("422では1回のみの試行を期待しましたが %d 回でした", got)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("*RequestErrorを期待しましたが %T でした", err)
	}
	if reqErr.Kind != KindValidation {
		t.Errorf("KindValidationを期待しましたが %s でした", reqErr.Kind)
	}
}

func TestClientDo_ExhaustsRetries_ReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	_, err := client.Do(context.Background(), http.MethodGet, "/admin/users", nil, nil)
	if err == nil {
		t.Fatal("リトライ枯渇後にエラーが返りませんでした")
	}
	// 初回 + リトライ2回
	if got := calls.Load(); got != 3 {
		t.Errorf("3回の試行を期待しましたが %d 回でした", got)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("*RequestErrorを期待しましたが %T でした", err)
	}
	if reqErr.Kind != KindServer {
		t.Errorf("KindServerを期待しましたが %s でした", reqErr.Kind)
	}
	if reqErr.Status != http.StatusServiceUnavailable {
		t.Errorf("ステータス503を期待しましたが %d でした", reqErr.Status)
	}
}

func TestClientDo_NetworkError_ClassifiedAsNetwork(t *testing.T) {
	// 即座にクローズしたサーバーへの接続は失敗する
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL, 0)
	_, err := client.Do(context.Background(), http.MethodGet, "/admin/users", nil, nil)
	if err == nil {
		t.Fatal("接続失敗でエラーが返りませんでした")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("*RequestErrorを期待しましたが %T でした", err)
	}
	if reqErr.Kind != KindNetwork {
		t.Errorf("KindNetworkを期待しましたが %s でした", reqErr.Kind)
	}
	if reqErr.Status != 0 {
		t.Errorf("ネットワークエラーではステータス0を期待しましたが %d でした", reqErr.Status)
	}
}

func TestClientDo_AdminAuth_SetsAdminKeyHeader(t *testing.T) {
	var gotKey, gotUsername string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Admin-Key")
		gotUsername = r.Header.Get("X-Username")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	_, err := client.Do(context.Background(), http.MethodGet, "/admin/users", nil, &RequestOptions{AdminAuth: true})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if gotKey != "test-admin-key" {
		t.Errorf("X-Admin-Keyヘッダーが送信されていません: %q", gotKey)
	}
	if gotUsername != "" {
		t.Errorf("X-Usernameヘッダーは未設定のはずですが %q でした", gotUsername)
	}
}

func TestClientDo_Username_SetsUsernameHeader(t *testing.T) {
	var gotKey, gotUsername string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Admin-Key")
		gotUsername = r.Header.Get("X-Username")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	_, err := client.Do(context.Background(), http.MethodGet, "/users/1/accesses", nil, &RequestOptions{Username: "alice"})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if gotUsername != "alice" {
		t.Errorf("X-Usernameヘッダー alice を期待しましたが %q でした", gotUsername)
	}
	if gotKey != "" {
		t.Errorf("X-Admin-Keyヘッダーは未設定のはずですが %q でした", gotKey)
	}
}

func TestClientDo_ContextCancelled_StopsRetrying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, 3)
	_, err := client.Do(ctx, http.MethodGet, "/admin/users", nil, nil)
	if err == nil {
		t.Fatal("キャンセル済みコンテキストでエラーが返りませんでした")
	}
}

func TestRequestError_APIError_Mapping(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindValidation, "VALIDATION_ERROR"},
		{KindAuth, "AUTHORIZATION_ERROR"},
		{KindNotFound, "NOT_FOUND"},
		{KindConflict, "CONFLICT"},
		{KindNetwork, "INTERNAL_SERVER_ERROR"},
		{KindServer, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range tests {
		apiErr := (&RequestError{Kind: tt.kind, Message: "msg"}).APIError()
		if string(apiErr.Type) != tt.want {
			t.Errorf("%s: エラータイプ %s を期待しましたが %s でした", tt.kind, tt.want, apiErr.Type)
		}
	}
}
