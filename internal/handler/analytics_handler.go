package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/IsakHolmdahl/accesshub/internal/backend"
	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/model"
)

const maxAnalyticsLimit = 1000

// AnalyticsService は分析クエリの転送先インターフェース。
type AnalyticsService interface {
	ExecuteAnalyticsQuery(ctx context.Context, req backend.AnalyticsQueryRequest) (json.RawMessage, error)
}

// AnalyticsHandler は管理者向け分析クエリのHTTPハンドラー。
// クエリ本文はバックエンドに転送され、結果は加工せずそのまま返す。
type AnalyticsHandler struct {
	service AnalyticsService
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// analyticsQueryRequest は分析クエリリクエストのボディ。
type analyticsQueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Query は読み取り専用のSQLクエリをバックエンドで実行する。
// POST /api/admin/analytics/query
func (h *AnalyticsHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req analyticsQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		middleware.WriteAPIError(w, model.NewValidationError(
			"クエリを入力してください。",
			map[string]any{"field": "query"},
		))
		return
	}
	if req.Limit < 0 || req.Limit > maxAnalyticsLimit {
		middleware.WriteAPIError(w, model.NewValidationError(
			"limitは0から1000の範囲で指定してください。",
			map[string]any{"field": "limit"},
		))
		return
	}

	result, err := h.service.ExecuteAnalyticsQuery(r.Context(), backend.AnalyticsQueryRequest{
		Query: req.Query,
		Limit: req.Limit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}
