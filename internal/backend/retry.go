// Package backend は外部アクセス管理APIへのリトライ付きHTTPクライアントを提供する。
package backend

import (
	"math/rand"
	"time"
)

// Classification はHTTPステータスコードに基づく失敗の分類。
type Classification int

const (
	// ClassOK はリクエスト成功（2xx）。
	ClassOK Classification = iota
	// ClassTerminal は即座に失敗を返すべきステータス（429を除く4xx）。
	ClassTerminal
	// ClassRetryable はリトライ対象のステータス（429/5xx）。
	ClassRetryable
)

const (
	// DefaultTimeout は1試行あたりのタイムアウト。
	DefaultTimeout = 30 * time.Second
	// DefaultRetries は初回試行後の追加試行回数。
	DefaultRetries = 3
	// DefaultBaseDelay は指数バックオフの基準遅延。
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxBackoff は指数バックオフの最大遅延。
	DefaultMaxBackoff = 30 * time.Second
	// jitterRatio はバックオフ遅延に乗じるジッターの振れ幅（±25%）。
	jitterRatio = 0.25
)

// ClassifyStatus はHTTPステータスコードを分類する。
// ネットワークエラー・タイムアウト・5xx・429はリトライ対象、
// それ以外の4xxは即時失敗として扱う。
func ClassifyStatus(statusCode int) Classification {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ClassOK
	case statusCode == 429:
		return ClassRetryable
	case statusCode >= 500:
		return ClassRetryable
	default:
		return ClassTerminal
	}
}

// Backoff はリトライn回目（0始まり）の前に挿入する遅延をジッター無しで計算する。
// min(maxBackoff, baseDelay * 2^n)。
func Backoff(attempt int, baseDelay, maxBackoff time.Duration) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// BackoffWithJitter はBackoffの結果に±25%の一様ジッターを乗算で適用する。
// 複数クライアントのリトライが同期して殺到するのを避けるため。
func BackoffWithJitter(attempt int, baseDelay, maxBackoff time.Duration, rnd *rand.Rand) time.Duration {
	delay := Backoff(attempt, baseDelay, maxBackoff)
	// 乗数は [1-jitterRatio, 1+jitterRatio] の一様分布
	factor := 1 - jitterRatio + 2*jitterRatio*rnd.Float64()
	return time.Duration(float64(delay) * factor)
}
