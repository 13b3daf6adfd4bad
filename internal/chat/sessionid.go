// Package chat はチャットトランスクリプトの管理とエージェント対話を提供する。
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID は新しいチャットセッションIDを生成する。
// 時刻成分とランダム成分の組で、新しいチャットごとに高確率で一意となる。
// グローバルな一意性は保証しない。
func NewSessionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
}
