// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// ChatRepository はチャットトランスクリプトの永続化インターフェース。
// ユーザーごとに1つのアクティブなトランスクリプトを保持する。
type ChatRepository interface {
	// FindTranscript は指定ユーザーのトランスクリプトを取得する。
	// 存在しない場合はnilを返す。
	FindTranscript(ctx context.Context, userID int64) (*model.ChatTranscript, error)

	// CreateSession は指定ユーザーの新しいチャットセッションを作成する。
	// すでに存在する場合はセッションIDを置き換えない。
	CreateSession(ctx context.Context, userID int64, sessionID string) error

	// AppendMessages はトランスクリプトの末尾にメッセージを挿入順で追記する。
	// セッションが存在しない場合はエラーを返す。
	AppendMessages(ctx context.Context, userID int64, messages []model.ChatMessage) error

	// UpdateSessionID はエージェントが発行したセッションIDに更新する。
	UpdateSessionID(ctx context.Context, userID int64, sessionID string) error

	// ResetSession はメッセージの全削除と新しいセッションIDの発行を
	// 同一トランザクションで行う。
	ResetSession(ctx context.Context, userID int64, newSessionID string) error

	// DeleteOlderThan は最終更新がcutoffより古いトランスクリプトを削除し、
	// 削除したセッション数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
