// Package model はドメインモデルを定義する。
package model

import "time"

// Sender はチャットメッセージの送信者種別を表す。
type Sender string

const (
	// SenderUser はユーザーが送信したメッセージ。
	SenderUser Sender = "user"
	// SenderAgent はエージェントが返信したメッセージ。
	SenderAgent Sender = "agent"
)

// MessageMetadata はエージェント応答に付随するメタデータを表す。
type MessageMetadata struct {
	ToolsUsed       []string `json:"tools_used,omitempty"`
	AccessesGranted []string `json:"accesses_granted,omitempty"`
}

// ChatMessage はチャットトランスクリプト中の1メッセージを表す。
// トランスクリプトは挿入順を保持する順序付き列である。
type ChatMessage struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Sender    Sender           `json:"sender"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// ChatTranscript はユーザー1人分のチャットトランスクリプトと
// チャットセッションIDの組を表す。メッセージとセッションIDは常に
// 同一の論理操作で更新され、不整合な状態を取らない。
type ChatTranscript struct {
	UserID    int64         `json:"user_id"`
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}
