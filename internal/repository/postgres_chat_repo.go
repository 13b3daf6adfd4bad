package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/IsakHolmdahl/accesshub/internal/model"
)

// PostgresChatRepo はPostgreSQLを使用したチャットリポジトリ。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

// FindTranscript は指定ユーザーのトランスクリプトをメッセージの挿入順で取得する。
func (r *PostgresChatRepo) FindTranscript(ctx context.Context, userID int64) (*model.ChatTranscript, error) {
	transcript := &model.ChatTranscript{UserID: userID}

	var sessionPK int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, updated_at
		 FROM chat_sessions
		 WHERE user_id = $1`,
		userID,
	).Scan(&sessionPK, &transcript.SessionID, &transcript.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, sender, tools_used, accesses_granted, created_at
		 FROM chat_messages
		 WHERE chat_session_id = $1
		 ORDER BY seq`,
		sessionPK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.ChatMessage
		var toolsUsed, accessesGranted pq.StringArray
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Sender, &toolsUsed, &accessesGranted, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if len(toolsUsed) > 0 || len(accessesGranted) > 0 {
			msg.Metadata = &model.MessageMetadata{
				ToolsUsed:       toolsUsed,
				AccessesGranted: accessesGranted,
			}
		}
		transcript.Messages = append(transcript.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return transcript, nil
}

// CreateSession は指定ユーザーの新しいチャットセッションを作成する。
// すでに存在する場合は何もしない。
func (r *PostgresChatRepo) CreateSession(ctx context.Context, userID int64, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, session_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	return nil
}

// AppendMessages はトランスクリプトの末尾にメッセージを挿入順で追記する。
// 追記とupdated_atの更新は同一トランザクションで行う。
func (r *PostgresChatRepo) AppendMessages(ctx context.Context, userID int64, messages []model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sessionPK, nextSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT cs.id, COALESCE(MAX(cm.seq), 0) + 1
		 FROM chat_sessions cs
		 LEFT JOIN chat_messages cm ON cm.chat_session_id = cs.id
		 WHERE cs.user_id = $1
		 GROUP BY cs.id`,
		userID,
	).Scan(&sessionPK, &nextSeq)
	if err == sql.ErrNoRows {
		return fmt.Errorf("chat session not found for user %d", userID)
	}
	if err != nil {
		return fmt.Errorf("failed to find chat session: %w", err)
	}

	for i, msg := range messages {
		var toolsUsed, accessesGranted pq.StringArray
		if msg.Metadata != nil {
			toolsUsed = msg.Metadata.ToolsUsed
			accessesGranted = msg.Metadata.AccessesGranted
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chat_messages (id, chat_session_id, seq, content, sender, tools_used, accesses_granted, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, sessionPK, nextSeq+int64(i), msg.Content, msg.Sender, toolsUsed, accessesGranted, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chat message: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = now() WHERE id = $1`,
		sessionPK,
	)
	if err != nil {
		return fmt.Errorf("failed to touch chat session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateSessionID はエージェントが発行したセッションIDに更新する。
func (r *PostgresChatRepo) UpdateSessionID(ctx context.Context, userID int64, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET session_id = $2, updated_at = now() WHERE user_id = $1`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session id: %w", err)
	}
	return nil
}

// ResetSession はメッセージの全削除と新しいセッションIDの発行を
// 同一トランザクションで行う。メッセージとセッションIDが不整合な
// 状態を外部に見せない。
func (r *PostgresChatRepo) ResetSession(ctx context.Context, userID int64, newSessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM chat_messages
		 WHERE chat_session_id IN (SELECT id FROM chat_sessions WHERE user_id = $1)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET session_id = $2, updated_at = now() WHERE user_id = $1`,
		userID, newSessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset session id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteOlderThan は最終更新がcutoffより古いトランスクリプトを削除する。
// メッセージはON DELETE CASCADEで同時に削除される。
func (r *PostgresChatRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old chat sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)
