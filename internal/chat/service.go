package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IsakHolmdahl/accesshub/internal/agent"
	"github.com/IsakHolmdahl/accesshub/internal/model"
	"github.com/IsakHolmdahl/accesshub/internal/repository"
	"github.com/IsakHolmdahl/accesshub/internal/security"
)

// AgentClient はチャットエージェントへの送信インターフェース。
// agent.Clientの部分集合として定義する。
type AgentClient interface {
	Chat(ctx context.Context, req agent.ChatRequest) (*agent.ChatResponse, error)
}

// Metrics はチャットサービスが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordChatMessage(sender string)
}

// noopMetrics はメトリクス未設定時のフォールバック。
type noopMetrics struct{}

func (noopMetrics) RecordChatMessage(string) {}

// Service はチャットトランスクリプトの読み込み・送信・クリアを提供する。
// トランスクリプトとセッションIDは常に同一の論理操作で更新される。
type Service struct {
	repo      repository.ChatRepository
	agent     AgentClient
	sanitizer security.ContentSanitizerService
	metrics   Metrics
	logger    *slog.Logger

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
	// newSessionID はテストでID生成を差し替えるためのフック。
	newSessionID func() string
}

// NewService はServiceを生成する。
func NewService(repo repository.ChatRepository, agentClient AgentClient, sanitizer security.ContentSanitizerService, m Metrics, logger *slog.Logger) *Service {
	if m == nil {
		m = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		agent:        agentClient,
		sanitizer:    sanitizer,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
		newSessionID: NewSessionID,
	}
}

// Load は指定ユーザーのトランスクリプトを取得する。
// トランスクリプトが存在しない場合は新しいセッションIDを発行して空の
// トランスクリプトを返す。最初の送信メッセージが必ずIDを持つようにするため。
func (s *Service) Load(ctx context.Context, userID int64) (*model.ChatTranscript, error) {
	transcript, err := s.repo.FindTranscript(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transcript != nil {
		return transcript, nil
	}

	sessionID := s.newSessionID()
	if err := s.repo.CreateSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	// 同時リクエストが先にセッションを作成した場合に備えて再読込する
	transcript, err = s.repo.FindTranscript(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		transcript = &model.ChatTranscript{UserID: userID, SessionID: sessionID}
	}
	return transcript, nil
}

// Send はユーザーメッセージをエージェントに送信し、更新後のトランスクリプトを返す。
// ユーザーメッセージはエージェント呼び出し前に保存されるため、
// エージェントが失敗しても送信済みメッセージは失われない。
func (s *Service) Send(ctx context.Context, sess *model.Session, message string) (*model.ChatTranscript, error) {
	if apiErr := model.ValidateChatMessage(message); apiErr != nil {
		return nil, apiErr
	}

	transcript, err := s.Load(ctx, sess.User.ID)
	if err != nil {
		return nil, err
	}

	userMsg := model.ChatMessage{
		ID:        uuid.NewString(),
		Content:   message,
		Sender:    model.SenderUser,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.AppendMessages(ctx, sess.User.ID, []model.ChatMessage{userMsg}); err != nil {
		return nil, err
	}
	s.metrics.RecordChatMessage(string(model.SenderUser))

	resp, err := s.agent.Chat(ctx, agent.ChatRequest{
		Message:   message,
		UserID:    sess.User.ID,
		Username:  sess.User.Username,
		SessionID: transcript.SessionID,
	})
	if err != nil {
		return nil, err
	}

	// エージェントが新しいセッションIDを発行した場合はそれに従う
	if resp.SessionID != "" && resp.SessionID != transcript.SessionID {
		if err := s.repo.UpdateSessionID(ctx, sess.User.ID, resp.SessionID); err != nil {
			return nil, err
		}
	}

	agentMsg := model.ChatMessage{
		ID:        uuid.NewString(),
		Content:   s.sanitizer.Sanitize(resp.Response),
		Sender:    model.SenderAgent,
		Timestamp: s.now().UTC(),
	}
	if len(resp.ToolsUsed) > 0 || len(resp.AccessesGranted) > 0 {
		agentMsg.Metadata = &model.MessageMetadata{
			ToolsUsed:       resp.ToolsUsed,
			AccessesGranted: resp.AccessesGranted,
		}
	}
	if err := s.repo.AppendMessages(ctx, sess.User.ID, []model.ChatMessage{agentMsg}); err != nil {
		return nil, err
	}
	s.metrics.RecordChatMessage(string(model.SenderAgent))

	if len(resp.AccessesGranted) > 0 {
		s.logger.Info("accesses granted via chat",
			slog.Int64("user_id", sess.User.ID),
			slog.Any("accesses", resp.AccessesGranted),
		)
	}

	return s.repo.FindTranscript(ctx, sess.User.ID)
}

// Clear はトランスクリプトを空にし、新しいセッションIDを発行する。
// 2つの変更は同一の論理操作で行われ、不整合な状態を残さない。
func (s *Service) Clear(ctx context.Context, userID int64) (*model.ChatTranscript, error) {
	transcript, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	newID := s.newSessionID()
	if err := s.repo.ResetSession(ctx, userID, newID); err != nil {
		return nil, err
	}

	s.logger.Info("chat cleared",
		slog.Int64("user_id", userID),
		slog.String("previous_session_id", transcript.SessionID),
	)

	return s.repo.FindTranscript(ctx, userID)
}
