// Package chat answers product questions from retrieved documents.
package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodrag/internal/logger"
	"github.com/kailas-cloud/prodrag/internal/metrics"
)

// Fixed replies.
const (
	Refusal = "I'm sorry, but your query violates our safety guidelines. I cannot process this request."
	Apology = "I'm sorry, but I encountered an error while trying to generate a response."
)

// Request is one user message with the prior conversation.
type Request struct {
	ConversationID string
	Message        string
	History        []domain.Turn
}

// Answer is the assistant reply and the documents it was grounded on.
type Answer struct {
	ConversationID string
	Text           string
	Blocked        bool
	Documents      []result.Item
}

// Service runs moderation, retrieval and generation.
type Service struct {
	search      Searcher
	completer   domain.Completer
	moderator   domain.Moderator
	temperature float32
	logger      *zap.Logger
}

// New creates a chat service. moderator can be nil.
func New(search Searcher, completer domain.Completer, moderator domain.Moderator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{search: search, completer: completer, moderator: moderator, logger: logger}
}

// WithTemperature sets the sampling temperature (default 0).
func (s *Service) WithTemperature(t float32) *Service {
	s.temperature = t
	return s
}

// Ask answers a message. Only a retrieval failure is returned as an error;
// a blocked message yields Refusal and a generation failure yields Apology.
func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	ans := Answer{ConversationID: req.ConversationID}
	if ans.ConversationID == "" {
		ans.ConversationID = uuid.NewString()
	}
	log := logpkg.FromContextOr(ctx, s.logger).With(zap.String("conversation_id", ans.ConversationID))

	if !s.isSafe(ctx, log, req.Message) {
		metrics.ModerationBlockedTotal.Inc()
		log.Info("Message blocked by moderation")
		ans.Text = Refusal
		ans.Blocked = true
		return ans, nil
	}

	resp, err := s.search.Search(ctx, req.Message)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve documents: %w", err)
	}
	ans.Documents = resp.Flatten()

	docs := make([]string, len(ans.Documents))
	for i, item := range ans.Documents {
		docs[i] = FormatDocument(item)
	}

	text, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: SystemPrompt(docs, req.History)},
			{Role: domain.RoleUser, Content: req.Message},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		log.Error("Response generation failed", zap.Error(err))
		ans.Text = Apology
		return ans, nil
	}

	log.Debug("Answer generated", zap.Int("documents", len(docs)))
	ans.Text = text
	return ans, nil
}

// isSafe fails open: an unavailable moderation model must not block users.
func (s *Service) isSafe(ctx context.Context, log *zap.Logger, msg string) bool {
	if s.moderator == nil {
		return true
	}
	safe, err := s.moderator.IsSafe(ctx, msg)
	if err != nil {
		log.Warn("Moderation failed, allowing message", zap.Error(err))
		return true
	}
	return safe
}
