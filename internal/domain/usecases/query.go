package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// ContextSeparator joins passage texts into the answer context.
const ContextSeparator = "\n"

// Retrieve returns the passages relevant to query: the index's k nearest,
// minus those scoring below the threshold, minus repeated texts, best first.
// Conversation history plays no part in retrieval.
func (s *RetrievalService) Retrieve(ctx context.Context, sess *Session, query string) ([]entities.Passage, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.retrieveLocked(ctx, sess, query)
}

func (s *RetrievalService) retrieveLocked(ctx context.Context, sess *Session, query string) ([]entities.Passage, error) {
	hits, err := sess.index.Search(ctx, query, s.opts.TopK)
	if err != nil {
		if errors.Is(err, entities.ErrRetrievalUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", entities.ErrRetrievalUnavailable, err)
	}

	passages := make([]entities.Passage, 0, len(hits))
	texts := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if h.Score < s.opts.Threshold {
			continue
		}
		if _, ok := texts[h.Passage.Text]; ok {
			continue
		}
		texts[h.Passage.Text] = struct{}{}
		passages = append(passages, h.Passage)
	}
	s.log.Debug("retrieved passages", zap.Int("hits", len(hits)), zap.Int("kept", len(passages)))
	return passages, nil
}

// Ask retrieves passages relevant to question and asks the answer generator for
// a reply over the trailing history window, the question included. The question
// and its answer join the session history together.
//
// When retrieval fails no answer is generated. When answer generation fails the
// response still carries the retrieved passages and the error is returned too;
// the history is left unchanged in both cases.
func (s *RetrievalService) Ask(ctx context.Context, sess *Session, question string) (*entities.ChatResponse, error) {
	if s.answerer == nil {
		return nil, fmt.Errorf("%w: no answer generator configured", entities.ErrAnswerGeneration)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	passages, err := s.retrieveLocked(ctx, sess, question)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	sess.relevant = passages

	userTurn := entities.ChatTurn{Role: entities.RoleUser, Content: question}
	turns := append(sess.window(s.opts.HistoryWindow-1), userTurn)
	answer, err := s.answerer.GenerateAnswer(ctx, turns, JoinContext(passages))
	if err != nil {
		err = fmt.Errorf("%w: %w", entities.ErrAnswerGeneration, err)
		s.log.Error("answer generation failed", zap.String("session", sess.ID), zap.Error(err))
		return &entities.ChatResponse{Passages: passages, AnswerErr: err}, err
	}

	sess.history = append(sess.history, userTurn, entities.ChatTurn{Role: entities.RoleAssistant, Content: answer})
	return &entities.ChatResponse{Answer: answer, Passages: passages}, nil
}

// JoinContext concatenates passage texts in retrieval order.
func JoinContext(passages []entities.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, ContextSeparator)
}
