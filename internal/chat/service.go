// Package chat answers natural-language questions: it translates a question
// into SQL and, when the translation names a real table and column, runs it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/duckmesh/querychat/internal/nl2sql"
	"github.com/duckmesh/querychat/internal/observability"
	"github.com/duckmesh/querychat/internal/query"
)

var ErrEmptyQuestion = errors.New("question is empty")

type Answer struct {
	Question string
	SQL      string
	Intent   nl2sql.Intent
	Table    string
	Column   string
	Executed bool
	Result   query.Result
}

// Service handles one question at a time.
type Service struct {
	translator nl2sql.Translator
	engine     query.Engine
	logger     *slog.Logger

	mu sync.Mutex
}

func NewService(translator nl2sql.Translator, engine query.Engine, logger *slog.Logger) (*Service, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	return &Service{translator: translator, engine: engine, logger: logger}, nil
}

func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	translated, err := s.translator.Translate(ctx, nl2sql.Request{Question: strings.ToLower(question)})
	if err != nil {
		return Answer{}, fmt.Errorf("translate question: %w", err)
	}
	observability.ObserveQuestion(string(translated.Intent))
	observability.SetSchemaTables(translated.TableCount)

	answer := Answer{
		Question: question,
		SQL:      translated.SQL,
		Intent:   translated.Intent,
		Table:    translated.Table,
		Column:   translated.Column,
	}

	if !translated.Executable() {
		stage := "column"
		if translated.Table == "" {
			stage = "table"
		}
		observability.ObserveResolutionFailure(stage)
		observability.RequestLogger(ctx, s.logger).InfoContext(ctx, "question unresolved",
			slog.String("stage", stage),
			slog.String("table", translated.Table),
		)
		return answer, nil
	}

	answer.Result = query.Run(ctx, s.engine, translated.SQL)
	answer.Executed = true
	observability.ObserveExecution(answer.Result.Failed, answer.Result.Duration)

	logger := observability.RequestLogger(ctx, s.logger)
	attrs := []any{
		slog.String("intent", string(translated.Intent)),
		slog.String("table", translated.Table),
		slog.String("column", translated.Column),
		slog.Int("rows", len(answer.Result.Rows)),
		slog.Duration("duration", answer.Result.Duration),
	}
	if answer.Result.Failed {
		logger.WarnContext(ctx, "question execution failed", attrs...)
	} else {
		logger.InfoContext(ctx, "question answered", attrs...)
	}
	return answer, nil
}
