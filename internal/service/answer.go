package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/telemetry"
)

const (
	// NotReadyAnswer is returned while nothing has been indexed.
	NotReadyAnswer = "Sorry, the system is not ready yet. Please upload some files first."

	// RetrievalK is the number of units handed to the answering model.
	RetrievalK = 3
)

const rewritePrompt = `You rewrite questions about building shift logs so they work well for semantic search.
Correct grammar and spelling, clarify ambiguous references, and expand abbreviations
and building-management terminology with common synonyms.
Return only the rewritten question, nothing else.

Question: %s

Rewritten question:`

const answerPrompt = `You are a helpful assistant for building managers. Use the provided context
from shift logs to answer questions accurately and helpfully in a human like manner.
Use only the provided context.

If the context doesn't contain relevant information, say so clearly.
Keep your answers concise but informative.

Context from shift logs:
%s

Question: %s

Answer:`

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever is the read side of the index manager.
type Retriever interface {
	Ready() bool
	EnsureReady(ctx context.Context) error
	HasDocuments() bool
	Retrieve(ctx context.Context, query string, k int) ([]domain.TextUnit, error)
}

// AnswerService answers questions from indexed shift logs.
type AnswerService struct {
	index     Retriever
	generator Generator
	logger    *slog.Logger
}

func NewAnswerService(index Retriever, generator Generator, logger *slog.Logger) *AnswerService {
	return &AnswerService{
		index:     index,
		generator: generator,
		logger:    logger.With("component", "answer"),
	}
}

// Answer runs rewrite, retrieval and synthesis. Failures are reported in the
// answer text and never returned as errors.
func (s *AnswerService) Answer(ctx context.Context, question string) *domain.Answer {
	s.ensureIndex(ctx)
	if !s.index.Ready() || !s.index.HasDocuments() {
		return &domain.Answer{
			Answer:           NotReadyAnswer,
			Sources:          []domain.SourceAttribution{},
			EnhancedQuestion: question,
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "answer", telemetry.SpanAttributes{Operation: "chat"})
	defer span.End()

	enhanced := s.rewrite(ctx, question)

	units, err := s.index.Retrieve(ctx, enhanced, RetrievalK)
	if err != nil {
		span.SetError(err)
		return s.failed(enhanced, err)
	}

	answer, err := s.generator.Generate(ctx, fmt.Sprintf(answerPrompt, buildContext(units), enhanced))
	if err != nil {
		span.SetError(err)
		return s.failed(enhanced, err)
	}

	return &domain.Answer{
		Answer:           strings.TrimSpace(answer),
		Sources:          DedupSources(units),
		EnhancedQuestion: enhanced,
	}
}

// ensureIndex makes one provisioning attempt while the index is down, so an
// index that comes back with documents already in it is answered from again.
func (s *AnswerService) ensureIndex(ctx context.Context) {
	if s.index.Ready() {
		return
	}
	if err := s.index.EnsureReady(ctx); err != nil {
		s.logger.Warn("vector index not ready", "error", err)
	}
}

// rewrite falls back to the original question on any failure.
func (s *AnswerService) rewrite(ctx context.Context, question string) string {
	out, err := s.generator.Generate(ctx, fmt.Sprintf(rewritePrompt, question))
	if err != nil {
		s.logger.Warn("query rewrite failed, using original question", "error", err)
		return question
	}
	out = strings.TrimSpace(out)
	if out == "" {
		s.logger.Warn("query rewrite returned nothing, using original question")
		return question
	}
	return out
}

func (s *AnswerService) failed(enhanced string, err error) *domain.Answer {
	s.logger.Error("answering failed", "error", err)
	return &domain.Answer{
		Answer:           "Sorry, I encountered an error: " + err.Error(),
		Sources:          []domain.SourceAttribution{},
		EnhancedQuestion: enhanced,
	}
}

// DedupSources keeps the first unit per filename, in retrieval order.
func DedupSources(units []domain.TextUnit) []domain.SourceAttribution {
	seen := make(map[string]struct{}, len(units))
	out := make([]domain.SourceAttribution, 0, len(units))
	for _, u := range units {
		name := u.Metadata.Filename
		if name == "" {
			name = "Unknown"
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, domain.SourceAttribution{Filename: name, Path: u.Metadata.StoredPath})
	}
	return out
}

func buildContext(units []domain.TextUnit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(u.Content)
	}
	return b.String()
}
