package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultTopK = 1

const condensePrompt = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

const answerSystemPrompt = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s`

// AnswerGenerator answers a question from a session's memory: condense the
// follow-up against the history, retrieve the best chunk, answer, record the turn.
type AnswerGenerator struct {
	topK   int
	clock  ports.Clock
	logger zerolog.Logger
}

func NewAnswerGenerator(clock ports.Clock, logger zerolog.Logger) *AnswerGenerator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &AnswerGenerator{topK: DefaultTopK, clock: clock, logger: logger}
}

func (g *AnswerGenerator) Answer(ctx context.Context, model ports.Completer, memory *RetrievalMemory, question string) (string, error) {
	history := memory.Turns()

	standalone := question
	if hasDialogue(history) {
		condensed, err := model.Complete(ctx, ports.CompletionRequest{
			User: fmt.Sprintf(condensePrompt, formatHistory(history), question),
		})
		metrics.ObserveOracle("condense", err)
		if err != nil {
			return "", fmt.Errorf("condense question: %w", err)
		}
		if condensed = strings.TrimSpace(condensed); condensed != "" {
			standalone = condensed
		}
	}

	retrieved := strings.Join(memory.Search(ctx, standalone, g.topK), "\n\n")
	answer, err := model.Complete(ctx, ports.CompletionRequest{
		System: fmt.Sprintf(answerSystemPrompt, retrieved),
		User:   standalone,
	})
	metrics.ObserveOracle("answer", err)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	now := g.clock.Now()
	memory.AppendTurn(domain.Turn{Role: domain.RoleUser, Content: question, At: now})
	memory.AppendTurn(domain.Turn{Role: domain.RoleAssistant, Content: answer, At: now})

	g.logger.Debug().Str("question", standalone).Int("history", len(history)).Msg("answer generated")

	return answer, nil
}

func hasDialogue(turns []domain.Turn) bool {
	for _, turn := range turns {
		if turn.Role != domain.RoleSystem {
			return true
		}
	}
	return false
}

func formatHistory(turns []domain.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case domain.RoleUser:
			b.WriteString("Human: ")
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("System: ")
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// datetimeTurn seeds a new conversation with the current date and time.
func datetimeTurn(now time.Time) domain.Turn {
	return domain.Turn{
		Role:    domain.RoleSystem,
		Content: "Current date and time: " + now.Format(time.DateTime),
		At:      now,
	}
}
