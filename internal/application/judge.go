package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

const judgeSystemPrompt = `You analyse the sentiment of an answer given to a user question. Look for clues telling whether the answer provides information about what was asked. Phrases such as "I'm sorry", "no context", "no information" or "I don't know", a statement of not having access to the information, or directives the user never asked for make the answer negative. Otherwise it is positive.
Answer only "positive" or "negative".`

var negativeIndicators = []string{
	"i don't know",
	"i'm sorry",
	"no context",
	"no information",
	"don't have access",
}

// SentimentJudge decides whether an answer failed to address its question.
type SentimentJudge struct {
	oracle ports.Completer
	logger zerolog.Logger
}

func NewSentimentJudge(oracle ports.Completer, logger zerolog.Logger) *SentimentJudge {
	return &SentimentJudge{oracle: oracle, logger: logger}
}

func (j *SentimentJudge) IsNegative(ctx context.Context, question, answer string) bool {
	verdict, err := j.oracle.Complete(ctx, ports.CompletionRequest{
		System: judgeSystemPrompt,
		User:   fmt.Sprintf("Question: %s\nAnswer: %s", question, answer),
	})
	metrics.ObserveOracle("sentiment", err)
	if err != nil {
		j.logger.Warn().Err(err).Msg("sentiment oracle failed; using phrase heuristics")
		return containsNegativeIndicator(answer)
	}

	return strings.Contains(strings.ToLower(verdict), "negative")
}

func containsNegativeIndicator(answer string) bool {
	lower := strings.ToLower(strings.ReplaceAll(answer, "’", "'"))
	if strings.TrimSpace(lower) == "" {
		return true
	}
	for _, phrase := range negativeIndicators {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
