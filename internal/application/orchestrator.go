package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const insufficientContextInstruction = "If an API response is given as context and it lacks this information, or no context is given, answer 'I don't know'. Do not provide commands unless the user explicitly asks for them. Read the entire context before answering."

type Answer struct {
	Text     string
	Fallback bool
	// Dispatch is set when the first answer was judged uninformative.
	Dispatch *domain.APICallResult
}

// AskPhase is the step an Ask call has reached.
type AskPhase string

const (
	PhaseRecall   AskPhase = "recall"
	PhaseLiveAPI  AskPhase = "live_api"
	PhaseReanswer AskPhase = "reanswer"
)

// AskObserver hears about phase changes on the goroutine running Ask.
type AskObserver func(AskPhase)

type Orchestrator struct {
	sessions   *SessionManager
	router     *QueryRouter
	dispatcher *Dispatcher
	generator  *AnswerGenerator
	judge      *SentimentJudge
	logger     zerolog.Logger
}

func NewOrchestrator(
	sessions *SessionManager,
	router *QueryRouter,
	dispatcher *Dispatcher,
	generator *AnswerGenerator,
	judge *SentimentJudge,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		router:     router,
		dispatcher: dispatcher,
		generator:  generator,
		judge:      judge,
		logger:     logger,
	}
}

func (o *Orchestrator) AskSession(ctx context.Context, id, query string) (Answer, error) {
	session, ok := o.sessions.Get(id)
	if !ok {
		return Answer{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return o.Ask(ctx, session, query), nil
}

// Ask answers from memory first. An uninformative answer triggers one live
// dispatch, a memory rebuild from its result, and a single re-answer.
func (o *Orchestrator) Ask(ctx context.Context, session *Session, query string) Answer {
	return o.AskObserved(ctx, session, query, nil)
}

// AskObserved is Ask with an observer told when the next phase starts.
func (o *Orchestrator) AskObserved(ctx context.Context, session *Session, query string, observe AskObserver) Answer {
	if observe == nil {
		observe = func(AskPhase) {}
	}

	observe(PhaseRecall)
	first, err := o.generator.Answer(ctx, session.Model, session.Memory, query+". "+insufficientContextInstruction)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", session.ID).Msg("answer generation failed")
		return Answer{Text: generationFailureText(err)}
	}

	if !o.judge.IsNegative(ctx, query, first) {
		return Answer{Text: first}
	}

	metrics.FallbackTotal.Inc()
	o.logger.Info().Str("session", session.ID).Msg("answer judged uninformative; querying live API")

	observe(PhaseLiveAPI)
	result := o.Dispatch(ctx, query)
	if !result.OK() {
		return Answer{Text: result.Text(), Fallback: true, Dispatch: &result}
	}

	observe(PhaseReanswer)
	session.Memory.Rebuild(ctx, result.Text())

	second, err := o.generator.Answer(ctx, session.Model, session.Memory, query)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", session.ID).Msg("answer generation failed after dispatch")
		return Answer{Text: generationFailureText(err), Fallback: true, Dispatch: &result}
	}

	return Answer{Text: second, Fallback: true, Dispatch: &result}
}

// Dispatch routes the query to an instance and a pool, then calls the backend.
func (o *Orchestrator) Dispatch(ctx context.Context, query string) domain.APICallResult {
	var (
		instance domain.Instance
		pool     domain.BackendPool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resolved, err := o.router.ResolveInstance(gctx, query)
		if err != nil {
			return err
		}
		instance = resolved
		return nil
	})
	g.Go(func() error {
		classified, err := o.router.ClassifyPool(gctx, query)
		if err != nil {
			return err
		}
		pool = classified
		return nil
	})

	if err := g.Wait(); err != nil {
		o.logger.Warn().Err(err).Msg("query routing failed")
		status := domain.CallNotFound
		if errors.Is(err, domain.ErrTransport) {
			status = domain.CallNetworkError
		}
		return domain.APICallResult{Status: status, Pool: pool, Instance: instance.Name, Detail: err.Error()}
	}

	o.logger.Info().Str("instance", instance.Name).Msg("Query being made to instance")
	o.logger.Info().Str("pool", string(pool)).Msg("LLM defined the API subject")

	if pool == domain.PoolUndefined {
		return domain.APICallResult{Status: domain.CallNotFound, Pool: pool, Instance: instance.Name, Detail: "query matches no backend pool"}
	}

	return o.dispatcher.Dispatch(ctx, query, instance, pool)
}

func generationFailureText(err error) string {
	return "An error occurred while generating the answer, please try again.\n Error: " + err.Error()
}
