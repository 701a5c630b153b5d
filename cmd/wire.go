package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/dcloud-assistant/internal/adapters/backend"
	"github.com/bnema/dcloud-assistant/internal/adapters/backend/infra"
	"github.com/bnema/dcloud-assistant/internal/adapters/backend/kubernetes"
	"github.com/bnema/dcloud-assistant/internal/adapters/llm/openai"
	answeradapter "github.com/bnema/dcloud-assistant/internal/adapters/render/answer"
	chainstore "github.com/bnema/dcloud-assistant/internal/adapters/secrets/chain"
	"github.com/bnema/dcloud-assistant/internal/application"
	"github.com/bnema/dcloud-assistant/internal/config"
	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/logging"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

type app struct {
	cfg              config.Config
	logger           zerolog.Logger
	registry         *application.InstanceRegistry
	sessions         *application.SessionManager
	orchestrator     *application.Orchestrator
	answerRenderer   func(application.Answer, answeradapter.RenderOptions) (string, error)
	instanceRenderer func([]domain.Instance) (string, error)
}

// appLoader wires the application on first use so that commands such as
// version work without any configuration.
type appLoader struct {
	opts config.Options

	once sync.Once
	app  *app
	err  error
}

func (l *appLoader) load(ctx context.Context) (*app, error) {
	l.once.Do(func() {
		l.app, l.err = wireApp(ctx, l.opts)
	})
	return l.app, l.err
}

func wireApp(ctx context.Context, opts config.Options) (*app, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	logger := logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		FilePath:  cfg.Log.File,
		Component: "dca",
	})
	if cfg.Backend.InsecureSkipVerify {
		logger.Warn().Msg("TLS certificate verification is disabled for backend API calls")
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.Secrets.Dir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	registry, err := application.NewInstanceRegistry(ctx, application.ControllerConfig{
		URL:           cfg.Controller.URL,
		Token:         cfg.Controller.Token,
		InfraUser:     cfg.Infra.User,
		InfraPassword: cfg.Infra.Password,
	}, cfg.Registry.SubcloudsFile, secretStore, logger)
	if err != nil {
		return nil, err
	}

	llm, err := openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, domain.ConfigError("%v", err)
	}

	catalog, err := infra.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("wire infra api catalog: %w", err)
	}

	clock := ports.SystemClock{}
	httpClient := backend.NewHTTPClient(backend.TransportConfig{
		Timeout:            cfg.Backend.Timeout,
		InsecureSkipVerify: cfg.Backend.InsecureSkipVerify,
	})
	tokens := infra.NewTokenCache(infra.NewKeystone(httpClient), cfg.Infra.TokenTTL, clock)

	dispatcher := application.NewDispatcher(logger,
		kubernetes.NewClient(llm, httpClient, logger.With().Str("pool", string(domain.PoolKubernetes)).Logger()),
		infra.NewClient(llm, catalog, tokens, httpClient, logger.With().Str("pool", string(domain.PoolInfraAPI)).Logger()),
	)

	sessions := application.NewSessionManager(application.SessionManagerConfig{
		Capacity: cfg.Sessions.Capacity,
		Cooldown: cfg.Sessions.Cooldown,
	}, llm, llm, clock, logger)

	orchestrator := application.NewOrchestrator(
		sessions,
		application.NewQueryRouter(llm, registry, logger),
		dispatcher,
		application.NewAnswerGenerator(clock, logger),
		application.NewSentimentJudge(llm, logger),
		logger,
	)

	return &app{
		cfg:              cfg,
		logger:           logger,
		registry:         registry,
		sessions:         sessions,
		orchestrator:     orchestrator,
		answerRenderer:   answeradapter.Render,
		instanceRenderer: answeradapter.RenderInstances,
	}, nil
}
