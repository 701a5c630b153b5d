package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

const (
	kubernetesPoolKeyword = "kubernetes"
	infraPoolKeyword      = "wind river"
	routingTemperature    = 0.1
)

const poolSystemPrompt = `You are an AI assistant connected to a Wind River distributed cloud. Based on the user query you decide which set of APIs is best to retrieve the information needed to answer it: Wind River APIs (alarms, patches, subclouds, hosts, system information) or Kubernetes APIs (pods, namespaces, deployments, services, nodes and other workloads).
Do not provide the API itself. Answer only "Wind River" or "Kubernetes" and nothing else.
Example: "List my active alarms." -> Wind River`

const instanceSystemPrompt = `You choose a node in a Distributed Cloud environment. Decide which one of the available instances the user is asking about. Exactly one instance must be given.
Answer with the format: name: <name>
Nothing else may be in the answer.
If the query does not name any instance, answer "name: %s". Never choose a subcloud that is not explicitly asked about.

Available instances:
%s`

type QueryRouter struct {
	oracle   ports.Completer
	registry *InstanceRegistry
	logger   zerolog.Logger
}

func NewQueryRouter(oracle ports.Completer, registry *InstanceRegistry, logger zerolog.Logger) *QueryRouter {
	return &QueryRouter{oracle: oracle, registry: registry, logger: logger}
}

// ResolveInstance asks the oracle which registry entry the query targets. An
// answer that matches no entry is ErrRoutingAmbiguous, never the default.
func (r *QueryRouter) ResolveInstance(ctx context.Context, query string) (domain.Instance, error) {
	completion, err := r.oracle.Complete(ctx, ports.CompletionRequest{
		System:      fmt.Sprintf(instanceSystemPrompt, domain.DefaultInstanceName, r.instanceCatalog()),
		User:        "User query: " + query,
		Temperature: routingTemperature,
	})
	metrics.ObserveOracle("instance", err)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("%w: resolve instance: %w", domain.ErrTransport, err)
	}

	value, err := domain.ParseCompletion(completion)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("%w: %w", domain.ErrRoutingAmbiguous, err)
	}

	name := domain.NormalizeInstanceName(value)
	r.logger.Info().Str("completion", completion).Str("name", name).Msg("instance completion normalized")

	instance, ok := r.registry.Lookup(name)
	if !ok {
		return domain.Instance{}, fmt.Errorf("%w: no instance named %q", domain.ErrRoutingAmbiguous, name)
	}

	return instance, nil
}

// ClassifyPool returns PoolUndefined, not an error, when the label names neither
// or both pools.
func (r *QueryRouter) ClassifyPool(ctx context.Context, query string) (domain.BackendPool, error) {
	completion, err := r.oracle.Complete(ctx, ports.CompletionRequest{
		System:      poolSystemPrompt,
		User:        "User query: " + query,
		Temperature: routingTemperature,
	})
	metrics.ObserveOracle("pool", err)
	if err != nil {
		return domain.PoolUndefined, fmt.Errorf("%w: classify pool: %w", domain.ErrTransport, err)
	}

	pool := classifyLabel(completion)
	r.logger.Info().Str("completion", completion).Str("pool", string(pool)).Msg("API pool defined")

	return pool, nil
}

func classifyLabel(label string) domain.BackendPool {
	normalized := strings.ToLower(label)
	isKubernetes := strings.Contains(normalized, kubernetesPoolKeyword)
	isInfra := strings.Contains(normalized, infraPoolKeyword)

	switch {
	case isKubernetes && !isInfra:
		return domain.PoolKubernetes
	case isInfra && !isKubernetes:
		return domain.PoolInfraAPI
	default:
		return domain.PoolUndefined
	}
}

func (r *QueryRouter) instanceCatalog() string {
	var b strings.Builder
	for _, instance := range r.registry.List() {
		fmt.Fprintf(&b, "- %s (%s)\n", instance.Name, instance.Kind)
	}
	return b.String()
}
