package infra

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/adapters/backend"
	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

const (
	sourceLabel         = "Wind River API"
	endpointTemperature = 0.4
)

const endpointSystemPrompt = `You are an API generator. Based on the user question you suggest the best API endpoint to retrieve the information from a Wind River cluster.
Look in the context for the available APIs. The endpoint must be present in the context; check what each API does to pick the ideal one for the question. The question is being asked to a %s.
Answer strictly with the format: api: <api_url>
Read the entire context before answering.`

var _ ports.BackendClient = (*Client)(nil)

// Client talks to the infrastructure REST services of an instance using
// Keystone tokens.
type Client struct {
	oracle     ports.Completer
	catalog    Catalog
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(oracle ports.Completer, catalog Catalog, tokens TokenSource, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		oracle:     oracle,
		catalog:    catalog,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Pool() domain.BackendPool {
	return domain.PoolInfraAPI
}

func (c *Client) ResolveEndpoint(ctx context.Context, query string, instance domain.Instance) (string, error) {
	base, err := instance.InfraBaseURL()
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrEndpointFormat, err)
	}

	completion, err := c.oracle.Complete(ctx, ports.CompletionRequest{
		System:      fmt.Sprintf(endpointSystemPrompt, instance.Kind),
		User:        fmt.Sprintf("Context:%s \n\n\n Question:%s", c.catalog.Context(instance.Kind), query),
		Temperature: endpointTemperature,
	})
	metrics.ObserveOracle("endpoint", err)
	if err != nil {
		return "", fmt.Errorf("%w: resolve infra endpoint: %w", domain.ErrTransport, err)
	}

	path, err := domain.ParseCompletion(completion)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty infra path", domain.ErrEndpointFormat)
	}

	return base + path, nil
}

func (c *Client) Authenticate(ctx context.Context, instance domain.Instance) (http.Header, error) {
	token, err := c.tokens.Token(ctx, instance.Credential.Infra)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("X-Auth-Token", token)
	return header, nil
}

func (c *Client) Call(ctx context.Context, endpoint string, header http.Header) (ports.BackendResponse, error) {
	return backend.Get(ctx, c.httpClient, endpoint, header)
}

// Shape passes the body through: the infra services already scope results to
// the authenticated project.
func (c *Client) Shape(body []byte) string {
	return string(body)
}

func (c *Client) SourceLabel(string) string {
	return sourceLabel
}
