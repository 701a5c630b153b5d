package kubernetes

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

const endpointSystemPrompt = `You are an API generator. Based on the user input you suggest the best API endpoint to retrieve the information from a Kubernetes cluster.
Only provide the part of the API that comes after IP:PORT, and make sure it is a valid endpoint.
Answer strictly with the format: api: <api_completion>`

var _ ports.BackendClient = (*Client)(nil)

// Client talks to the container API of an instance with its static bearer token.
type Client struct {
	oracle     ports.Completer
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(oracle ports.Completer, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{oracle: oracle, httpClient: httpClient, logger: logger}
}

func (c *Client) Pool() domain.BackendPool {
	return domain.PoolKubernetes
}

func (c *Client) ResolveEndpoint(ctx context.Context, query string, instance domain.Instance) (string, error) {
	base, err := instance.KubernetesBaseURL()
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrEndpointFormat, err)
	}

	completion, err := c.oracle.Complete(ctx, ports.CompletionRequest{
		System: endpointSystemPrompt,
		User:   query,
	})
	metrics.ObserveOracle("endpoint", err)
	if err != nil {
		return "", fmt.Errorf("%w: resolve kubernetes endpoint: %w", domain.ErrTransport, err)
	}

	path, err := domain.ParseCompletion(completion)
	if err != nil {
		return "", err
	}

	return BuildEndpoint(base, path)
}

// BuildEndpoint joins the API root and an oracle path. Any path mentioning
// version is pinned to /version.
func BuildEndpoint(base, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty kubernetes path", domain.ErrEndpointFormat)
	}

	endpoint := base + path
	if !strings.HasPrefix(path, "/") {
		endpoint = base + "/" + path
	}
	if strings.Contains(endpoint, "version") {
		return base + "/version", nil
	}

	return endpoint, nil
}

func (c *Client) Authenticate(_ context.Context, instance domain.Instance) (http.Header, error) {
	if strings.TrimSpace(instance.Credential.BearerToken) == "" {
		return nil, &domain.AuthError{Reason: fmt.Sprintf("no bearer token for instance %q", instance.Name)}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+instance.Credential.BearerToken)
	return header, nil
}

func (c *Client) Call(ctx context.Context, endpoint string, header http.Header) (ports.BackendResponse, error) {
	return backend.Get(ctx, c.httpClient, endpoint, header)
}

func (c *Client) Shape(body []byte) string {
	return FilterNamespaces(body)
}

func (c *Client) SourceLabel(endpoint string) string {
	return "API " + endpoint
}
