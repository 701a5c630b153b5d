package application

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	controllerURL   = "http://10.10.10.1:5000"
	controllerToken = "controller-token"
)

// scriptedOracle answers by matching on the prompt and records every request.
type scriptedOracle struct {
	mu       sync.Mutex
	respond  func(req ports.CompletionRequest) (string, error)
	requests []ports.CompletionRequest
}

func (o *scriptedOracle) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	o.mu.Unlock()
	return o.respond(req)
}

func (o *scriptedOracle) count(match func(ports.CompletionRequest) bool) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, req := range o.requests {
		if match(req) {
			n++
		}
	}
	return n
}

func isJudge(req ports.CompletionRequest) bool    { return req.System == judgeSystemPrompt }
func isPool(req ports.CompletionRequest) bool     { return req.System == poolSystemPrompt }
func isInstance(req ports.CompletionRequest) bool { return strings.HasPrefix(req.System, "You choose a node") }
func isCondense(req ports.CompletionRequest) bool { return strings.Contains(req.User, "Standalone question:") }
func isAnswer(req ports.CompletionRequest) bool {
	return strings.HasPrefix(req.System, "Use the following pieces of context")
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeBackendClient struct {
	pool        domain.BackendPool
	endpoint    string
	endpointErr error
	header      http.Header
	authErr     error
	resp        ports.BackendResponse
	callErr     error

	mu    sync.Mutex
	auths int
	calls []string
}

func (f *fakeBackendClient) Pool() domain.BackendPool {
	return f.pool
}

func (f *fakeBackendClient) ResolveEndpoint(context.Context, string, domain.Instance) (string, error) {
	return f.endpoint, f.endpointErr
}

func (f *fakeBackendClient) Authenticate(context.Context, domain.Instance) (http.Header, error) {
	f.mu.Lock()
	f.auths++
	f.mu.Unlock()
	return f.header, f.authErr
}

func (f *fakeBackendClient) Call(_ context.Context, endpoint string, _ http.Header) (ports.BackendResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint)
	f.mu.Unlock()
	return f.resp, f.callErr
}

func (f *fakeBackendClient) Shape(body []byte) string {
	return "shaped:" + string(body)
}

func (f *fakeBackendClient) SourceLabel(endpoint string) string {
	return "API " + endpoint
}

func newTestRegistry(t *testing.T, descriptor string) *InstanceRegistry {
	t.Helper()

	registry, err := NewInstanceRegistry(context.Background(), ControllerConfig{
		URL:           controllerURL,
		Token:         controllerToken,
		InfraUser:     "admin",
		InfraPassword: "secret",
	}, writeDescriptor(t, descriptor), nil, zerolog.Nop())
	require.NoError(t, err)
	return registry
}
