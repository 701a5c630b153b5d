package application

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bnema/dcloud-assistant/internal/adapters/backend/kubernetes"
	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const namespacesBody = `{"kind":"NamespaceList","items":[{"metadata":{"name":"default"}},{"metadata":{"name":"myapp"}}]}`

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func isKubernetesEndpoint(req ports.CompletionRequest) bool {
	return strings.Contains(req.System, "Kubernetes cluster")
}

// clusterOracle behaves like a well-formed model: it only knows the namespaces
// once they are in the retrieved context.
func clusterOracle(overrides func(ports.CompletionRequest) (string, bool, error)) *scriptedOracle {
	return &scriptedOracle{respond: func(req ports.CompletionRequest) (string, error) {
		if overrides != nil {
			if answer, ok, err := overrides(req); ok {
				return answer, err
			}
		}

		switch {
		case isJudge(req):
			if strings.Contains(req.User, "I don't know") {
				return "negative", nil
			}
			return "positive", nil
		case isInstance(req):
			return "name: System Controller", nil
		case isPool(req):
			return "Kubernetes", nil
		case isKubernetesEndpoint(req):
			return "api: /api/v1/namespaces", nil
		case isCondense(req):
			return "What are my namespaces?", nil
		case isAnswer(req):
			if strings.Contains(req.System, "myapp") {
				return "Your namespaces are default and myapp.", nil
			}
			return "I don't know.", nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

type clusterStub struct {
	calls atomic.Int32
	t     *testing.T
}

func (s *clusterStub) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	assert.Equal(s.t, "https://10.10.10.1:6443/api/v1/namespaces", req.URL.String())
	assert.Equal(s.t, "Bearer "+controllerToken, req.Header.Get("Authorization"))

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(namespacesBody)),
		Request:    req,
	}, nil
}

func newTestOrchestrator(t *testing.T, oracle *scriptedOracle, transport http.RoundTripper) (*Orchestrator, *SessionManager) {
	t.Helper()

	logger := zerolog.Nop()
	clock := newFakeClock()
	registry := newTestRegistry(t, `[{"name": "subcloud1", "URL": "https://10.10.20.1:5000", "k8s_token": "tok-1"}]`)
	kube := kubernetes.NewClient(oracle, &http.Client{Transport: transport}, logger)

	sessions := NewSessionManager(SessionManagerConfig{}, oracle, nil, clock, logger)
	orchestrator := NewOrchestrator(
		sessions,
		NewQueryRouter(oracle, registry, logger),
		NewDispatcher(logger, kube),
		NewAnswerGenerator(clock, logger),
		NewSentimentJudge(oracle, logger),
		logger,
	)
	return orchestrator, sessions
}

func TestAskFallsBackToLiveNamespaces(t *testing.T) {
	t.Parallel()

	oracle := clusterOracle(nil)
	stub := &clusterStub{t: t}
	orchestrator, sessions := newTestOrchestrator(t, oracle, stub)

	session, err := sessions.Create()
	require.NoError(t, err)

	answer, err := orchestrator.AskSession(context.Background(), session.ID, "What are my namespaces?")
	require.NoError(t, err)

	assert.True(t, answer.Fallback)
	assert.Equal(t, "Your namespaces are default and myapp.", answer.Text)
	assert.NotContains(t, answer.Text, "I don't know")
	require.NotNil(t, answer.Dispatch)
	assert.Equal(t, domain.CallOK, answer.Dispatch.Status)
	assert.Equal(t, "https://10.10.10.1:6443/api/v1/namespaces", answer.Dispatch.Endpoint)

	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, 1, oracle.count(isJudge))
	assert.Equal(t, 2, oracle.count(isAnswer))

	chunks := session.Memory.Chunks()
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "API https://10.10.10.1:6443/api/v1/namespaces response from System Controller = "))

	// system seed, then two question/answer pairs
	assert.Len(t, session.Memory.Turns(), 5)
}

func TestAskInformativeAnswerSkipsDispatch(t *testing.T) {
	t.Parallel()

	oracle := clusterOracle(func(req ports.CompletionRequest) (string, bool, error) {
		if isAnswer(req) {
			return "You asked this before: default and myapp.", true, nil
		}
		return "", false, nil
	})
	stub := &clusterStub{t: t}
	orchestrator, sessions := newTestOrchestrator(t, oracle, stub)

	session, err := sessions.Create()
	require.NoError(t, err)

	answer := orchestrator.Ask(context.Background(), session, "What are my namespaces?")
	assert.False(t, answer.Fallback)
	assert.Nil(t, answer.Dispatch)
	assert.Zero(t, stub.calls.Load())
	assert.Zero(t, oracle.count(isPool))
	assert.Zero(t, oracle.count(isInstance))
}

func TestAskDispatchFailuresAreReturnedVerbatim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		override   func(ports.CompletionRequest) (string, bool, error)
		wantStatus domain.CallStatus
		wantText   string
	}{
		{
			name: "undefined pool",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isPool(req) {
					return "I am not sure", true, nil
				}
				return "", false, nil
			},
			wantStatus: domain.CallNotFound,
			wantText:   domain.ClientErrorMessage,
		},
		{
			name: "unknown instance",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isInstance(req) {
					return "name: subcloud7", true, nil
				}
				return "", false, nil
			},
			wantStatus: domain.CallNotFound,
			wantText:   domain.ClientErrorMessage,
		},
		{
			name: "malformed endpoint",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isKubernetesEndpoint(req) {
					return "/api/v1/namespaces", true, nil
				}
				return "", false, nil
			},
			wantStatus: domain.CallFormatError,
			wantText:   domain.ClientErrorMessage,
		},
		{
			name: "oracle unreachable while routing",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isInstance(req) {
					return "", true, errors.New("dial tcp: connection refused")
				}
				return "", false, nil
			},
			wantStatus: domain.CallNetworkError,
			wantText:   "An error occurred while trying to retrieve the information, please rewrite the question and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			oracle := clusterOracle(tt.override)
			stub := &clusterStub{t: t}
			orchestrator, sessions := newTestOrchestrator(t, oracle, stub)

			session, err := sessions.Create()
			require.NoError(t, err)

			answer := orchestrator.Ask(context.Background(), session, "What are my namespaces?")
			assert.True(t, answer.Fallback)
			require.NotNil(t, answer.Dispatch)
			assert.Equal(t, tt.wantStatus, answer.Dispatch.Status)
			assert.True(t, strings.HasPrefix(answer.Text, tt.wantText), answer.Text)

			assert.Zero(t, stub.calls.Load())
			assert.Equal(t, []string{placeholderText}, session.Memory.Chunks())
			assert.Equal(t, 1, oracle.count(isAnswer), "no re-answer after a failed dispatch")
		})
	}
}

func TestAskClusterRejectionIsReturnedVerbatim(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	forbidden := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader(`namespaces is forbidden`)),
			Request:    req,
		}, nil
	})

	oracle := clusterOracle(nil)
	orchestrator, sessions := newTestOrchestrator(t, oracle, forbidden)

	session, err := sessions.Create()
	require.NoError(t, err)

	answer := orchestrator.Ask(context.Background(), session, "What are my namespaces?")
	assert.True(t, answer.Fallback)
	require.NotNil(t, answer.Dispatch)
	assert.Equal(t, domain.CallBackendError, answer.Dispatch.Status)
	assert.Equal(t, http.StatusForbidden, answer.Dispatch.StatusCode)
	assert.Equal(t, "Error trying to make API request:\n 403, namespaces is forbidden", answer.Text)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{placeholderText}, session.Memory.Chunks())
	assert.Equal(t, 1, oracle.count(isAnswer))
}

func TestAskObservedReportsPhases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		override func(ports.CompletionRequest) (string, bool, error)
		want     []AskPhase
	}{
		{
			name: "answered from memory",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isAnswer(req) {
					return "You have two namespaces.", true, nil
				}
				return "", false, nil
			},
			want: []AskPhase{PhaseRecall},
		},
		{
			name: "live API then re-answer",
			want: []AskPhase{PhaseRecall, PhaseLiveAPI, PhaseReanswer},
		},
		{
			name: "live API fails",
			override: func(req ports.CompletionRequest) (string, bool, error) {
				if isPool(req) {
					return "no idea", true, nil
				}
				return "", false, nil
			},
			want: []AskPhase{PhaseRecall, PhaseLiveAPI},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			orchestrator, sessions := newTestOrchestrator(t, clusterOracle(tt.override), &clusterStub{t: t})
			session, err := sessions.Create()
			require.NoError(t, err)

			var phases []AskPhase
			orchestrator.AskObserved(context.Background(), session, "What are my namespaces?", func(phase AskPhase) {
				phases = append(phases, phase)
			})
			assert.Equal(t, tt.want, phases)
		})
	}
}

func TestAskFallsBackAtMostOnce(t *testing.T) {
	t.Parallel()

	oracle := clusterOracle(func(req ports.CompletionRequest) (string, bool, error) {
		if isAnswer(req) {
			return "I don't know.", true, nil
		}
		return "", false, nil
	})
	stub := &clusterStub{t: t}
	orchestrator, sessions := newTestOrchestrator(t, oracle, stub)

	session, err := sessions.Create()
	require.NoError(t, err)

	answer := orchestrator.Ask(context.Background(), session, "What are my namespaces?")
	assert.True(t, answer.Fallback)
	assert.Equal(t, "I don't know.", answer.Text)
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, 1, oracle.count(isJudge))
}

func TestAskGenerationFailure(t *testing.T) {
	t.Parallel()

	oracle := clusterOracle(func(req ports.CompletionRequest) (string, bool, error) {
		if isAnswer(req) {
			return "", true, errors.New("model overloaded")
		}
		return "", false, nil
	})
	orchestrator, sessions := newTestOrchestrator(t, oracle, &clusterStub{t: t})

	session, err := sessions.Create()
	require.NoError(t, err)

	answer := orchestrator.Ask(context.Background(), session, "What are my namespaces?")
	assert.False(t, answer.Fallback)
	assert.True(t, strings.HasPrefix(answer.Text, "An error occurred while generating the answer"))
	assert.Contains(t, answer.Text, "model overloaded")
	assert.Zero(t, oracle.count(isJudge))
}

func TestAskSessionUnknown(t *testing.T) {
	t.Parallel()

	orchestrator, _ := newTestOrchestrator(t, clusterOracle(nil), &clusterStub{t: t})
	_, err := orchestrator.AskSession(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDispatchRoutesToSubcloud(t *testing.T) {
	t.Parallel()

	oracle := clusterOracle(func(req ports.CompletionRequest) (string, bool, error) {
		if isInstance(req) {
			return "name: subcloud1", true, nil
		}
		return "", false, nil
	})
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://10.10.20.1:6443/api/v1/namespaces", req.URL.String())
		assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"items":[]}`)), Request: req}, nil
	})
	orchestrator, _ := newTestOrchestrator(t, oracle, transport)

	result := orchestrator.Dispatch(context.Background(), "namespaces on subcloud1")
	require.Equal(t, domain.CallOK, result.Status)
	assert.Equal(t, "subcloud1", result.Instance)
	assert.Equal(t, domain.PoolKubernetes, result.Pool)
}
