package infra

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	portmocks "github.com/bnema/dcloud-assistant/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *http.Request) string {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	return string(body)
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context, domain.InfraLogin) (string, error) {
	return s.token, s.err
}

func testCatalog(t *testing.T) Catalog {
	t.Helper()

	catalog, err := LoadCatalog()
	require.NoError(t, err)
	return catalog
}

func TestInfraResolveEndpoint(t *testing.T) {
	t.Parallel()

	subcloud := domain.Instance{Name: "subcloud1", URL: "https://10.10.20.1:5000", Kind: domain.KindSubcloud}

	oracle := portmocks.NewMockCompleter(t)
	oracle.EXPECT().Complete(mock.Anything, mock.MatchedBy(func(req ports.CompletionRequest) bool {
		return strings.Contains(req.System, "asked to a subcloud") &&
			strings.HasPrefix(req.User, "Context:- GET 18002/v1/alarms") &&
			strings.HasSuffix(req.User, " \n\n\n Question:list my alarms") &&
			!strings.Contains(req.User, "8119/v1.0/subclouds") &&
			req.Temperature == endpointTemperature
	})).Return("api: 18002/v1/alarms", nil).Once()

	client := NewClient(oracle, testCatalog(t), staticTokens{}, http.DefaultClient, zerolog.Nop())
	endpoint, err := client.ResolveEndpoint(context.Background(), "list my alarms", subcloud)
	require.NoError(t, err)
	assert.Equal(t, "https://10.10.20.1:18002/v1/alarms", endpoint)
}

func TestInfraResolveEndpointErrors(t *testing.T) {
	t.Parallel()

	controller := domain.Instance{Name: domain.DefaultInstanceName, URL: "http://10.10.10.1:5000", Kind: domain.KindControllerCloud}

	tests := []struct {
		name       string
		completion string
		oracleErr  error
		wantErr    error
	}{
		{name: "no colon", completion: "18002/v1/alarms", wantErr: domain.ErrEndpointFormat},
		{name: "empty path", completion: "api:  ", wantErr: domain.ErrEndpointFormat},
		{name: "oracle down", oracleErr: errors.New("503"), wantErr: domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			oracle := portmocks.NewMockCompleter(t)
			oracle.EXPECT().Complete(mock.Anything, mock.Anything).Return(tt.completion, tt.oracleErr).Once()

			client := NewClient(oracle, testCatalog(t), staticTokens{}, http.DefaultClient, zerolog.Nop())
			_, err := client.ResolveEndpoint(context.Background(), "q", controller)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInfraAuthenticateAndCall(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "infra-token", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"alarms":[]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(nil, testCatalog(t), staticTokens{token: "infra-token"}, server.Client(), zerolog.Nop())
	header, err := client.Authenticate(context.Background(), domain.Instance{})
	require.NoError(t, err)

	resp, err := client.Call(context.Background(), server.URL+"/v1/alarms", header)
	require.NoError(t, err)
	assert.Equal(t, `{"alarms":[]}`, client.Shape(resp.Body))
	assert.Equal(t, "Wind River API", client.SourceLabel(server.URL))
}

func TestInfraAuthenticatePropagatesAuthError(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, testCatalog(t), staticTokens{err: &domain.AuthError{StatusCode: 401, Body: "nope"}}, http.DefaultClient, zerolog.Nop())
	_, err := client.Authenticate(context.Background(), domain.Instance{})

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
}
