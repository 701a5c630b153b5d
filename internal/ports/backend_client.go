package ports

import (
	"context"
	"net/http"

	"github.com/bnema/dcloud-assistant/internal/domain"
)

type BackendResponse struct {
	StatusCode int
	Body       []byte
}

// BackendClient is one management API family. The dispatcher drives every
// variant through the same resolve, authenticate, call and shape sequence.
type BackendClient interface {
	Pool() domain.BackendPool
	ResolveEndpoint(ctx context.Context, query string, instance domain.Instance) (string, error)
	Authenticate(ctx context.Context, instance domain.Instance) (http.Header, error)
	// Call reports a non-200 answer as a *domain.BackendError.
	Call(ctx context.Context, endpoint string, header http.Header) (BackendResponse, error)
	Shape(body []byte) string
	SourceLabel(endpoint string) string
}
