package backend

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
)

const (
	DefaultTimeout   = 30 * time.Second
	maxResponseBytes = 16 << 20
)

type TransportConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NewHTTPClient builds the client shared by every backend call. Management
// endpoints usually present self-signed certificates, so verification is
// configurable.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // configurable, warned at startup

	return &http.Client{Timeout: timeout, Transport: transport}
}

// Get issues one GET without retries. Any failure before a status line is read
// wraps domain.ErrTransport; a status other than 200 comes back as a
// *domain.BackendError alongside the response.
func Get(ctx context.Context, client *http.Client, endpoint string, header http.Header) (ports.BackendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.BackendResponse{}, fmt.Errorf("%w: create request: %w", domain.ErrTransport, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ports.BackendResponse{}, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := ReadBody(resp)
	if err != nil {
		return ports.BackendResponse{}, err
	}

	out := ports.BackendResponse{StatusCode: resp.StatusCode, Body: body}
	if resp.StatusCode != http.StatusOK {
		return out, &domain.BackendError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return out, nil
}

func ReadBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", domain.ErrTransport, err)
	}
	return body, nil
}
