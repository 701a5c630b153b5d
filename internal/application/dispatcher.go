package application

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

// Dispatcher runs the resolve endpoint, authenticate, call, shape pipeline for
// whichever BackendClient serves the requested pool.
type Dispatcher struct {
	clients map[domain.BackendPool]ports.BackendClient
	logger  zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger, clients ...ports.BackendClient) *Dispatcher {
	byPool := make(map[domain.BackendPool]ports.BackendClient, len(clients))
	for _, client := range clients {
		byPool[client.Pool()] = client
	}

	return &Dispatcher{clients: byPool, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, query string, instance domain.Instance, pool domain.BackendPool) domain.APICallResult {
	started := time.Now()
	result := d.dispatch(ctx, query, instance, pool)

	metrics.DispatchTotal.WithLabelValues(string(pool), string(result.Status)).Inc()
	metrics.DispatchDuration.WithLabelValues(string(pool)).Observe(time.Since(started).Seconds())

	if !result.OK() {
		d.logger.Warn().
			Str("instance", instance.Name).
			Str("pool", string(pool)).
			Str("status", string(result.Status)).
			Str("endpoint", result.Endpoint).
			Int("status_code", result.StatusCode).
			Str("detail", result.Detail).
			Msg("dispatch failed")
	}

	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, query string, instance domain.Instance, pool domain.BackendPool) domain.APICallResult {
	result := domain.APICallResult{Pool: pool, Instance: instance.Name}

	client, ok := d.clients[pool]
	if !ok {
		result.Status = domain.CallNotFound
		result.Detail = "no backend client for pool " + string(pool)
		return result
	}

	endpoint, err := client.ResolveEndpoint(ctx, query, instance)
	if err != nil {
		result.Detail = err.Error()
		if errors.Is(err, domain.ErrTransport) {
			result.Status = domain.CallNetworkError
		} else {
			result.Status = domain.CallFormatError
		}
		return result
	}
	result.Endpoint = endpoint

	header, err := client.Authenticate(ctx, instance)
	if err != nil {
		result.Status = domain.CallAuthFailed
		result.Detail = err.Error()
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			result.StatusCode = authErr.StatusCode
			result.Payload = authErr.Body
		}
		return result
	}

	d.logger.Info().Str("endpoint", endpoint).Str("instance", instance.Name).Str("pool", string(pool)).Msg("API address")

	resp, err := client.Call(ctx, endpoint, header)
	var backendErr *domain.BackendError
	switch {
	case errors.As(err, &backendErr):
		result.Status = domain.CallBackendError
		result.StatusCode = backendErr.StatusCode
		result.Payload = backendErr.Body
		result.Detail = err.Error()
		return result
	case err != nil:
		result.Status = domain.CallNetworkError
		result.Detail = err.Error()
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Status = domain.CallOK
	result.Source = client.SourceLabel(endpoint)
	result.Payload = client.Shape(resp.Body)
	return result
}
