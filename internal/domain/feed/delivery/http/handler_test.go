package http

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockConnection struct {
	connected bool
}

func (m *mockConnection) IsConnected() bool {
	return m.connected
}

func serveHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	h.Handle(&ctx)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))

	return ctx.Response.StatusCode(), response
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		connected  bool
		wantCode   int
		wantStatus HealthStatus
	}{
		{"all healthy", nil, true, fasthttp.StatusOK, HealthStatusHealthy},
		{"provider disconnected", nil, false, fasthttp.StatusOK, HealthStatusDegraded},
		{"database down", errors.New("db closed"), true, fasthttp.StatusOK, HealthStatusDegraded},
		{"everything down", errors.New("db closed"), false, fasthttp.StatusServiceUnavailable, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthHandler(&mockPinger{err: tt.pingErr}, &mockConnection{connected: tt.connected}, zerolog.Nop())

			code, response := serveHealth(t, h)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, response.Status)
			require.Len(t, response.Components, 2)
			assert.Equal(t, "database", response.Components[0].Name)
			assert.Equal(t, tt.pingErr == nil, response.Components[0].Healthy)
			assert.Equal(t, "telegram_provider", response.Components[1].Name)
			assert.Equal(t, tt.connected, response.Components[1].Healthy)
		})
	}
}

func TestRouter_RegisterRoutes(t *testing.T) {
	rt := router.New()
	NewRouter(newHealthHandler(&mockPinger{}, &mockConnection{connected: true}, zerolog.Nop())).RegisterRoutes(rt)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	rt.Handler(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}
