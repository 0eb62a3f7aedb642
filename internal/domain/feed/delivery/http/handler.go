package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
)

const healthCheckTimeout = 5 * time.Second

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// StorePinger reports storage availability
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker reports the content provider connection state
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler handles HTTP health check requests
type HealthHandler struct {
	store    StorePinger
	provider ConnectionChecker
	logger   zerolog.Logger
}

// HealthHandlerParams defines parameters for HealthHandler
type HealthHandlerParams struct {
	fx.In

	Store    deps.PostStore
	Provider deps.ContentProvider
	Logger   zerolog.Logger
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return newHealthHandler(params.Store, params.Provider, params.Logger)
}

func newHealthHandler(store StorePinger, provider ConnectionChecker, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Handle handles the health check request for fasthttp
func (h *HealthHandler) Handle(ctx *fasthttp.RequestCtx) {
	checkCtx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	components := h.checkComponents(checkCtx)
	status := determineOverallStatus(components)

	response := HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}

	statusCode := fasthttp.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = fasthttp.StatusServiceUnavailable
	}

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	} else if status == HealthStatusDegraded {
		logEvent = h.logger.Info()
	}
	logEvent.
		Str("status", string(status)).
		Int("status_code", statusCode).
		Interface("components", components).
		Msg("Health check completed")

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)

	body, err := json.Marshal(response)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health check response")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}

func (h *HealthHandler) checkComponents(ctx context.Context) []ComponentHealth {
	components := make([]ComponentHealth, 0, 2)

	dbHealth := ComponentHealth{Name: "database", Healthy: true}
	if err := h.store.Ping(ctx); err != nil {
		dbHealth.Healthy = false
		dbHealth.Message = "Database is not reachable"
	}
	components = append(components, dbHealth)

	providerHealth := ComponentHealth{Name: "telegram_provider", Healthy: h.provider.IsConnected()}
	if !providerHealth.Healthy {
		providerHealth.Message = "Telegram client is not connected"
	}
	components = append(components, providerHealth)

	return components
}

// determineOverallStatus determines overall health status based on component health
func determineOverallStatus(components []ComponentHealth) HealthStatus {
	allHealthy := true
	anyHealthy := false

	for _, component := range components {
		if !component.Healthy {
			allHealthy = false
		} else {
			anyHealthy = true
		}
	}

	if allHealthy {
		return HealthStatusHealthy
	} else if anyHealthy {
		return HealthStatusDegraded
	}

	return HealthStatusUnhealthy
}
