package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/tgnewsfeed/config"
	httpDelivery "github.com/Conte777/tgnewsfeed/internal/domain/feed/delivery/http"
	telegramDelivery "github.com/Conte777/tgnewsfeed/internal/domain/feed/delivery/telegram"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/repository/storage"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/usecase/business"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/workers"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/bot"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/http/server"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
)

// Module provides feed domain components for fx DI
var Module = fx.Module("feed",
	// Repository
	fx.Provide(storage.NewRepository),

	// UseCase
	fx.Provide(
		business.NewEngine,
		business.NewUseCase,
		provideChannelUpdater,
	),

	// Delivery - HTTP
	fx.Provide(
		httpDelivery.NewHealthHandler,
		httpDelivery.NewRouter,
	),

	// Delivery - Telegram bot
	fx.Provide(
		provideTelegramHandlers,
		telegramDelivery.NewRouter,
	),

	// Workers
	workers.Module,

	fx.Invoke(registerRoutes),
)

// provideChannelUpdater exposes the engine to the scheduler
func provideChannelUpdater(engine *business.Engine) deps.ChannelUpdater {
	return engine
}

// provideTelegramHandlers creates bot handlers sending through the raw bot
func provideTelegramHandlers(
	uc *business.UseCase,
	b *bot.Bot,
	botCfg *config.BotConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *telegramDelivery.Handlers {
	return telegramDelivery.NewHandlers(uc, b.Raw(), botCfg, logger, m)
}

// registerRoutes registers HTTP and bot routes, publishes the bot command menu and
// starts polling. The polling hook is appended after every hook of the store,
// publisher and provider the handlers use, so the bot stops before them.
func registerRoutes(
	lc fx.Lifecycle,
	srv *server.Server,
	httpRouter *httpDelivery.Router,
	b *bot.Bot,
	botRouter *telegramDelivery.Router,
	handlers *telegramDelivery.Handlers,
	logger zerolog.Logger,
) {
	httpRouter.RegisterRoutes(srv.Router)
	botRouter.RegisterRoutes(b.Raw())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			menuCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := botRouter.RegisterCommandsMenu(menuCtx, b.Raw()); err != nil {
				logger.Warn().Err(err).Msg("Failed to register bot commands menu")
			}
			return nil
		},
	})

	bot.RegisterLifecycle(lc, b, handlers.Wait)
}
