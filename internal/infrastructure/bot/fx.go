package bot

import (
	"context"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides Telegram bot for fx dependency injection.
// Polling is started by the domain through RegisterLifecycle once routes are registered.
var Module = fx.Module("bot",
	fx.Provide(provideBot),
)

// provideBot creates Telegram bot from config
func provideBot(cfg *config.BotConfig, logger zerolog.Logger) (*Bot, error) {
	return NewBot(cfg.Token, cfg.Workers, logger)
}

// poller is a blocking update loop, satisfied by *Bot
type poller interface {
	Start(ctx context.Context)
}

// RegisterLifecycle starts long polling on application start. On stop polling is
// cancelled first, then drain waits for handler work still in flight.
// The hook must be appended after the hooks of everything the handlers use,
// so that fx stops the bot before them.
func RegisterLifecycle(lc fx.Lifecycle, bot poller, drain func(ctx context.Context) error) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})

			go func() {
				defer close(done)
				bot.Start(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()

			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}

			if drain == nil {
				return nil
			}
			return drain(ctx)
		},
	})
}
