package telegram

import (
	"context"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the Telegram content provider for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewContentProviderFx),
)

// NewContentProviderFx creates the MTProto client and connects it on start.
// Failure to connect at startup aborts the application.
func NewContentProviderFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	logger zerolog.Logger,
) (deps.ContentProvider, error) {
	client, err := NewMTProtoClient(MTProtoClientConfig{
		APIID:       telegramCfg.APIID,
		APIHash:     telegramCfg.APIHash,
		PhoneNumber: telegramCfg.PhoneNumber,
		SessionDir:  telegramCfg.SessionDir,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			connectCtx, cancel := context.WithTimeout(ctx, telegramCfg.ConnectTimeout)
			defer cancel()

			if err := client.Connect(connectCtx); err != nil {
				logger.Error().Err(err).Msg("Failed to connect to Telegram")
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client, nil
}
