package app

import (
	"time"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure"
	"go.uber.org/fx"
)

// startTimeout leaves room for an interactive Telegram login on first run
const startTimeout = 6 * time.Minute

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		fx.StartTimeout(startTimeout),
		infrastructure.Module,
		domain.Module,
	)
}
