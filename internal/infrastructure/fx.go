package infrastructure

import (
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/bot"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/database"
	httpfx "github.com/Conte777/tgnewsfeed/internal/infrastructure/http"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/kafka"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/logger"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/telegram"
	"go.uber.org/fx"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	database.Module,
	metrics.Module,
	telegram.Module,
	kafka.Module,
	httpfx.Module,
	bot.Module,
)
