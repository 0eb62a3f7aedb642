package telegram

import (
	"context"
	"slices"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/consts"
)

// Router registers Telegram bot handlers
type Router struct {
	handlers *Handlers
	logger   zerolog.Logger
}

// NewRouter creates new Telegram router
func NewRouter(handlers *Handlers, logger zerolog.Logger) *Router {
	return &Router{
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterRoutes registers all command, menu button and callback handlers on the bot
func (r *Router) RegisterRoutes(bot *tgbot.Bot) {
	h := r.handlers

	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandStart), h.HandleStart)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandHelp, consts.ButtonHelp), h.HandleHelp)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandFeed, consts.ButtonFeed), h.HandleFeed)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandSaved, consts.ButtonSaved), h.HandleSaved)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandSuggest, consts.ButtonSuggest), h.HandleSuggest)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandFeedback), h.HandleFeedback)

	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandStats), h.HandleStats)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandAddChannel), h.HandleAddChannel)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandSuggestions), h.HandleSuggestions)
	bot.RegisterHandlerMatchFunc(matchCommand(consts.CommandUpdate), h.HandleUpdate)

	bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "", tgbot.MatchTypePrefix, h.HandleCallback)

	r.logger.Info().Msg("All Telegram command handlers registered successfully")
}

// RegisterCommandsMenu publishes the public commands in the client menu
func (r *Router) RegisterCommandsMenu(ctx context.Context, bot *tgbot.Bot) error {
	commands := make([]models.BotCommand, 0, len(consts.AllCommands))
	for _, cmd := range consts.AllCommands {
		if cmd.AdminOnly {
			continue
		}
		commands = append(commands, models.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}

	_, err := bot.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{Commands: commands})
	return err
}

// matchCommand matches "/name", "/name args" and "/name@botname", plus exact menu button labels
func matchCommand(cmd consts.Command, buttons ...string) tgbot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		return isCommand(update.Message.Text, cmd.Name) || slices.Contains(buttons, update.Message.Text)
	}
}

func isCommand(text, name string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}

	word, _, _ := strings.Cut(fields[0], "@")
	return word == "/"+name
}

func isMenuButton(text string) bool {
	return slices.Contains([]string{consts.ButtonFeed, consts.ButtonSaved, consts.ButtonSuggest, consts.ButtonHelp}, text)
}
