// Package telegram contains the conversational bot delivery of the feed
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/consts"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/tgnewsfeed/pkg/errors"
)

// RequestTimeout bounds a single Bot API call
const RequestTimeout = 30 * time.Second

// Sender is the subset of the Bot API the handlers use
type Sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
}

// FeedService is the read API and user actions the bot exposes
type FeedService interface {
	RegisterUser(ctx context.Context, userID int64) (*entities.User, error)
	LatestPosts(ctx context.Context, offset int) (*dto.FeedPage[entities.PostWithChannel], error)
	SavedPosts(ctx context.Context, userID int64, offset int) (*dto.FeedPage[entities.SavedPostWithChannel], error)
	SavePost(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error)
	DeleteSavedPost(ctx context.Context, userID int64, channelID uint, messageID int) (bool, error)
	AddSuggestion(ctx context.Context, userID *int64, rawUsername, comment string) (*entities.Suggestion, error)
	AddChannel(ctx context.Context, rawUsername string) (*dto.AddChannelResult, error)
	UpdateChannels(ctx context.Context) (int, error)
	Suggestions(ctx context.Context, limit int) (*dto.SuggestionsSummary, error)
	Stats(ctx context.Context) (*entities.Stats, error)
}

// Handlers contains Telegram command and callback handlers
type Handlers struct {
	svc     FeedService
	sender  Sender
	botCfg  *config.BotConfig
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// admin commands running off the update worker
	tasks sync.WaitGroup
}

// NewHandlers creates new Telegram handlers
func NewHandlers(
	svc FeedService,
	sender Sender,
	botCfg *config.BotConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Handlers {
	logger = logger.With().Str("component", "bot-handlers").Logger()
	return &Handlers{
		svc:     svc,
		sender:  sender,
		botCfg:  botCfg,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger,
		metrics: m,
	}
}

// incoming is the sender and payload of a text message
type incoming struct {
	userID int64
	chatID int64
	args   string
}

func parseIncoming(update *models.Update) (incoming, bool) {
	if update.Message == nil || update.Message.From == nil {
		return incoming{}, false
	}

	in := incoming{
		userID: update.Message.From.ID,
		chatID: update.Message.Chat.ID,
	}
	// everything after the command word
	if fields := strings.SplitN(strings.TrimSpace(update.Message.Text), " ", 2); len(fields) == 2 {
		in.args = strings.TrimSpace(fields[1])
	}
	return in, true
}

// HandleStart registers the user and shows the main menu
func (h *Handlers) HandleStart(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "start")
	if !ok {
		return
	}

	if _, err := h.svc.RegisterUser(ctx, in.userID); err != nil {
		h.replyError(ctx, in, "start", err)
		return
	}

	h.send(ctx, &tgbot.SendMessageParams{
		ChatID:      in.chatID,
		Text:        "👋 Welcome! I gather posts from selected Telegram channels into a single feed.\n\nUse the buttons below or /help.",
		ReplyMarkup: mainKeyboard(),
	})
}

// HandleHelp lists the available commands
func (h *Handlers) HandleHelp(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "help")
	if !ok {
		return
	}

	h.reply(ctx, in.chatID, helpText(h.botCfg.IsAdmin(in.userID)))
}

// HandleFeed shows the first page of the global feed
func (h *Handlers) HandleFeed(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "feed")
	if !ok {
		return
	}

	h.sendFeedPage(ctx, in, 0)
}

// HandleSaved shows the first page of the user's saved posts
func (h *Handlers) HandleSaved(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "saved")
	if !ok {
		return
	}

	h.sendSavedPage(ctx, in, 0)
}

// HandleSuggest records a channel suggestion: /suggest @username [comment]
func (h *Handlers) HandleSuggest(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "suggest")
	if !ok {
		return
	}

	if in.args == "" || isMenuButton(update.Message.Text) {
		h.reply(ctx, in.chatID, "💡 Send the channel as:\n/suggest @channel_name optional comment")
		return
	}

	username, comment, _ := strings.Cut(in.args, " ")
	userID := in.userID

	suggestion, err := h.svc.AddSuggestion(ctx, &userID, username, comment)
	if err != nil {
		h.replyError(ctx, in, "suggest", err)
		return
	}

	h.reply(ctx, in.chatID, "🙏 Thanks! Your suggestion of @"+suggestion.ChannelUsername+" has been recorded.")
}

// HandleFeedback replies with the feedback form link
func (h *Handlers) HandleFeedback(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.begin(update, "feedback")
	if !ok {
		return
	}

	if h.botCfg.FeedbackForm == "" {
		h.reply(ctx, in.chatID, "Feedback form is not available right now.")
		return
	}
	h.reply(ctx, in.chatID, "📝 Leave your feedback here: "+h.botCfg.FeedbackForm)
}

// HandleStats shows entity counts to admins
func (h *Handlers) HandleStats(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.beginAdmin(ctx, update, "stats")
	if !ok {
		return
	}

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.replyError(ctx, in, "stats", err)
		return
	}
	h.reply(ctx, in.chatID, formatStats(stats))
}

// HandleAddChannel adds a channel and fetches its recent posts: /addchannel @username
func (h *Handlers) HandleAddChannel(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.beginAdmin(ctx, update, "addchannel")
	if !ok {
		return
	}

	if in.args == "" {
		h.reply(ctx, in.chatID, "⚠️ Specify the channel username.\nExample: /addchannel @example_channel")
		return
	}

	username := strings.Fields(in.args)[0]
	h.reply(ctx, in.chatID, "🔄 Adding channel "+username+"...")

	h.runDetached(ctx, "addchannel", func(ctx context.Context) {
		result, err := h.svc.AddChannel(ctx, username)
		if err != nil {
			h.replyError(ctx, in, "addchannel", err)
			return
		}
		h.reply(ctx, in.chatID, formatAddChannel(result))
	})
}

// HandleSuggestions lists the latest suggestions to admins
func (h *Handlers) HandleSuggestions(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.beginAdmin(ctx, update, "suggestions")
	if !ok {
		return
	}

	summary, err := h.svc.Suggestions(ctx, consts.SuggestionsShown)
	if err != nil {
		h.replyError(ctx, in, "suggestions", err)
		return
	}
	h.reply(ctx, in.chatID, formatSuggestions(summary))
}

// HandleUpdate runs a fleet cycle on demand
func (h *Handlers) HandleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	in, ok := h.beginAdmin(ctx, update, "update")
	if !ok {
		return
	}

	h.reply(ctx, in.chatID, "🔄 Updating channels...")

	h.runDetached(ctx, "update", func(ctx context.Context) {
		stored, err := h.svc.UpdateChannels(ctx)
		if err != nil {
			h.replyError(ctx, in, "update", err)
			return
		}
		h.reply(ctx, in.chatID, "✅ Update finished. New posts: "+strconv.Itoa(stored))
	})
}

// HandleCallback dispatches inline button presses
func (h *Handlers) HandleCallback(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	in := incoming{userID: query.From.ID, chatID: callbackChatID(query)}

	data, err := parseCallbackData(query.Data)
	if err != nil {
		h.logger.Warn().Err(err).Int64("user_id", in.userID).Msg("Unsupported callback data")
		h.answer(ctx, query.ID, "Unsupported action")
		return
	}

	h.metrics.RecordBotCommand("callback_" + data.Action)

	switch data.Action {
	case actionSave:
		result, err := h.svc.SavePost(ctx, in.userID, data.ChannelID, data.MessageID)
		if err != nil {
			_, msg := h.mapper.MapError(err)
			h.answer(ctx, query.ID, msg)
			return
		}
		h.answer(ctx, query.ID, result.String())

	case actionUnsave:
		removed, err := h.svc.DeleteSavedPost(ctx, in.userID, data.ChannelID, data.MessageID)
		if err != nil {
			_, msg := h.mapper.MapError(err)
			h.answer(ctx, query.ID, msg)
			return
		}
		if removed {
			h.answer(ctx, query.ID, "Post removed from saved")
		} else {
			h.answer(ctx, query.ID, "Post is not in your saved list")
		}

	case actionFeed:
		h.answer(ctx, query.ID, "")
		h.sendFeedPage(ctx, in, data.Offset)

	case actionSaved:
		h.answer(ctx, query.ID, "")
		h.sendSavedPage(ctx, in, data.Offset)
	}
}

// callbackChatID returns the chat of the message the button belongs to,
// falling back to the presser's private chat
func callbackChatID(query *models.CallbackQuery) int64 {
	switch {
	case query.Message.Message != nil:
		return query.Message.Message.Chat.ID
	case query.Message.InaccessibleMessage != nil:
		return query.Message.InaccessibleMessage.Chat.ID
	default:
		return query.From.ID
	}
}

func (h *Handlers) sendFeedPage(ctx context.Context, in incoming, offset int) {
	page, err := h.svc.LatestPosts(ctx, offset)
	if err != nil {
		h.replyError(ctx, in, "feed", err)
		return
	}

	if len(page.Items) == 0 {
		if offset == 0 {
			h.reply(ctx, in.chatID, "The feed is empty for now. Check back later.")
		} else {
			h.reply(ctx, in.chatID, "No more posts.")
		}
		return
	}

	for _, post := range page.Items {
		h.send(ctx, &tgbot.SendMessageParams{
			ChatID:      in.chatID,
			Text:        formatPost(post),
			ReplyMarkup: postKeyboard(post.ChannelID, post.MessageID, post.URL),
		})
	}

	if page.HasNext {
		h.send(ctx, &tgbot.SendMessageParams{
			ChatID:      in.chatID,
			Text:        "More posts are available.",
			ReplyMarkup: nextPageKeyboard(actionFeed, page.NextOffset()),
		})
	}
}

func (h *Handlers) sendSavedPage(ctx context.Context, in incoming, offset int) {
	page, err := h.svc.SavedPosts(ctx, in.userID, offset)
	if err != nil {
		h.replyError(ctx, in, "saved", err)
		return
	}

	if len(page.Items) == 0 {
		if offset == 0 {
			h.reply(ctx, in.chatID, "You have no saved posts yet. Press ❤️ Save under a post in the feed.")
		} else {
			h.reply(ctx, in.chatID, "No more saved posts.")
		}
		return
	}

	for _, saved := range page.Items {
		h.send(ctx, &tgbot.SendMessageParams{
			ChatID:      in.chatID,
			Text:        formatPost(saved.PostWithChannel),
			ReplyMarkup: savedPostKeyboard(saved.ChannelID, saved.MessageID, saved.URL),
		})
	}

	if page.HasNext {
		h.send(ctx, &tgbot.SendMessageParams{
			ChatID:      in.chatID,
			Text:        "More saved posts are available.",
			ReplyMarkup: nextPageKeyboard(actionSaved, page.NextOffset()),
		})
	}
}

// runDetached runs a long admin command in its own goroutine so the update
// worker is free for other users. ctx is the polling context and is
// cancelled when the bot stops.
func (h *Handlers) runDetached(ctx context.Context, command string, fn func(ctx context.Context)) {
	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error().Interface("panic", r).Str("command", command).Msg("Recovered from panic in command")
			}
		}()

		fn(ctx)
	}()
}

// Wait blocks until detached commands finish or ctx is done
func (h *Handlers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin extracts the message and records the command
func (h *Handlers) begin(update *models.Update, command string) (incoming, bool) {
	in, ok := parseIncoming(update)
	if !ok {
		return in, false
	}

	h.metrics.RecordBotCommand(command)
	h.logger.Debug().Int64("user_id", in.userID).Str("command", command).Msg("Processing command")
	return in, true
}

// beginAdmin is begin plus an ADMIN_IDS check that replies to non-admins
func (h *Handlers) beginAdmin(ctx context.Context, update *models.Update, command string) (incoming, bool) {
	in, ok := h.begin(update, command)
	if !ok {
		return in, false
	}

	if !h.botCfg.IsAdmin(in.userID) {
		h.logger.Warn().Int64("user_id", in.userID).Str("command", command).Msg("Admin command denied")
		h.replyError(ctx, in, command, feederrors.ErrAdminOnly)
		return in, false
	}
	return in, true
}

func (h *Handlers) replyError(ctx context.Context, in incoming, command string, err error) {
	kind, msg := h.mapper.MapError(err)
	if kind != pkgerrors.KindInternal {
		h.logger.Info().Err(err).Int64("user_id", in.userID).Str("command", command).Msg("Command rejected")
	}
	h.reply(ctx, in.chatID, "❌ "+msg)
}

func (h *Handlers) reply(ctx context.Context, chatID int64, text string) {
	h.send(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
}

func (h *Handlers) send(ctx context.Context, params *tgbot.SendMessageParams) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	if _, err := h.sender.SendMessage(msgCtx, params); err != nil {
		h.logger.Error().Err(err).Interface("chat_id", params.ChatID).Msg("Failed to send message")
	}
}

func (h *Handlers) answer(ctx context.Context, queryID, text string) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	if _, err := h.sender.AnswerCallbackQuery(msgCtx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to answer callback query")
	}
}
