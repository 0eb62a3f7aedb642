package business

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine pulls new posts from the content provider into the store.
// At most one fleet cycle runs at a time per process.
type Engine struct {
	store     deps.PostStore
	provider  deps.ContentProvider
	publisher deps.PostPublisher
	cfg       *config.ParserConfig
	baseURL   string
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	running atomic.Bool
}

// NewEngine creates a new ingestion engine
func NewEngine(
	store deps.PostStore,
	provider deps.ContentProvider,
	publisher deps.PostPublisher,
	parserCfg *config.ParserConfig,
	telegramCfg *config.TelegramConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		store:     store,
		provider:  provider,
		publisher: publisher,
		cfg:       parserCfg,
		baseURL:   telegramCfg.PostBaseURL,
		logger:    logger.With().Str("component", "ingestion").Logger(),
		metrics:   m,
	}
}

// IsRunning reports whether a fleet cycle is in progress
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// UpdateChannels runs one fleet cycle over all active channels and returns the number of new posts.
// Returns feederrors.ErrEngineBusy without fetching anything when a cycle is already running.
func (e *Engine) UpdateChannels(ctx context.Context) (int, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.metrics.RecordBusySkip()
		e.logger.Warn().Msg("Channel update already in progress, skipping")
		return 0, feederrors.ErrEngineBusy
	}
	defer e.running.Store(false)

	start := time.Now()
	cycleID := uuid.NewString()
	log := e.logger.With().Str("cycle_id", cycleID).Logger()

	channels, err := e.store.ListChannels(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list channels")
		return 0, err
	}

	log.Info().Int("channels", len(channels)).Msg("Starting channel update cycle")

	total := 0
	for i := range channels {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("new_posts", total).Msg("Channel update cycle interrupted")
			return total, err
		}

		total += e.fetchChannelPosts(ctx, log, cycleID, &channels[i], e.cfg.FetchLimit)

		if err := sleepContext(ctx, e.cfg.ChannelDelay); err != nil {
			log.Warn().Err(err).Int("new_posts", total).Msg("Channel update cycle interrupted")
			return total, err
		}
	}

	duration := time.Since(start)
	e.metrics.RecordCycle(total, duration.Seconds())

	log.Info().
		Int("channels", len(channels)).
		Int("new_posts", total).
		Dur("duration", duration).
		Msg("Channel update cycle completed")

	return total, nil
}

// FetchChannelPosts stores the channel messages newer than its watermark and returns how many were new.
// Provider failures are logged and yield 0; the channel stays registered.
func (e *Engine) FetchChannelPosts(ctx context.Context, channel *entities.Channel, limit int) int {
	return e.fetchChannelPosts(ctx, e.logger, "", channel, limit)
}

// fetchChannelPosts isolates the channel: a panic while fetching or storing is
// logged and the posts stored so far are counted.
func (e *Engine) fetchChannelPosts(ctx context.Context, log zerolog.Logger, cycleID string, channel *entities.Channel, limit int) (added int) {
	log = log.With().Uint("channel_id", channel.ID).Str("channel", channel.Username).Logger()
	e.metrics.RecordChannelProcessed()

	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordProviderError("panic")
			log.Error().Interface("panic", r).Int("new_posts", added).Msg("Recovered from panic while fetching channel")
		}
	}()

	watermark, err := e.store.MaxMessageID(ctx, channel.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read channel watermark")
		return 0
	}

	messages, err := e.provider.FetchRecentMessages(ctx, channel.Username, limit)
	if err != nil {
		e.handleProviderError(ctx, log, err)
		return 0
	}

	for _, msg := range messages {
		if !msg.IsText || msg.Text == "" || msg.ID <= watermark {
			continue
		}

		post, err := e.store.AddPost(ctx, &entities.Post{
			ChannelID: channel.ID,
			MessageID: msg.ID,
			Text:      entities.TruncateText(msg.Text),
			Date:      msg.Date,
			URL:       entities.PostURL(e.baseURL, channel.Username, msg.ID),
		})
		if err != nil {
			log.Error().Err(err).Int("message_id", msg.ID).Msg("Failed to store post")
			return added
		}
		if post == nil {
			continue
		}

		added++
		e.publish(ctx, log, cycleID, channel, post)
	}

	if added > 0 {
		log.Info().Int("new_posts", added).Int("watermark", watermark).Msg("Stored new posts")
	} else {
		log.Debug().Int("watermark", watermark).Msg("No new posts")
	}

	return added
}

func (e *Engine) handleProviderError(ctx context.Context, log zerolog.Logger, err error) {
	var rateLimited *feederrors.RateLimitedError
	var providerErr *feederrors.ProviderError

	switch {
	case errors.As(err, &rateLimited):
		e.metrics.RecordProviderError("rate_limited")
		e.metrics.RecordRateLimit()
		log.Warn().Dur("retry_after", rateLimited.RetryAfter).Msg("Rate limited by provider, waiting")
		if err := sleepContext(ctx, rateLimited.RetryAfter); err != nil {
			log.Warn().Err(err).Msg("Rate limit wait interrupted")
		}
	case errors.Is(err, feederrors.ErrAccessDenied):
		e.metrics.RecordProviderError("access_denied")
		log.Warn().Err(err).Msg("Channel is private or unavailable")
	case errors.As(err, &providerErr):
		e.metrics.RecordProviderError("provider_error")
		log.Error().Err(err).Msg("Failed to fetch channel messages")
	default:
		e.metrics.RecordProviderError("unknown")
		log.Error().Err(err).Msg("Failed to fetch channel messages")
	}
}

func (e *Engine) publish(ctx context.Context, log zerolog.Logger, cycleID string, channel *entities.Channel, post *entities.Post) {
	if e.publisher == nil {
		return
	}

	event := &dto.PostCreatedEvent{
		CycleID:         cycleID,
		ChannelID:       channel.ID,
		ChannelUsername: channel.Username,
		MessageID:       post.MessageID,
		Text:            post.Text,
		URL:             post.URL,
		Date:            post.Date,
	}
	if err := e.publisher.PublishPostCreated(ctx, event); err != nil {
		log.Warn().Err(err).Int("message_id", post.MessageID).Msg("Failed to publish post event")
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
