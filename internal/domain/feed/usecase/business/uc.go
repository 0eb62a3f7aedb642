package business

import (
	"context"
	"regexp"
	"strings"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/Conte777/tgnewsfeed/pkg/mapfn"
	"github.com/rs/zerolog"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{2,63}$`)

// UseCase implements the read model and the user-facing actions over the post store
type UseCase struct {
	store     deps.PostStore
	provider  deps.ContentProvider
	engine    *Engine
	pageSize  int
	fetchSize int
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewUseCase creates a new feed use case
func NewUseCase(
	store deps.PostStore,
	provider deps.ContentProvider,
	engine *Engine,
	botCfg *config.BotConfig,
	parserCfg *config.ParserConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		store:     store,
		provider:  provider,
		engine:    engine,
		pageSize:  botCfg.PageSize,
		fetchSize: parserCfg.FetchLimit,
		logger:    logger.With().Str("component", "feed").Logger(),
		metrics:   m,
	}
}

// ParseUsername normalizes a channel reference such as "@name" and validates it
func ParseUsername(raw string) (string, error) {
	username := entities.NormalizeUsername(raw)
	if !usernamePattern.MatchString(username) {
		return "", feederrors.ErrInvalidUsername
	}
	return username, nil
}

// AddChannel registers a channel and immediately fetches its recent posts
func (u *UseCase) AddChannel(ctx context.Context, rawUsername string) (*dto.AddChannelResult, error) {
	username, err := ParseUsername(rawUsername)
	if err != nil {
		return nil, err
	}

	var title *string
	if t, err := u.provider.ChannelTitle(ctx, username); err != nil {
		u.logger.Warn().Err(err).Str("channel", username).Msg("Failed to get channel title")
	} else if t != "" {
		title = &t
	}

	channel, err := u.store.AddChannel(ctx, username, title)
	if err != nil {
		u.logger.Error().Err(err).Str("channel", username).Msg("Failed to add channel")
		return nil, err
	}

	added := u.engine.FetchChannelPosts(ctx, channel, u.fetchSize)

	u.logger.Info().
		Uint("channel_id", channel.ID).
		Str("channel", channel.Username).
		Int("new_posts", added).
		Msg("Channel added")

	return &dto.AddChannelResult{
		ChannelID:  channel.ID,
		Username:   channel.Username,
		Title:      channel.DisplayTitle(),
		PostsAdded: added,
	}, nil
}

// UpdateChannels runs a fleet cycle on demand
func (u *UseCase) UpdateChannels(ctx context.Context) (int, error) {
	return u.engine.UpdateChannels(ctx)
}

// LatestPosts returns a page of the global feed starting at offset
func (u *UseCase) LatestPosts(ctx context.Context, offset int) (*dto.FeedPage[entities.PostWithChannel], error) {
	offset = max(offset, 0)

	// one extra row tells whether another page exists
	posts, err := u.store.LatestPosts(ctx, u.pageSize+1, offset)
	if err != nil {
		return nil, err
	}

	return newPage(posts, offset, u.pageSize), nil
}

// SavedPosts returns a page of a user's bookmarks starting at offset
func (u *UseCase) SavedPosts(ctx context.Context, userID int64, offset int) (*dto.FeedPage[entities.SavedPostWithChannel], error) {
	offset = max(offset, 0)

	posts, err := u.store.ListSavedPosts(ctx, userID, u.pageSize+1, offset)
	if err != nil {
		return nil, err
	}

	return newPage(posts, offset, u.pageSize), nil
}

func newPage[T any](items []T, offset, size int) *dto.FeedPage[T] {
	page := &dto.FeedPage[T]{Offset: offset}
	if len(items) > size {
		page.Items = items[:size]
		page.HasNext = true
	} else {
		page.Items = items
	}
	return page
}

// RegisterUser records the first interaction of a user
func (u *UseCase) RegisterUser(ctx context.Context, userID int64) (*entities.User, error) {
	return u.store.RegisterUser(ctx, userID)
}

// SavePost bookmarks a post for a user
func (u *UseCase) SavePost(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error) {
	result, err := u.store.SavePost(ctx, userID, channelID, messageID)
	if err != nil {
		u.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to save post")
		return result, err
	}

	u.metrics.RecordSaveAttempt(strings.ToLower(strings.ReplaceAll(result.String(), " ", "_")))
	return result, nil
}

// DeleteSavedPost removes a bookmark and reports whether it existed
func (u *UseCase) DeleteSavedPost(ctx context.Context, userID int64, channelID uint, messageID int) (bool, error) {
	return u.store.DeleteSavedPost(ctx, userID, channelID, messageID)
}

// AddSuggestion stores a channel proposal. An empty comment is stored as absent.
func (u *UseCase) AddSuggestion(ctx context.Context, userID *int64, rawUsername, comment string) (*entities.Suggestion, error) {
	username, err := ParseUsername(rawUsername)
	if err != nil {
		return nil, err
	}

	var commentPtr *string
	if comment = strings.TrimSpace(comment); comment != "" {
		commentPtr = &comment
	}

	return u.store.AddSuggestion(ctx, userID, username, commentPtr)
}

// Suggestions returns the total count and the latest limit suggestions
func (u *UseCase) Suggestions(ctx context.Context, limit int) (*dto.SuggestionsSummary, error) {
	suggestions, err := u.store.ListSuggestions(ctx)
	if err != nil {
		return nil, err
	}

	latest := suggestions
	if limit > 0 && len(latest) > limit {
		latest = latest[:limit]
	}

	return &dto.SuggestionsSummary{
		Total: len(suggestions),
		Latest: mapfn.ConvertSlice(latest, func(s entities.Suggestion) dto.SuggestionView {
			return dto.SuggestionView{
				ChannelUsername: s.ChannelUsername,
				UserID:          s.UserID,
				Comment:         s.Comment,
				CreatedAt:       s.CreatedAt,
			}
		}),
	}, nil
}

// Stats returns entity counts
func (u *UseCase) Stats(ctx context.Context) (*entities.Stats, error) {
	return u.store.Stats(ctx)
}
