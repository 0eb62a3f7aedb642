package deps

import (
	"context"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
)

// PostStore defines persistent storage for channels, posts, users, bookmarks and suggestions.
// Each call runs in its own transaction scope; integrity conflicts are reported as outcomes, not errors.
type PostStore interface {
	// AddChannel inserts a channel or returns the existing one with the same username
	AddChannel(ctx context.Context, username string, title *string) (*entities.Channel, error)

	// GetChannel returns a channel by id
	GetChannel(ctx context.Context, channelID uint) (*entities.Channel, error)

	// ListChannels returns all channels, optionally only active ones
	ListChannels(ctx context.Context, activeOnly bool) ([]entities.Channel, error)

	// MaxMessageID returns the channel watermark, 0 when it has no posts
	MaxMessageID(ctx context.Context, channelID uint) (int, error)

	// AddPost stores a post; returns nil without error when the key already exists
	AddPost(ctx context.Context, post *entities.Post) (*entities.Post, error)

	// LatestPosts returns posts ordered by date descending
	LatestPosts(ctx context.Context, limit, offset int) ([]entities.PostWithChannel, error)

	// RegisterUser creates the user on first call and returns the stored record afterwards
	RegisterUser(ctx context.Context, userID int64) (*entities.User, error)

	// SavePost bookmarks a post for a user
	SavePost(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error)

	// ListSavedPosts returns a user's bookmarks ordered by saved_at descending
	ListSavedPosts(ctx context.Context, userID int64, limit, offset int) ([]entities.SavedPostWithChannel, error)

	// DeleteSavedPost removes a bookmark and reports whether a row was removed
	DeleteSavedPost(ctx context.Context, userID int64, channelID uint, messageID int) (bool, error)

	// AddSuggestion appends a channel suggestion
	AddSuggestion(ctx context.Context, userID *int64, channelUsername string, comment *string) (*entities.Suggestion, error)

	// ListSuggestions returns suggestions ordered by created_at descending
	ListSuggestions(ctx context.Context) ([]entities.Suggestion, error)

	// Stats returns entity counts
	Stats(ctx context.Context) (*entities.Stats, error)

	// Ping checks storage availability
	Ping(ctx context.Context) error
}

// ContentProvider is the external source of channel messages
type ContentProvider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// FetchRecentMessages returns up to limit most recent messages of a channel.
	// Fails with *errors.RateLimitedError, errors.ErrAccessDenied or *errors.ProviderError.
	FetchRecentMessages(ctx context.Context, username string, limit int) ([]entities.RawMessage, error)

	// ChannelTitle returns the display title of a channel
	ChannelTitle(ctx context.Context, username string) (string, error)

	IsConnected() bool
}

// PostPublisher announces newly persisted posts to downstream consumers
type PostPublisher interface {
	PublishPostCreated(ctx context.Context, event *dto.PostCreatedEvent) error
	Close() error
}

// ChannelUpdater runs fleet update cycles
type ChannelUpdater interface {
	UpdateChannels(ctx context.Context) (int, error)
}
