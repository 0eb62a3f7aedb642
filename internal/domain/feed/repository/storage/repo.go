package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/Conte777/tgnewsfeed/pkg/mapfn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements deps.PostStore on top of gorm (sqlite or postgres)
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new gorm-backed post store
func NewRepository(db *gorm.DB) deps.PostStore {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// dbError hides the raw storage error behind the domain sentinel
func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, feederrors.ErrDatabaseOperation, err)
}

// AddChannel inserts a channel or returns the existing row on username conflict
func (r *Repository) AddChannel(ctx context.Context, username string, title *string) (*entities.Channel, error) {
	channel := &entities.Channel{
		Username: username,
		Title:    title,
		AddedAt:  r.now(),
		IsActive: true,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).
		Create(channel)
	if result.Error != nil {
		return nil, dbError("add channel", result.Error)
	}

	if result.RowsAffected > 0 {
		return channel, nil
	}

	var existing entities.Channel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; err != nil {
		return nil, dbError("get existing channel", err)
	}

	return &existing, nil
}

// GetChannel retrieves a channel by id
func (r *Repository) GetChannel(ctx context.Context, channelID uint) (*entities.Channel, error) {
	var channel entities.Channel
	if err := r.db.WithContext(ctx).First(&channel, channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, feederrors.ErrChannelNotFound
		}
		return nil, dbError("get channel", err)
	}
	return &channel, nil
}

// ListChannels retrieves channels in id order
func (r *Repository) ListChannels(ctx context.Context, activeOnly bool) ([]entities.Channel, error) {
	query := r.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var channels []entities.Channel
	if err := query.Find(&channels).Error; err != nil {
		return nil, dbError("list channels", err)
	}
	return channels, nil
}

// MaxMessageID returns the highest stored message id of a channel
func (r *Repository) MaxMessageID(ctx context.Context, channelID uint) (int, error) {
	var maxID int64
	err := r.db.WithContext(ctx).
		Model(&entities.Post{}).
		Select("COALESCE(MAX(message_id), 0)").
		Where("channel_id = ?", channelID).
		Row().
		Scan(&maxID)
	if err != nil {
		return 0, dbError("max message id", err)
	}
	return int(maxID), nil
}

// AddPost stores a post. A duplicate (channel_id, message_id) is left untouched and yields nil.
func (r *Repository) AddPost(ctx context.Context, post *entities.Post) (*entities.Post, error) {
	post.Date = post.Date.UTC()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(post)
	if result.Error != nil {
		return nil, dbError("add post", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, nil
	}
	return post, nil
}

// postRow is the flat shape of a post joined with its channel and optional bookmark time
type postRow struct {
	ChannelID       uint
	MessageID       int
	Text            string
	Date            time.Time
	URL             string
	ChannelUsername string
	ChannelTitle    *string
	SavedAt         time.Time
}

func (p postRow) toPost() entities.PostWithChannel {
	return entities.PostWithChannel{
		ChannelID:       p.ChannelID,
		MessageID:       p.MessageID,
		Text:            p.Text,
		Date:            p.Date,
		URL:             p.URL,
		ChannelUsername: p.ChannelUsername,
		ChannelTitle:    p.ChannelTitle,
	}
}

func (p postRow) toSavedPost() entities.SavedPostWithChannel {
	return entities.SavedPostWithChannel{
		PostWithChannel: p.toPost(),
		SavedAt:         p.SavedAt,
	}
}

const postColumns = "posts.channel_id, posts.message_id, posts.text, posts.date, posts.url, " +
	"channels.username AS channel_username, channels.title AS channel_title"

// LatestPosts returns a page of the global feed. Offset paging shifts when posts are inserted between pages.
func (r *Repository) LatestPosts(ctx context.Context, limit, offset int) ([]entities.PostWithChannel, error) {
	var rows []postRow
	err := r.db.WithContext(ctx).
		Table("posts").
		Select(postColumns).
		Joins("JOIN channels ON channels.id = posts.channel_id").
		Order("posts.date DESC, posts.channel_id DESC, posts.message_id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, dbError("latest posts", err)
	}

	return mapfn.ConvertSlice(rows, postRow.toPost), nil
}

// RegisterUser creates the user once; repeated calls return the stored record unchanged
func (r *Repository) RegisterUser(ctx context.Context, userID int64) (*entities.User, error) {
	if err := ensureUser(r.db.WithContext(ctx), userID, r.now()); err != nil {
		return nil, dbError("register user", err)
	}

	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		return nil, dbError("get user", err)
	}
	return &user, nil
}

func ensureUser(tx *gorm.DB, userID int64, now time.Time) error {
	return tx.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.User{UserID: userID, FirstSeen: now}).Error
}

// SavePost bookmarks an existing post for a user
func (r *Repository) SavePost(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error) {
	outcome := entities.SaveResultPostNotFound
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Post{}).
			Where("channel_id = ? AND message_id = ?", channelID, messageID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			outcome = entities.SaveResultPostNotFound
			return nil
		}

		if err := ensureUser(tx, userID, now); err != nil {
			return err
		}

		result := tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entities.SavedPost{
				UserID:    userID,
				ChannelID: channelID,
				MessageID: messageID,
				SavedAt:   now,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			outcome = entities.SaveResultAlreadySaved
		} else {
			outcome = entities.SaveResultSaved
		}
		return nil
	})
	if err != nil {
		return entities.SaveResultPostNotFound, dbError("save post", err)
	}

	return outcome, nil
}

// ListSavedPosts returns a page of a user's bookmarks, newest first
func (r *Repository) ListSavedPosts(ctx context.Context, userID int64, limit, offset int) ([]entities.SavedPostWithChannel, error) {
	var rows []postRow
	err := r.db.WithContext(ctx).
		Table("saved_posts").
		Select(postColumns+", saved_posts.saved_at").
		Joins("JOIN posts ON posts.channel_id = saved_posts.channel_id AND posts.message_id = saved_posts.message_id").
		Joins("JOIN channels ON channels.id = posts.channel_id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.saved_at DESC, saved_posts.channel_id DESC, saved_posts.message_id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, dbError("list saved posts", err)
	}

	return mapfn.ConvertSlice(rows, postRow.toSavedPost), nil
}

// DeleteSavedPost removes a bookmark
func (r *Repository) DeleteSavedPost(ctx context.Context, userID int64, channelID uint, messageID int) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ? AND message_id = ?", userID, channelID, messageID).
		Delete(&entities.SavedPost{})
	if result.Error != nil {
		return false, dbError("delete saved post", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AddSuggestion appends a suggestion, registering the author when known
func (r *Repository) AddSuggestion(ctx context.Context, userID *int64, channelUsername string, comment *string) (*entities.Suggestion, error) {
	now := r.now()
	suggestion := &entities.Suggestion{
		UserID:          userID,
		ChannelUsername: channelUsername,
		Comment:         comment,
		CreatedAt:       now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if userID != nil {
			if err := ensureUser(tx, *userID, now); err != nil {
				return err
			}
		}
		return tx.Create(suggestion).Error
	})
	if err != nil {
		return nil, dbError("add suggestion", err)
	}

	return suggestion, nil
}

// ListSuggestions returns all suggestions, newest first
func (r *Repository) ListSuggestions(ctx context.Context) ([]entities.Suggestion, error) {
	var suggestions []entities.Suggestion
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&suggestions).Error; err != nil {
		return nil, dbError("list suggestions", err)
	}
	return suggestions, nil
}

// Stats counts each entity independently; the four numbers are not one snapshot
func (r *Repository) Stats(ctx context.Context) (*entities.Stats, error) {
	var stats entities.Stats
	db := r.db.WithContext(ctx)

	if err := db.Model(&entities.User{}).Count(&stats.Users).Error; err != nil {
		return nil, dbError("count users", err)
	}
	if err := db.Model(&entities.Post{}).Count(&stats.Posts).Error; err != nil {
		return nil, dbError("count posts", err)
	}
	if err := db.Model(&entities.Channel{}).Count(&stats.Channels).Error; err != nil {
		return nil, dbError("count channels", err)
	}
	if err := db.Model(&entities.SavedPost{}).Count(&stats.SavedPosts).Error; err != nil {
		return nil, dbError("count saved posts", err)
	}

	return &stats, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return dbError("get sql.DB", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError("ping", err)
	}
	return nil
}
