package business

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUseCase(store *mockStore, provider *mockProvider) *UseCase {
	engine := newTestEngine(store, provider, nil)
	return NewUseCase(
		store,
		provider,
		engine,
		&config.BotConfig{PageSize: 2},
		&config.ParserConfig{FetchLimit: 100},
		zerolog.Nop(),
		metrics.GetDefaultMetrics(),
	)
}

func TestParseUsername(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "@alpha", want: "alpha"},
		{raw: "  @alpha_news ", want: "alpha_news"},
		{raw: "beta42", want: "beta42"},
		{raw: "", wantErr: true},
		{raw: "@", wantErr: true},
		{raw: "@ab", wantErr: true},
		{raw: "@1channel", wantErr: true},
		{raw: "@bad-name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseUsername(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, feederrors.ErrInvalidUsername)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUseCase_AddChannel(t *testing.T) {
	var gotUsername string
	var gotTitle *string
	store := &mockStore{
		addChannelFunc: func(ctx context.Context, username string, title *string) (*entities.Channel, error) {
			gotUsername = username
			gotTitle = title
			return &entities.Channel{ID: 9, Username: username, Title: title, IsActive: true}, nil
		},
	}
	provider := &mockProvider{
		channelTitleFunc: func(ctx context.Context, username string) (string, error) {
			return "Alpha News", nil
		},
		fetchRecentMessagesFunc: func(ctx context.Context, username string, limit int) ([]entities.RawMessage, error) {
			return []entities.RawMessage{textMessage(1, "a"), textMessage(2, "b"), textMessage(3, "c")}, nil
		},
	}
	uc := newTestUseCase(store, provider)

	result, err := uc.AddChannel(context.Background(), "@alpha")
	require.NoError(t, err)

	assert.Equal(t, "alpha", gotUsername)
	require.NotNil(t, gotTitle)
	assert.Equal(t, "Alpha News", *gotTitle)
	assert.Equal(t, uint(9), result.ChannelID)
	assert.Equal(t, "Alpha News", result.Title)
	assert.Equal(t, 3, result.PostsAdded)
}

func TestUseCase_AddChannel_TitleUnavailable(t *testing.T) {
	provider := &mockProvider{
		channelTitleFunc: func(ctx context.Context, username string) (string, error) {
			return "", feederrors.ErrAccessDenied
		},
		fetchRecentMessagesFunc: func(ctx context.Context, username string, limit int) ([]entities.RawMessage, error) {
			return nil, feederrors.ErrAccessDenied
		},
	}
	uc := newTestUseCase(&mockStore{}, provider)

	result, err := uc.AddChannel(context.Background(), "alpha")
	require.NoError(t, err, "channel stays registered even when unreachable")
	assert.Equal(t, "@alpha", result.Title)
	assert.Equal(t, 0, result.PostsAdded)
}

func TestUseCase_AddChannel_Invalid(t *testing.T) {
	called := false
	store := &mockStore{
		addChannelFunc: func(ctx context.Context, username string, title *string) (*entities.Channel, error) {
			called = true
			return nil, nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	_, err := uc.AddChannel(context.Background(), "@")
	assert.ErrorIs(t, err, feederrors.ErrInvalidUsername)
	assert.False(t, called)
}

func TestUseCase_AddChannel_StoreError(t *testing.T) {
	store := &mockStore{
		addChannelFunc: func(ctx context.Context, username string, title *string) (*entities.Channel, error) {
			return nil, fmt.Errorf("add channel: %w", feederrors.ErrDatabaseOperation)
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	_, err := uc.AddChannel(context.Background(), "alpha")
	assert.ErrorIs(t, err, feederrors.ErrDatabaseOperation)
}

func TestUseCase_LatestPosts_Paging(t *testing.T) {
	var gotLimit, gotOffset int
	store := &mockStore{
		latestPostsFunc: func(ctx context.Context, limit, offset int) ([]entities.PostWithChannel, error) {
			gotLimit, gotOffset = limit, offset
			posts := []entities.PostWithChannel{{MessageID: 3}, {MessageID: 2}, {MessageID: 1}}
			if offset >= len(posts) {
				return nil, nil
			}
			end := min(offset+limit, len(posts))
			return posts[offset:end], nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	page, err := uc.LatestPosts(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, 3, gotLimit)
	assert.Equal(t, 0, gotOffset)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.Equal(t, 2, page.NextOffset())

	page, err = uc.LatestPosts(context.Background(), page.NextOffset())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].MessageID)
	assert.False(t, page.HasNext)
}

func TestUseCase_SavedPosts(t *testing.T) {
	store := &mockStore{
		listSavedPostsFunc: func(ctx context.Context, userID int64, limit, offset int) ([]entities.SavedPostWithChannel, error) {
			assert.Equal(t, int64(42), userID)
			return []entities.SavedPostWithChannel{{SavedAt: time.Now()}}, nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	page, err := uc.SavedPosts(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNext)
}

func TestUseCase_SavePost(t *testing.T) {
	store := &mockStore{
		savePostFunc: func(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error) {
			if messageID == 404 {
				return entities.SaveResultPostNotFound, nil
			}
			return entities.SaveResultAlreadySaved, nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	result, err := uc.SavePost(context.Background(), 42, 1, 404)
	require.NoError(t, err)
	assert.Equal(t, entities.SaveResultPostNotFound, result)

	result, err = uc.SavePost(context.Background(), 42, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, entities.SaveResultAlreadySaved, result)
}

func TestUseCase_AddSuggestion(t *testing.T) {
	var gotComment *string
	store := &mockStore{
		addSuggestionFunc: func(ctx context.Context, userID *int64, channelUsername string, comment *string) (*entities.Suggestion, error) {
			gotComment = comment
			return &entities.Suggestion{UserID: userID, ChannelUsername: channelUsername, Comment: comment}, nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})
	userID := int64(42)

	suggestion, err := uc.AddSuggestion(context.Background(), &userID, "@gamma", "   ")
	require.NoError(t, err)
	assert.Equal(t, "gamma", suggestion.ChannelUsername)
	assert.Nil(t, gotComment)

	_, err = uc.AddSuggestion(context.Background(), &userID, "@gamma", " worth reading ")
	require.NoError(t, err)
	require.NotNil(t, gotComment)
	assert.Equal(t, "worth reading", *gotComment)

	_, err = uc.AddSuggestion(context.Background(), &userID, "not a channel", "")
	assert.ErrorIs(t, err, feederrors.ErrInvalidUsername)
}

func TestUseCase_Suggestions(t *testing.T) {
	store := &mockStore{
		listSuggestionsFunc: func(ctx context.Context) ([]entities.Suggestion, error) {
			var suggestions []entities.Suggestion
			for i := 12; i > 0; i-- {
				suggestions = append(suggestions, entities.Suggestion{ID: uint(i), ChannelUsername: fmt.Sprintf("chan%d", i)})
			}
			return suggestions, nil
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	summary, err := uc.Suggestions(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Total)
	require.Len(t, summary.Latest, 10)
	assert.Equal(t, "chan12", summary.Latest[0].ChannelUsername)
}

func TestUseCase_Suggestions_Error(t *testing.T) {
	store := &mockStore{
		listSuggestionsFunc: func(ctx context.Context) ([]entities.Suggestion, error) {
			return nil, errors.New("db down")
		},
	}
	uc := newTestUseCase(store, &mockProvider{})

	_, err := uc.Suggestions(context.Background(), 10)
	assert.Error(t, err)
}

func TestUseCase_UpdateChannels_Busy(t *testing.T) {
	uc := newTestUseCase(&mockStore{}, &mockProvider{})
	uc.engine.running.Store(true)

	_, err := uc.UpdateChannels(context.Background())
	assert.ErrorIs(t, err, feederrors.ErrEngineBusy)
}
