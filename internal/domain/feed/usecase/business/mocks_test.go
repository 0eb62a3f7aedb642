package business

import (
	"context"
	"sync"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
)

// mockStore is a mock implementation of deps.PostStore
type mockStore struct {
	addChannelFunc      func(ctx context.Context, username string, title *string) (*entities.Channel, error)
	listChannelsFunc    func(ctx context.Context, activeOnly bool) ([]entities.Channel, error)
	maxMessageIDFunc    func(ctx context.Context, channelID uint) (int, error)
	addPostFunc         func(ctx context.Context, post *entities.Post) (*entities.Post, error)
	latestPostsFunc     func(ctx context.Context, limit, offset int) ([]entities.PostWithChannel, error)
	listSavedPostsFunc  func(ctx context.Context, userID int64, limit, offset int) ([]entities.SavedPostWithChannel, error)
	savePostFunc        func(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error)
	addSuggestionFunc   func(ctx context.Context, userID *int64, channelUsername string, comment *string) (*entities.Suggestion, error)
	listSuggestionsFunc func(ctx context.Context) ([]entities.Suggestion, error)
}

func (m *mockStore) AddChannel(ctx context.Context, username string, title *string) (*entities.Channel, error) {
	if m.addChannelFunc != nil {
		return m.addChannelFunc(ctx, username, title)
	}
	return &entities.Channel{ID: 1, Username: username, Title: title, IsActive: true}, nil
}

func (m *mockStore) GetChannel(ctx context.Context, channelID uint) (*entities.Channel, error) {
	return nil, nil
}

func (m *mockStore) ListChannels(ctx context.Context, activeOnly bool) ([]entities.Channel, error) {
	if m.listChannelsFunc != nil {
		return m.listChannelsFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockStore) MaxMessageID(ctx context.Context, channelID uint) (int, error) {
	if m.maxMessageIDFunc != nil {
		return m.maxMessageIDFunc(ctx, channelID)
	}
	return 0, nil
}

func (m *mockStore) AddPost(ctx context.Context, post *entities.Post) (*entities.Post, error) {
	if m.addPostFunc != nil {
		return m.addPostFunc(ctx, post)
	}
	return post, nil
}

func (m *mockStore) LatestPosts(ctx context.Context, limit, offset int) ([]entities.PostWithChannel, error) {
	if m.latestPostsFunc != nil {
		return m.latestPostsFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockStore) RegisterUser(ctx context.Context, userID int64) (*entities.User, error) {
	return &entities.User{UserID: userID}, nil
}

func (m *mockStore) SavePost(ctx context.Context, userID int64, channelID uint, messageID int) (entities.SaveResult, error) {
	if m.savePostFunc != nil {
		return m.savePostFunc(ctx, userID, channelID, messageID)
	}
	return entities.SaveResultSaved, nil
}

func (m *mockStore) ListSavedPosts(ctx context.Context, userID int64, limit, offset int) ([]entities.SavedPostWithChannel, error) {
	if m.listSavedPostsFunc != nil {
		return m.listSavedPostsFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockStore) DeleteSavedPost(ctx context.Context, userID int64, channelID uint, messageID int) (bool, error) {
	return true, nil
}

func (m *mockStore) AddSuggestion(ctx context.Context, userID *int64, channelUsername string, comment *string) (*entities.Suggestion, error) {
	if m.addSuggestionFunc != nil {
		return m.addSuggestionFunc(ctx, userID, channelUsername, comment)
	}
	return &entities.Suggestion{UserID: userID, ChannelUsername: channelUsername, Comment: comment}, nil
}

func (m *mockStore) ListSuggestions(ctx context.Context) ([]entities.Suggestion, error) {
	if m.listSuggestionsFunc != nil {
		return m.listSuggestionsFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) Stats(ctx context.Context) (*entities.Stats, error) {
	return &entities.Stats{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return nil
}

// memoryPosts backs mockStore post operations with a deduplicating map
type memoryPosts struct {
	mu    sync.Mutex
	posts map[uint]map[int]entities.Post
}

func newMemoryPosts() *memoryPosts {
	return &memoryPosts{posts: make(map[uint]map[int]entities.Post)}
}

func (p *memoryPosts) attach(store *mockStore) {
	store.maxMessageIDFunc = func(ctx context.Context, channelID uint) (int, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		maxID := 0
		for id := range p.posts[channelID] {
			maxID = max(maxID, id)
		}
		return maxID, nil
	}
	store.addPostFunc = func(ctx context.Context, post *entities.Post) (*entities.Post, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.posts[post.ChannelID] == nil {
			p.posts[post.ChannelID] = make(map[int]entities.Post)
		}
		if _, ok := p.posts[post.ChannelID][post.MessageID]; ok {
			return nil, nil
		}
		p.posts[post.ChannelID][post.MessageID] = *post
		return post, nil
	}
}

func (p *memoryPosts) text(channelID uint, messageID int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posts[channelID][messageID].Text
}

func (p *memoryPosts) count(channelID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts[channelID])
}

// mockProvider is a mock implementation of deps.ContentProvider
type mockProvider struct {
	fetchRecentMessagesFunc func(ctx context.Context, username string, limit int) ([]entities.RawMessage, error)
	channelTitleFunc        func(ctx context.Context, username string) (string, error)
}

func (m *mockProvider) Connect(ctx context.Context) error {
	return nil
}

func (m *mockProvider) Disconnect(ctx context.Context) error {
	return nil
}

func (m *mockProvider) FetchRecentMessages(ctx context.Context, username string, limit int) ([]entities.RawMessage, error) {
	if m.fetchRecentMessagesFunc != nil {
		return m.fetchRecentMessagesFunc(ctx, username, limit)
	}
	return nil, nil
}

func (m *mockProvider) ChannelTitle(ctx context.Context, username string) (string, error) {
	if m.channelTitleFunc != nil {
		return m.channelTitleFunc(ctx, username)
	}
	return "", nil
}

func (m *mockProvider) IsConnected() bool {
	return true
}

// mockPublisher records published events
type mockPublisher struct {
	mu     sync.Mutex
	events []dto.PostCreatedEvent
}

func (m *mockPublisher) PublishPostCreated(ctx context.Context, event *dto.PostCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}

func newTestEngine(store *mockStore, provider *mockProvider, publisher *mockPublisher) *Engine {
	parserCfg := &config.ParserConfig{FetchLimit: 100}
	telegramCfg := &config.TelegramConfig{PostBaseURL: "https://t.me"}

	var pub deps.PostPublisher
	if publisher != nil {
		pub = publisher
	}

	return NewEngine(store, provider, pub, parserCfg, telegramCfg, zerolog.Nop(), metrics.GetDefaultMetrics())
}

func textMessage(id int, text string) entities.RawMessage {
	return entities.RawMessage{ID: id, Text: text, IsText: true}
}
