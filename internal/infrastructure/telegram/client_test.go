package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
)

// fakeAPI is a mock implementation of channelAPI
type fakeAPI struct {
	resolveFunc  func(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	historyFunc  func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	resolveCalls int
}

func (f *fakeAPI) ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	f.resolveCalls++
	if f.resolveFunc != nil {
		return f.resolveFunc(ctx, request)
	}
	return &tg.ContactsResolvedPeer{
		Chats: []tg.ChatClass{&tg.Channel{ID: 100, AccessHash: 200, Title: "Alpha News"}},
	}, nil
}

func (f *fakeAPI) MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	if f.historyFunc != nil {
		return f.historyFunc(ctx, request)
	}
	return &tg.MessagesChannelMessages{}, nil
}

func newConnectedClient(api channelAPI) *MTProtoClient {
	return &MTProtoClient{
		connected:   true,
		api:         api,
		logger:      zerolog.Nop(),
		peers:       make(map[string]resolvedChannel),
		rateLimiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestFetchRecentMessages_NotConnected(t *testing.T) {
	client := &MTProtoClient{connected: false}

	_, err := client.FetchRecentMessages(context.Background(), "alpha", 10)
	assert.ErrorIs(t, err, feederrors.ErrNotConnected)

	_, err = client.ChannelTitle(context.Background(), "alpha")
	assert.ErrorIs(t, err, feederrors.ErrNotConnected)
}

func TestFetchRecentMessages_ConvertsMessages(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		historyFunc: func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
			peer, ok := request.Peer.(*tg.InputPeerChannel)
			require.True(t, ok)
			assert.Equal(t, int64(100), peer.ChannelID)
			assert.Equal(t, int64(200), peer.AccessHash)
			assert.Equal(t, 50, request.Limit)

			return &tg.MessagesChannelMessages{
				Messages: []tg.MessageClass{
					&tg.Message{ID: 7, Message: "hello", Date: int(date.Unix())},
					&tg.MessageService{ID: 6, Date: int(date.Unix())},
					&tg.MessageEmpty{ID: 5},
					&tg.Message{ID: 4, Message: "", Date: int(date.Unix())},
				},
			}, nil
		},
	}
	client := newConnectedClient(api)

	messages, err := client.FetchRecentMessages(context.Background(), "alpha", 50)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, 7, messages[0].ID)
	assert.Equal(t, "hello", messages[0].Text)
	assert.True(t, messages[0].IsText)
	assert.True(t, messages[0].Date.Equal(date))

	assert.Equal(t, 6, messages[1].ID)
	assert.False(t, messages[1].IsText)

	assert.Equal(t, 4, messages[2].ID)
	assert.True(t, messages[2].IsText)
	assert.Empty(t, messages[2].Text)
}

func TestFetchRecentMessages_CachesResolvedPeer(t *testing.T) {
	api := &fakeAPI{}
	client := newConnectedClient(api)

	_, err := client.FetchRecentMessages(context.Background(), "alpha", 10)
	require.NoError(t, err)
	title, err := client.ChannelTitle(context.Background(), "alpha")
	require.NoError(t, err)

	assert.Equal(t, "Alpha News", title)
	assert.Equal(t, 1, api.resolveCalls)
}

func TestFetchRecentMessages_ErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "flood wait",
			err:  tgerr.New(420, "FLOOD_WAIT_30"),
			check: func(t *testing.T, err error) {
				var rateLimited *feederrors.RateLimitedError
				require.ErrorAs(t, err, &rateLimited)
				assert.Equal(t, 30*time.Second, rateLimited.RetryAfter)
			},
		},
		{
			name: "private channel",
			err:  tgerr.New(400, "CHANNEL_PRIVATE"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, feederrors.ErrAccessDenied)
			},
		},
		{
			name: "other rpc error",
			err:  tgerr.New(500, "INTERNAL"),
			check: func(t *testing.T, err error) {
				var providerErr *feederrors.ProviderError
				require.ErrorAs(t, err, &providerErr)
				assert.Equal(t, "history", providerErr.Op)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				historyFunc: func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
					return nil, tt.err
				},
			}
			client := newConnectedClient(api)

			_, err := client.FetchRecentMessages(context.Background(), "alpha", 10)
			tt.check(t, err)
		})
	}
}

func TestFetchRecentMessages_ResolveErrors(t *testing.T) {
	t.Run("unknown username", func(t *testing.T) {
		api := &fakeAPI{
			resolveFunc: func(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
				return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
			},
		}
		client := newConnectedClient(api)

		_, err := client.FetchRecentMessages(context.Background(), "ghost", 10)
		assert.ErrorIs(t, err, feederrors.ErrAccessDenied)
	})

	t.Run("not a channel", func(t *testing.T) {
		api := &fakeAPI{
			resolveFunc: func(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
				return &tg.ContactsResolvedPeer{Users: []tg.UserClass{&tg.User{ID: 1}}}, nil
			},
		}
		client := newConnectedClient(api)

		_, err := client.FetchRecentMessages(context.Background(), "someone", 10)
		assert.ErrorIs(t, err, feederrors.ErrAccessDenied)
		assert.Empty(t, client.peers)
	})
}

func TestMapError_Unknown(t *testing.T) {
	err := mapError("resolve", errors.New("network down"))

	var providerErr *feederrors.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.EqualError(t, errors.Unwrap(err), "network down")
}

func TestHistoryMessages(t *testing.T) {
	msgs := []tg.MessageClass{&tg.Message{ID: 1}}

	assert.Len(t, historyMessages(&tg.MessagesMessages{Messages: msgs}), 1)
	assert.Len(t, historyMessages(&tg.MessagesMessagesSlice{Messages: msgs}), 1)
	assert.Len(t, historyMessages(&tg.MessagesChannelMessages{Messages: msgs}), 1)
	assert.Nil(t, historyMessages(&tg.MessagesMessagesNotModified{}))
}

func TestMaskPhoneNumber(t *testing.T) {
	assert.Equal(t, "+7*******89", maskPhoneNumber("+7123456789"))
	assert.Equal(t, "***", maskPhoneNumber("123"))
}

func TestNewMTProtoClient_Validation(t *testing.T) {
	_, err := NewMTProtoClient(MTProtoClientConfig{APIHash: "h", PhoneNumber: "+1"})
	assert.Error(t, err)

	_, err = NewMTProtoClient(MTProtoClientConfig{APIID: 1, PhoneNumber: "+1"})
	assert.Error(t, err)

	_, err = NewMTProtoClient(MTProtoClientConfig{APIID: 1, APIHash: "h"})
	assert.Error(t, err)

	client, err := NewMTProtoClient(MTProtoClientConfig{
		APIID:       1,
		APIHash:     "h",
		PhoneNumber: "+10000000000",
		SessionDir:  t.TempDir(),
		Prompter:    &scriptedPrompter{},
	})
	require.NoError(t, err)
	assert.False(t, client.IsConnected())
	assert.NoError(t, client.Disconnect(context.Background()))
}

func TestFileSessionStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	storage, err := NewFileSessionStorage(dir, "+10000000000")
	require.NoError(t, err)
	assert.NotContains(t, storage.FilePath(), "10000000000")

	ctx := context.Background()
	_, err = storage.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, storage.StoreSession(ctx, []byte(`{"dc":2}`)))
	data, err := storage.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"dc":2}`, string(data))

	require.NoError(t, storage.DeleteSession())
	require.NoError(t, storage.DeleteSession())
	_, err = storage.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// scriptedPrompter answers prompts from a fixed list
type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (p *scriptedPrompter) Prompt(ctx context.Context, label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", errors.New("no answer")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func TestTerminalAuth(t *testing.T) {
	prompter := &scriptedPrompter{answers: []string{"12345", "secret"}}
	a := terminalAuth{phone: "+10000000000", prompter: prompter}
	ctx := context.Background()

	phone, err := a.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+10000000000", phone)

	code, err := a.Code(ctx, &tg.AuthSentCode{})
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	password, err := a.Password(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", password)

	_, err = a.SignUp(ctx)
	assert.Error(t, err)
	assert.Error(t, a.AcceptTermsOfService(ctx, tg.HelpTermsOfService{}))
}
