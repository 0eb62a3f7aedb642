package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/entities"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
)

// accessDeniedErrors are RPC error types meaning the channel cannot be read
var accessDeniedErrors = []string{
	"CHANNEL_PRIVATE",
	"CHANNEL_INVALID",
	"CHAT_FORBIDDEN",
	"USERNAME_INVALID",
	"USERNAME_NOT_OCCUPIED",
}

// channelAPI is the subset of the MTProto API used to read public channels
type channelAPI interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// resolvedChannel is a channel peer with its display title
type resolvedChannel struct {
	peer  *tg.InputPeerChannel
	title string
}

// MTProtoClient implements deps.ContentProvider using gotd/td
type MTProtoClient struct {
	client *telegram.Client

	apiID   int
	apiHash string

	sessionStorage *FileSessionStorage
	phoneNumber    string
	prompter       Prompter

	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{}

	logger zerolog.Logger

	api channelAPI

	// resolved usernames; username resolution is heavily rate limited by Telegram
	peers   map[string]resolvedChannel
	peersMu sync.Mutex

	rateLimiter *rate.Limiter
}

// MTProtoClientConfig holds configuration for MTProtoClient
type MTProtoClientConfig struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionDir  string
	Prompter    Prompter
	Logger      zerolog.Logger
}

// maskPhoneNumber masks phone number for logging (keeps first 2 and last 2 digits)
func maskPhoneNumber(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}

// NewMTProtoClient creates a new MTProto client instance
func NewMTProtoClient(cfg MTProtoClientConfig) (*MTProtoClient, error) {
	if cfg.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.PhoneNumber == "" {
		return nil, fmt.Errorf("PhoneNumber is required")
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = "./sessions"
	}
	if cfg.Prompter == nil {
		cfg.Prompter = NewConsolePrompter()
	}

	sessionStorage, err := NewFileSessionStorage(cfg.SessionDir, cfg.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}

	return &MTProtoClient{
		apiID:          cfg.APIID,
		apiHash:        cfg.APIHash,
		phoneNumber:    cfg.PhoneNumber,
		prompter:       cfg.Prompter,
		sessionStorage: sessionStorage,
		logger:         cfg.Logger.With().Str("component", "mtproto_client").Str("phone", maskPhoneNumber(cfg.PhoneNumber)).Logger(),
		peers:          make(map[string]resolvedChannel),
		rateLimiter:    rate.NewLimiter(rate.Every(time.Second), 5),
	}, nil
}

// Connect connects to Telegram, authenticating interactively when no session is stored.
// ctx bounds the connection and authentication only; the connection itself lives until Disconnect.
func (c *MTProtoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		c.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	defer c.mu.Unlock()

	c.logger.Info().Msg("connecting to Telegram")

	c.client = telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.sessionStorage,
	})

	clientCtx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel

	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})
	c.runDone = runDone

	client := c.client
	go func() {
		defer close(runDone)
		err := client.Run(clientCtx, func(runCtx context.Context) error {
			status, err := client.Auth().Status(runCtx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}

			if !status.Authorized {
				c.logger.Info().Msg("not authorized, starting authentication")
				// authentication is bounded by the caller's deadline
				authCtx, stop := mergeDeadline(runCtx, ctx)
				err := c.authenticateWithRetry(authCtx, client, 3)
				stop()
				if err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
			} else {
				c.logger.Info().Msg("session restored from storage")
			}

			c.api = client.API()
			close(readyChan)

			<-runCtx.Done()
			return runCtx.Err()
		})
		select {
		case errChan <- err:
		default:
		}

		c.mu.Lock()
		if c.runDone == runDone && c.connected {
			c.logger.Warn().Err(err).Msg("Telegram client stopped")
			c.connected = false
			c.api = nil
		}
		c.mu.Unlock()
	}()

	select {
	case <-readyChan:
		c.connected = true
		c.logger.Info().Msg("successfully connected to Telegram")
		return nil
	case err := <-errChan:
		cancel()
		c.client = nil
		if err != nil {
			return &feederrors.ProviderError{Op: "connect", Err: err}
		}
		return &feederrors.ProviderError{Op: "connect", Err: errors.New("client stopped before becoming ready")}
	case <-ctx.Done():
		cancel()
		c.client = nil
		return &feederrors.ProviderError{Op: "connect", Err: ctx.Err()}
	}
}

// mergeDeadline returns a context cancelled when either parent is done
func mergeDeadline(base, limit context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(limit, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Disconnect stops the client and waits for it to shut down or ctx to expire.
// Multiple calls are safe.
func (c *MTProtoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()

	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}

	if !c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already disconnected")
		return nil
	}

	c.logger.Info().Msg("disconnecting from Telegram")

	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()

		if runDone != nil {
			select {
			case <-runDone:
				c.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
			}
		}
	}

	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	c.logger.Info().Msg("successfully disconnected from Telegram")
	return nil
}

// IsConnected checks if client is connected to Telegram
func (c *MTProtoClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// getAPI returns the API client or ErrNotConnected
func (c *MTProtoClient) getAPI() (channelAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.api == nil {
		return nil, feederrors.ErrNotConnected
	}
	return c.api, nil
}

// mapError converts an MTProto error to the provider error taxonomy
func mapError(op string, err error) error {
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &feederrors.RateLimitedError{RetryAfter: d}
	}
	if tgerr.Is(err, accessDeniedErrors...) {
		return fmt.Errorf("%s: %w", op, feederrors.ErrAccessDenied)
	}
	return &feederrors.ProviderError{Op: op, Err: err}
}

// resolveChannel resolves a username to a channel peer, caching the result
func (c *MTProtoClient) resolveChannel(ctx context.Context, api channelAPI, username string) (resolvedChannel, error) {
	c.peersMu.Lock()
	cached, ok := c.peers[username]
	c.peersMu.Unlock()
	if ok {
		return cached, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return resolvedChannel{}, &feederrors.ProviderError{Op: "resolve", Err: err}
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("channel", username).Msg("failed to resolve channel")
		return resolvedChannel{}, mapError("resolve", err)
	}

	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			result := resolvedChannel{
				peer: &tg.InputPeerChannel{
					ChannelID:  channel.ID,
					AccessHash: channel.AccessHash,
				},
				title: channel.Title,
			}

			c.peersMu.Lock()
			c.peers[username] = result
			c.peersMu.Unlock()

			return result, nil
		}
	}

	return resolvedChannel{}, fmt.Errorf("resolve %s: peer is not a channel: %w", username, feederrors.ErrAccessDenied)
}

// FetchRecentMessages returns up to limit most recent messages of a public channel, newest first
func (c *MTProtoClient) FetchRecentMessages(ctx context.Context, username string, limit int) ([]entities.RawMessage, error) {
	api, err := c.getAPI()
	if err != nil {
		return nil, err
	}

	channel, err := c.resolveChannel(ctx, api, username)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &feederrors.ProviderError{Op: "history", Err: err}
	}

	result, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  channel.peer,
		Limit: limit,
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("channel", username).Msg("failed to get messages")
		return nil, mapError("history", err)
	}

	messages := convertMessages(historyMessages(result))

	c.logger.Debug().Str("channel", username).Int("messages_count", len(messages)).Msg("fetched messages")
	return messages, nil
}

// ChannelTitle returns the display title of a public channel
func (c *MTProtoClient) ChannelTitle(ctx context.Context, username string) (string, error) {
	api, err := c.getAPI()
	if err != nil {
		return "", err
	}

	channel, err := c.resolveChannel(ctx, api, username)
	if err != nil {
		return "", err
	}
	return channel.title, nil
}

func historyMessages(result tg.MessagesMessagesClass) []tg.MessageClass {
	switch messages := result.(type) {
	case *tg.MessagesChannelMessages:
		return messages.Messages
	case *tg.MessagesMessagesSlice:
		return messages.Messages
	case *tg.MessagesMessages:
		return messages.Messages
	default:
		return nil
	}
}

// convertMessages maps MTProto messages to provider messages. Service messages are kept as non-text.
func convertMessages(raw []tg.MessageClass) []entities.RawMessage {
	messages := make([]entities.RawMessage, 0, len(raw))
	for _, msg := range raw {
		switch m := msg.(type) {
		case *tg.Message:
			messages = append(messages, entities.RawMessage{
				ID:     m.ID,
				Text:   m.Message,
				Date:   time.Unix(int64(m.Date), 0).UTC(),
				IsText: true,
			})
		case *tg.MessageService:
			messages = append(messages, entities.RawMessage{
				ID:   m.ID,
				Date: time.Unix(int64(m.Date), 0).UTC(),
			})
		}
	}
	return messages
}

// Ensure MTProtoClient implements deps.ContentProvider interface
var _ deps.ContentProvider = (*MTProtoClient)(nil)
