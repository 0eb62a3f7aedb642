package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// Prompter asks the operator for interactive login input
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// ConsolePrompter reads answers from a terminal
type ConsolePrompter struct {
	in      *bufio.Reader
	out     io.Writer
	timeout time.Duration
}

// NewConsolePrompter creates a prompter over stdin/stdout
func NewConsolePrompter() *ConsolePrompter {
	return &ConsolePrompter{
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		timeout: 2 * time.Minute,
	}
}

// Prompt prints label and waits for one line of input
func (p *ConsolePrompter) Prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)

	lineChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		line, err := p.in.ReadString('\n')
		if err != nil {
			errChan <- fmt.Errorf("failed to read input: %w", err)
			return
		}
		lineChan <- strings.TrimSpace(line)
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case line := <-lineChan:
		return line, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("input cancelled: %w", ctx.Err())
	case <-timer.C:
		return "", fmt.Errorf("input timeout")
	}
}

// terminalAuth implements auth.UserAuthenticator for an existing account
type terminalAuth struct {
	phone    string
	prompter Prompter
}

func (a terminalAuth) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a terminalAuth) Password(ctx context.Context) (string, error) {
	return a.prompter.Prompt(ctx, "Enter 2FA password: ")
}

func (a terminalAuth) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompter.Prompt(ctx, "Enter authentication code: ")
}

func (a terminalAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a terminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported, use a registered account")
}

// nonRetryableErrors fail authentication immediately
var nonRetryableErrors = []string{
	"PHONE_NUMBER_BANNED",
	"PHONE_NUMBER_INVALID",
	"API_ID_INVALID",
	"API_ID_PUBLISHED_FLOOD",
	"AUTH_TOKEN_INVALID",
	"PASSWORD_HASH_INVALID",
}

// authenticateWithRetry runs the login flow, waiting out flood waits and retrying transient failures
func (c *MTProtoClient) authenticateWithRetry(ctx context.Context, client *telegram.Client, maxRetries int) error {
	var lastErr error
	baseDelay := time.Second

	flow := auth.NewFlow(terminalAuth{phone: c.phoneNumber, prompter: c.prompter}, auth.SendCodeOptions{})

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := client.Auth().IfNecessary(ctx, flow)
		if err == nil {
			c.logger.Info().Msg("authentication successful")
			return nil
		}
		lastErr = err

		if tgerr.Is(err, nonRetryableErrors...) {
			return fmt.Errorf("authentication failed with non-retryable error: %w", err)
		}

		var signUp *auth.SignUpRequired
		if errors.As(err, &signUp) {
			return err
		}

		delay := baseDelay * (1 << attempt)
		if wait, ok := tgerr.AsFloodWait(err); ok {
			delay = wait
			c.logger.Warn().Int("attempt", attempt+1).Dur("wait_duration", wait).Msg("flood wait detected, waiting before retry")
		} else if tgerr.Is(err, "SESSION_REVOKED") {
			c.logger.Error().Msg("session has been revoked, need to re-authenticate")
			if err := c.sessionStorage.DeleteSession(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to delete revoked session")
			}
			delay = 0
		} else if tgerr.Is(err, "PHONE_CODE_INVALID") {
			c.logger.Error().Msg("invalid phone code provided, please try again")
			delay = 0
		} else {
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_delay", delay).Msg("authentication failed, retrying")
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("authentication failed after %d attempts: %w", maxRetries, lastErr)
}
