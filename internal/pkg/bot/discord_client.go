package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

const userAgent = "DiscordBot (https://github.com/lukeswagga/discord-auction-bot, 1.0)"

// ErrUnauthorized is returned when Discord rejects the bot token
var ErrUnauthorized = errors.New("discord rejected the bot token")

// APIError is the error body Discord returns
type APIError struct {
	Status     int     `json:"-"`
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// User is the bot account returned by GET /users/@me
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Guild is the server returned by GET /guilds/{id}
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createMessage struct {
	Embeds []Embed `json:"embeds"`
}

type messageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Client talks to the Discord REST API
type Client struct {
	http    *req.Client
	guildID string
	limiter *rate.Limiter
	state   *State
	logger  *logger.Logger
}

// ClientConfig holds the Discord connection settings
type ClientConfig struct {
	BaseURL    string
	Token      string
	GuildID    string
	SendRate   float64
	RetryCount int
}

// ClientConfigFromConfig reads the Discord settings from config
func ClientConfigFromConfig(cfg *config.Config) ClientConfig {
	return ClientConfig{
		BaseURL:    cfg.DiscordAPIBase,
		Token:      cfg.DiscordBotToken,
		GuildID:    cfg.DiscordGuildID,
		SendRate:   cfg.DiscordSendRate,
		RetryCount: 2,
	}
}

// NewClient creates a Discord REST client. Sends are throttled to SendRate per second.
func NewClient(cfg ClientConfig, state *State, log *logger.Logger) *Client {
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	httpClient := req.C().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15*time.Second).
		SetUserAgent(userAgent).
		SetCommonHeader("Authorization", "Bot "+cfg.Token).
		SetCommonRetryCount(cfg.RetryCount).
		SetCommonRetryBackoffInterval(time.Second, 10*time.Second).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		})

	return &Client{
		http:    httpClient,
		guildID: cfg.GuildID,
		limiter: rate.NewLimiter(limit, 1),
		state:   state,
		logger:  log.Named("discord-client"),
	}
}

// Connect verifies the token and the guild, then marks the bot ready
func (c *Client) Connect(ctx context.Context) error {
	var me User
	if err := c.get(ctx, "/users/@me", &me); err != nil {
		c.state.SetReady(false)
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	c.logger.Info("Bot connected", zap.String("user", me.Username), zap.String("user_id", me.ID))

	var guild Guild
	if err := c.get(ctx, "/guilds/"+c.guildID, &guild); err != nil {
		c.state.SetGuildConnected(false)
		c.state.SetReady(false)
		return fmt.Errorf("failed to load guild %s: %w", c.guildID, err)
	}

	c.logger.Info("Connected to server", zap.String("guild", guild.Name), zap.String("guild_id", guild.ID))

	c.state.SetGuildConnected(true)
	c.state.SetReady(true)
	return nil
}

// SendEmbed posts a single-embed message and returns its id
func (c *Client) SendEmbed(ctx context.Context, channelID string, e Embed) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var msg messageResponse
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createMessage{Embeds: []Embed{e}}).
		SetSuccessResult(&msg).
		SetErrorResult(apiErr).
		Post("/channels/" + channelID + "/messages")
	if err := c.handleError(resp, err, "send message"); err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(msg.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected message id %q: %w", msg.ID, err)
	}
	return id, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(out).
		SetErrorResult(&APIError{}).
		Get(path)
	return c.handleError(resp, err, "GET "+path)
}

func (c *Client) handleError(resp *req.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsErrorState() {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	apiErr, ok := resp.ErrorResult().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{Message: resp.String()}
	}
	apiErr.Status = resp.StatusCode

	c.logger.Warn("Discord request failed",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.String("message", apiErr.Message))
	return apiErr
}
