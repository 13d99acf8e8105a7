package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

var (
	// ErrDuplicate is returned when the bot already holds the listing
	ErrDuplicate = errors.New("listing already posted")
	// ErrRateLimited is returned when the bot kept answering 429
	ErrRateLimited = errors.New("bot rate limited the webhook")
)

// BotStatus is the last known state of the downstream bot. It is the
// readiness flag behind the sniper's own /health.
type BotStatus struct {
	ready atomic.Bool
}

// Ready reports whether the last probe found the bot connected to Discord
func (s *BotStatus) Ready() bool {
	return s != nil && s.ready.Load()
}

func (s *BotStatus) set(ok bool) {
	s.ready.Store(ok)
}

// Config holds the webhook target and signing settings
type Config struct {
	BotURL   string
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Timeout  time.Duration

	// RateLimitRetries is how many times a 429 is retried after Retry-After
	RateLimitRetries int
	MaxRetryAfter    time.Duration
}

// ConfigFromConfig builds a publisher Config from the application config
func ConfigFromConfig(cfg *config.Config) Config {
	return Config{
		BotURL:   cfg.BotURL,
		Secret:   cfg.WebhookSecret,
		Issuer:   cfg.WebhookIssuer,
		TokenTTL: cfg.WebhookTTL,
		Timeout:  10 * time.Second,

		RateLimitRetries: 2,
		MaxRetryAfter:    time.Minute,
	}
}

type botHealth struct {
	Status   string `json:"status"`
	BotReady bool   `json:"bot_ready"`
}

type webhookHealth struct {
	BotReady       bool `json:"bot_ready"`
	GuildConnected bool `json:"guild_connected"`
	BufferSize     int  `json:"buffer_size"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Publisher hands listings to the Discord bot over its webhook
type Publisher struct {
	client  *req.Client
	cfg     Config
	status  *BotStatus
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

// New creates a publisher
func New(cfg Config, m *metrics.Metrics, log *logger.Logger) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	if cfg.RateLimitRetries < 0 {
		cfg.RateLimitRetries = 0
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = time.Minute
	}

	client := req.C().
		SetBaseURL(cfg.BotURL).
		SetTimeout(cfg.Timeout).
		SetCommonHeader("Content-Type", "application/json").
		SetCommonRetryCount(2).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 2*time.Second)

	return &Publisher{
		client:  client,
		cfg:     cfg,
		status:  &BotStatus{},
		metrics: m,
		logger:  log.Named("publisher"),
		now:     time.Now,
	}
}

// Status returns the downstream bot readiness flag
func (p *Publisher) Status() *BotStatus {
	return p.status
}

func (p *Publisher) request(ctx context.Context) (*req.Request, error) {
	r := p.client.R().SetContext(ctx)
	if p.cfg.Secret == "" {
		return r, nil
	}

	token, err := utils.SignWebhookToken(p.cfg.Secret, p.cfg.Issuer, p.cfg.TokenTTL, p.now())
	if err != nil {
		return nil, err
	}
	return r.SetBearerAuthToken(token), nil
}

// Publish posts one listing to the bot. A 409 is reported as ErrDuplicate.
// A 429 is retried after the bot's Retry-After, up to RateLimitRetries times.
func (p *Publisher) Publish(ctx context.Context, l listing.Listing) error {
	for attempt := 0; ; attempt++ {
		wait, err := p.publish(ctx, l)
		if !errors.Is(err, ErrRateLimited) || attempt >= p.cfg.RateLimitRetries {
			return err
		}

		p.logger.Warn("Bot rate limited the webhook, backing off",
			zap.String("auction_id", l.AuctionID),
			zap.Duration("retry_after", wait),
			zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to post listing %s: %w", l.AuctionID, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// publish makes one attempt. On a 429 it also returns how long to wait.
func (p *Publisher) publish(ctx context.Context, l listing.Listing) (time.Duration, error) {
	r, err := p.request(ctx)
	if err != nil {
		return 0, err
	}

	var errResp errorBody
	resp, err := r.
		SetBody(&l).
		SetErrorResult(&errResp).
		Post("/webhook/listing")
	if err != nil {
		return 0, fmt.Errorf("failed to post listing %s: %w", l.AuctionID, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return 0, ErrDuplicate
	case resp.StatusCode == http.StatusTooManyRequests:
		return p.retryAfter(resp), fmt.Errorf("listing %s: %w", l.AuctionID, ErrRateLimited)
	case resp.IsErrorState():
		return 0, fmt.Errorf("bot rejected listing %s: status %d: %s", l.AuctionID, resp.StatusCode, errResp.Error)
	}

	p.logger.Debug("Listing published", zap.String("auction_id", l.AuctionID))
	return 0, nil
}

// retryAfter reads Retry-After in seconds, capped at MaxRetryAfter
func (p *Publisher) retryAfter(resp *req.Response) time.Duration {
	wait := time.Second
	if secs, err := strconv.Atoi(resp.GetHeader("Retry-After")); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}
	return min(wait, p.cfg.MaxRetryAfter)
}

// CheckBot probes the bot's /health and /webhook/health and records whether
// it is connected to its guild
func (p *Publisher) CheckBot(ctx context.Context) bool {
	ok := p.checkBot(ctx)
	p.status.set(ok)
	p.metrics.SetBotReachable(ok)
	return ok
}

func (p *Publisher) checkBot(ctx context.Context) bool {
	var health botHealth
	resp, err := p.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetSuccessResult(&health).
		Get("/health")
	if err != nil || resp.IsErrorState() {
		p.logger.Warn("Bot health check failed", zap.Error(err), zap.Int("status", statusOf(resp)))
		return false
	}
	if !health.BotReady {
		p.logger.Info("Bot is up but not ready")
		return false
	}

	var hook webhookHealth
	resp, err = p.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetSuccessResult(&hook).
		Get("/webhook/health")
	if err != nil || resp.IsErrorState() {
		p.logger.Warn("Bot webhook health check failed", zap.Error(err), zap.Int("status", statusOf(resp)))
		return false
	}

	return hook.BotReady && hook.GuildConnected
}

func statusOf(resp *req.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
