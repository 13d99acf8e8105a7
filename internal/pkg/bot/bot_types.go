package bot

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// State holds the Discord connection flags shared by the HTTP handlers and
// the delivery loop. The zero value is not ready.
type State struct {
	ready   atomic.Bool
	guild   atomic.Bool
	metrics *metrics.Metrics
}

// NewState creates a not-ready state
func NewState(m *metrics.Metrics) *State {
	return &State{metrics: m}
}

// Ready reports whether the bot has logged in to Discord
func (s *State) Ready() bool {
	if s == nil {
		return false
	}
	return s.ready.Load()
}

// GuildConnected reports whether the configured guild was reachable
func (s *State) GuildConnected() bool {
	if s == nil {
		return false
	}
	return s.guild.Load()
}

// SetReady flips the ready flag
func (s *State) SetReady(ready bool) {
	s.ready.Store(ready)
	s.metrics.SetBotReady(ready)
}

// SetGuildConnected flips the guild flag
func (s *State) SetGuildConnected(connected bool) {
	s.guild.Store(connected)
}

// Sender posts an embed to a channel and returns the new message id
type Sender interface {
	SendEmbed(ctx context.Context, channelID string, e Embed) (int64, error)
}

// Deliverer fans a single listing out to its channels
type Deliverer interface {
	Deliver(ctx context.Context, l listing.Listing) (*int64, error)
}

// Connector establishes the Discord session
type Connector interface {
	Connect(ctx context.Context) error
}

// Channels routes listings to channel ids
type Channels struct {
	Alert  string
	Budget string
	brands map[string]string
}

// BudgetThresholdUSD is the price at or under which a listing is also posted to the budget channel
const BudgetThresholdUSD = 100.0

// NewChannels builds the routing table. Brand keys are matched case-insensitively.
func NewChannels(alert, budget string, brands map[string]string) Channels {
	c := Channels{
		Alert:  alert,
		Budget: budget,
		brands: make(map[string]string, len(brands)),
	}
	for brand, id := range brands {
		c.brands[normalizeBrand(brand)] = id
	}
	return c
}

// ChannelsFromConfig reads the routing table from config
func ChannelsFromConfig(cfg *config.Config) Channels {
	return NewChannels(cfg.DiscordAlertChannelID, cfg.DiscordBudgetChannel, cfg.DiscordBrandChannels)
}

// ForBrand returns the brand channel, if one is configured
func (c Channels) ForBrand(brand string) (string, bool) {
	id, ok := c.brands[normalizeBrand(brand)]
	return id, ok && id != ""
}

// Targets lists every channel a listing is posted to, alert channel first
func (c Channels) Targets(l listing.Listing) []Target {
	var targets []Target
	if c.Alert != "" {
		targets = append(targets, Target{ChannelID: c.Alert, Kind: TargetAlert})
	}
	if id, ok := c.ForBrand(l.Brand); ok && id != c.Alert {
		targets = append(targets, Target{ChannelID: id, Kind: TargetBrand})
	}
	if c.Budget != "" && l.PriceUSD <= BudgetThresholdUSD {
		targets = append(targets, Target{ChannelID: c.Budget, Kind: TargetBudget})
	}
	return targets
}

// TargetKind tells the embed builder which footer to use
type TargetKind int

const (
	TargetAlert TargetKind = iota
	TargetBrand
	TargetBudget
)

// Target is one channel a listing goes to
type Target struct {
	ChannelID string
	Kind      TargetKind
}

// viper lower-cases map keys, so "Rick Owens" arrives as "rick owens"
func normalizeBrand(brand string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(brand, "_", " ")))
}
