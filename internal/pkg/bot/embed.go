package bot

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
)

// Embed colors by deal tier
const (
	ColorHot    = 0x00ff00
	ColorGood   = 0xffa500
	ColorNormal = 0xff4444
)

const maxEmbedTitle = 100

// Embed is the subset of a Discord message embed the bot sends
type Embed struct {
	Title       string      `json:"title"`
	URL         string      `json:"url,omitempty"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Timestamp   string      `json:"timestamp,omitempty"`
	Thumbnail   *EmbedMedia `json:"thumbnail,omitempty"`
	Footer      *EmbedText  `json:"footer,omitempty"`
}

// EmbedMedia is an embed image reference
type EmbedMedia struct {
	URL string `json:"url"`
}

// EmbedText is an embed footer
type EmbedText struct {
	Text string `json:"text"`
}

// Tier returns the color and marker for a listing's deal quality and priority
func Tier(dealQuality, priority float64) (int, string) {
	switch {
	case dealQuality >= 0.8 || priority >= 100:
		return ColorHot, "🔥"
	case dealQuality >= 0.6 || priority >= 70:
		return ColorGood, "🌟"
	default:
		return ColorNormal, "⭐"
	}
}

// BuildEmbed renders a listing for the given channel kind
func BuildEmbed(l listing.Listing, kind TargetKind, now time.Time) Embed {
	color, marker := Tier(l.DealQuality, l.Priority)

	seller := l.SellerID
	if seller == "" {
		seller = "unknown"
	}

	var b strings.Builder
	// Casers and printers carry state, build them per call
	b.WriteString(message.NewPrinter(language.English).Sprintf("💴 **¥%d**", l.PriceJPY))
	fmt.Fprintf(&b, " (~$%.2f)\n", l.PriceUSD)
	fmt.Fprintf(&b, "🏷️ **%s**\n", cases.Title(language.English).String(strings.ReplaceAll(l.Brand, "_", " ")))
	fmt.Fprintf(&b, "%s **Quality: %.1f%%** | **Priority: %.0f**\n", marker, l.DealQuality*100, l.Priority)
	fmt.Fprintf(&b, "👤 **Seller:** %s\n", seller)

	b.WriteString("\n**🛒 Proxy Links:**\n")
	for _, p := range listing.Proxies {
		fmt.Fprintf(&b, "%s [%s](%s)\n", p.Emoji, p.Name, p.URL(l.AuctionID))
	}

	e := Embed{
		Title:       truncateTitle(l.Title),
		URL:         l.ZenmarketURL,
		Description: b.String(),
		Color:       color,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &EmbedText{Text: footer(l.AuctionID, kind)},
	}
	if l.ImageURL != "" {
		e.Thumbnail = &EmbedMedia{URL: l.ImageURL}
	}
	return e
}

func footer(auctionID string, kind TargetKind) string {
	if kind == TargetBudget {
		return "Budget Steal - Under $100 | ID: " + auctionID
	}
	return "ID: " + auctionID + " | !setup for proxy config | React 👍/👎 to train"
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxEmbedTitle {
		return title
	}
	return string(r[:maxEmbedTitle-3]) + "..."
}
