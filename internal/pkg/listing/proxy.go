package listing

import (
	"fmt"
	"strings"
)

// Proxy is a buying service that fronts Yahoo Auctions
type Proxy struct {
	Key         string
	Name        string
	Emoji       string
	urlTemplate string
}

// Proxies lists the supported services in display order
var Proxies = []Proxy{
	{Key: "zenmarket", Name: "ZenMarket", Emoji: "🛒", urlTemplate: "https://zenmarket.jp/en/auction.aspx?itemCode=%s"},
	{Key: "buyee", Name: "Buyee", Emoji: "📦", urlTemplate: "https://buyee.jp/item/yahoo/auction/%s"},
	{Key: "yahoo_japan", Name: "Yahoo Japan Direct", Emoji: "🇯🇵", urlTemplate: "https://page.auctions.yahoo.co.jp/jp/auction/%s"},
}

// DefaultProxy is used for unknown service keys
const DefaultProxy = "zenmarket"

// CleanAuctionID strips the legacy "yahoo_" prefix
func CleanAuctionID(auctionID string) string {
	return strings.TrimPrefix(auctionID, "yahoo_")
}

// URL builds the item link on this proxy
func (p Proxy) URL(auctionID string) string {
	return fmt.Sprintf(p.urlTemplate, CleanAuctionID(auctionID))
}

// ProxyURL builds the item link for the named service, falling back to ZenMarket
func ProxyURL(service, auctionID string) string {
	for _, p := range Proxies {
		if p.Key == service {
			return p.URL(auctionID)
		}
	}
	return Proxies[0].URL(auctionID)
}
