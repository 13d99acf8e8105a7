package yahoo

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const auctionBaseURL = "https://auctions.yahoo.co.jp/jp/auction/"

var (
	titleSelectors = []string{".Product__title a", ".Product__title", "h3 a", "h3", ".title a", ".title", "a[title]"}
	priceSelectors = []string{".Product__price", ".Price", ".price"}
	digitsPattern  = regexp.MustCompile(`[\d,]+`)
)

// Parse extracts auction items from a search results page. Items without an
// auction id, title or price are skipped.
func Parse(page []byte) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var items []Item
	doc.Find("div.Product, li.Product").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= PageSize {
			return false
		}
		if item, ok := parseItem(s); ok {
			items = append(items, item)
		}
		return true
	})
	return items, nil
}

func parseItem(s *goquery.Selection) (Item, bool) {
	id := auctionID(s)
	if id == "" {
		return Item{}, false
	}

	title := itemTitle(s)
	if title == "" {
		return Item{}, false
	}

	price := itemPrice(s)
	if price <= 0 {
		return Item{}, false
	}

	return Item{
		AuctionID: id,
		Title:     title,
		PriceJPY:  price,
		ImageURL:  itemImage(s),
		YahooURL:  auctionBaseURL + id,
	}, true
}

func auctionID(s *goquery.Selection) string {
	var id string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "dummy") ||
			!strings.Contains(href, "auctions.yahoo.co.jp") ||
			!strings.Contains(href, "/auction/") {
			return true
		}

		candidate := href[strings.Index(href, "/auction/")+len("/auction/"):]
		if i := strings.IndexAny(candidate, "?#"); i >= 0 {
			candidate = candidate[:i]
		}
		candidate = strings.Trim(candidate, "/")
		if candidate == "" {
			return true
		}
		id = candidate
		return false
	})
	return id
}

func itemTitle(s *goquery.Selection) string {
	for _, sel := range titleSelectors {
		el := s.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t, ok := el.Attr("title"); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
		if t := strings.TrimSpace(el.Text()); t != "" {
			return t
		}
	}
	return ""
}

func itemPrice(s *goquery.Selection) int64 {
	for _, sel := range priceSelectors {
		el := s.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		digits := strings.ReplaceAll(digitsPattern.FindString(el.Text()), ",", "")
		if digits == "" {
			continue
		}
		price, err := strconv.ParseInt(digits, 10, 64)
		if err == nil {
			return price
		}
	}
	return 0
}

func itemImage(s *goquery.Selection) string {
	img := s.Find("img").First()
	src, ok := img.Attr("src")
	if !ok || src == "" {
		src, _ = img.Attr("data-src")
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return src
}
