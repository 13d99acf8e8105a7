package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var excludedItems = []string{
	"perfume", "cologne", "fragrance", "香水",
	"watch", "時計",
	"motorcycle", "engine", "エンジン", "cb400", "vtr250",
	"server", "raid", "pci", "computer",
	"食品", "food", "snack", "チップ",
	"財布", "バッグ", "鞄", "カバン", "ハンドバッグ", "トートバッグ", "クラッチ", "ポーチ",
	"フレグランス", "コロン", "スプレー",
	"ネックレス", "ブレスレット", "指輪", "イヤリング",
	"ベルト", "ネクタイ", "スカーフ", "手袋", "帽子", "キャップ", "ビーニー",
	"chip", "chips", "スナック",
	"poster", "ポスター", "sticker", "ステッカー", "magazine", "雑誌", "dvd", "book", "本",
	"figure", "フィギュア", "toy", "おもちゃ",
	"phone case", "ケース", "iphone", "samsung", "tech", "電子",
	"fred perry", "フレッドペリー", "femme",
}

// IsClothing reports whether title is a garment rather than an accessory or
// unrelated item
func IsClothing(title string) bool {
	lower := strings.ToLower(title)
	for _, item := range excludedItems {
		if strings.Contains(lower, item) {
			return false
		}
	}
	return true
}

type category struct {
	terms []string
	base  float64
}

// categories are matched in order; the first hit sets the base market price in USD
var categories = []category{
	{[]string{"tee", "t-shirt", "シャツ", "tシャツ"}, 40},
	{[]string{"shirt", "button", "dress shirt"}, 60},
	{[]string{"jacket", "blazer", "ジャケット"}, 120},
	{[]string{"coat", "outerwear", "コート"}, 150},
	{[]string{"hoodie", "sweatshirt", "パーカー"}, 80},
	{[]string{"pants", "trousers", "jeans", "パンツ"}, 80},
}

const defaultBasePrice = 60

var brandMultipliers = map[string]float64{
	"raf_simons":         3.0,
	"rick_owens":         2.5,
	"maison_margiela":    2.2,
	"jean_paul_gaultier": 2.0,
	"yohji_yamamoto":     1.8,
	"junya_watanabe":     1.6,
	"comme_des_garcons":  1.5,
	"undercover":         1.4,
	"martine_rose":       1.5,
	"miu_miu":            1.3,
	"vetements":          1.4,
	"balenciaga":         1.3,
	"chrome_hearts":      1.4,
	"celine":             1.2,
	"bottega_veneta":     1.2,
	"alyx":               1.3,
	"kiko_kostadinov":    1.3,
	"prada":              1.2,
	"hysteric_glamour":   1.0,
}

var archiveKeywords = []string{
	"archive", "rare", "vintage", "fw", "ss", "runway", "campaign",
	"limited", "exclusive", "sample", "prototype", "deadstock",
	"アーカイブ", "レア", "ヴィンテージ", "限定", "サンプル",
	"collaboration", "collab", "コラボ",
}

const maxResaleBoost = 0.8

func brandKey(brand string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(brand)), " ", "_")
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// MarketPrice estimates the typical USD price for a title and brand
func MarketPrice(title, brand string) float64 {
	lower := strings.ToLower(title)

	base := float64(defaultBasePrice)
	for _, c := range categories {
		if containsAny(lower, c.terms...) {
			base = c.base
			break
		}
	}

	multiplier, ok := brandMultipliers[brandKey(brand)]
	if !ok {
		multiplier = 1.0
	}
	return base * multiplier
}

// ResaleBoost scores archive keywords, strong resale brands, collaborations
// and large sizes, capped at 0.8
func ResaleBoost(title, brand string) float64 {
	lower := strings.ToLower(title)
	key := brandKey(brand)
	boost := 0.0

	if containsAny(lower, archiveKeywords...) {
		boost += 0.4
	}

	switch key {
	case "raf_simons":
		if containsAny(lower, "tee", "t-shirt", "shirt", "シャツ", "tシャツ") {
			boost += 0.4
		} else if containsAny(lower, "jacket", "hoodie", "sweater", "pants") {
			boost += 0.25
		}
	case "rick_owens":
		boost += 0.2
	case "maison_margiela", "jean_paul_gaultier", "yohji_yamamoto", "junya_watanabe":
		boost += 0.15
	}

	if containsAny(lower, "collaboration", "collab", "x ", " x ", "コラボ") {
		boost += 0.2
	}
	if containsAny(lower, "xl", "xxl", "large", "l ", "50", "52", "54") {
		boost += 0.05
	}

	return min(boost, maxResaleBoost)
}

// DealQuality rates a price against the estimated market price, in [0,1]
func DealQuality(priceUSD float64, brand, title string) float64 {
	market := MarketPrice(title, brand)

	var quality float64
	switch {
	case priceUSD >= market*1.5:
		quality = 0.2
	case priceUSD >= market:
		quality = 0.5
	default:
		quality = min(1.0, 0.8+(market-priceUSD)/market)
	}

	quality += ResaleBoost(title, brand)
	return max(0, min(1, quality))
}

var (
	topPriorityBrands    = []string{"stone island", "rick owens", "balenciaga", "off-white"}
	secondPriorityBrands = []string{"supreme", "palace", "bape"}
)

// PriorityScore orders listings for delivery, in [0,100]
func PriorityScore(priceUSD float64, brand, title string, quality float64) float64 {
	score := 50.0

	b := strings.ToLower(strings.ReplaceAll(brand, "_", " "))
	switch {
	case containsAny(b, topPriorityBrands...):
		score += 30
	case containsAny(b, secondPriorityBrands...):
		score += 20
	}

	switch {
	case priceUSD < 50:
		score += 25
	case priceUSD < 100:
		score += 15
	case priceUSD < 200:
		score += 10
	}

	score += float64(int(quality * 100))

	if n := utf8.RuneCountInString(title); n > 20 && n < 100 {
		score += 10
	}

	return min(score, 100)
}

// Thresholds bounds what counts as a quality listing
type Thresholds struct {
	MinPriceUSD float64
	MaxPriceUSD float64
	MinQuality  float64
}

// IsQuality applies the price window, the clothing check and the deal quality
// threshold. The computed quality is returned for reuse.
func IsQuality(priceUSD float64, brand, title string, t Thresholds) (bool, float64) {
	if priceUSD < t.MinPriceUSD || priceUSD > t.MaxPriceUSD {
		return false, 0
	}
	if !IsClothing(title) {
		return false, 0
	}
	quality := DealQuality(priceUSD, brand, title)
	return quality >= t.MinQuality, quality
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(xs|s|m|l|xl|xxl|xxxl)\b`),
	regexp.MustCompile(`(?i)\b(small|medium|large|x-large|xx-large)\b`),
	regexp.MustCompile(`\b(44|46|48|50|52|54|56)\b`),
	regexp.MustCompile(`サイズ([SML])`),
	regexp.MustCompile(`(?i)size\s*[:：]\s*(\w+)`),
}

// ExtractSizes returns the distinct sizes mentioned in title, in order of
// first appearance per pattern
func ExtractSizes(title string) []string {
	var sizes []string
	seen := make(map[string]struct{})
	for _, re := range sizePatterns {
		for _, m := range re.FindAllStringSubmatch(title, -1) {
			size := strings.ToUpper(m[1])
			if _, dup := seen[size]; dup {
				continue
			}
			seen[size] = struct{}{}
			sizes = append(sizes, size)
		}
	}
	return sizes
}
