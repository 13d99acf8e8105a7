package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Spam reasons returned by IsSpam
const (
	ReasonEmptyTitle    = "empty_title"
	ReasonTooShort      = "title_too_short"
	ReasonTooLong       = "title_too_long"
	ReasonLowAlphaRatio = "low_alpha_ratio"
	ReasonPassed        = "passed_all_checks"
)

const (
	minTitleLength = 10
	maxTitleLength = 200
	minAlphaRatio  = 0.3
)

var genericSpamPatterns = compileAll(
	`replica|fake|copy|knock.?off|bootleg|unauthorized`,
	`スーパーコピー|レプリカ|偽物|コピー品`,
	`book|magazine|catalogue|catalog|cd|dvd|poster|sticker`,
	`本|雑誌|カタログ|ポスター|ステッカー|写真`,
	`damaged|broken|parts?.only|repair|restoration`,
	`破損|破れ|汚れ|ダメージ|部品のみ`,
	`phone.?case|iphone|android|computer|laptop`,
	`ケース|スマホ|携帯|パソコン`,
)

// brand keys are lowercase names
var brandSpamPatterns = map[string][]*regexp.Regexp{
	"stone island": compileAll(`badge.only|patch.only|logo.only`, `バッジのみ|ワッペンのみ`),
	"rick owens":   compileAll(`inspired|style|similar`, `風|っぽい|系`),
}

var alphaPattern = regexp.MustCompile(`[a-zA-Zあ-んア-ン一-龯]`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// SpamDetector rejects listings that are not the garment itself
type SpamDetector struct {
	generic []*regexp.Regexp
	brands  map[string][]*regexp.Regexp
}

// NewSpamDetector returns a detector with the built-in pattern sets
func NewSpamDetector() *SpamDetector {
	return &SpamDetector{
		generic: genericSpamPatterns,
		brands:  brandSpamPatterns,
	}
}

// IsSpam reports whether title looks like spam and why. The reason is
// ReasonPassed when it does not.
func (d *SpamDetector) IsSpam(title, brand string) (bool, string) {
	if strings.TrimSpace(title) == "" {
		return true, ReasonEmptyTitle
	}

	for _, re := range d.generic {
		if re.MatchString(title) {
			return true, "pattern:" + re.String()[4:]
		}
	}
	for _, re := range d.brands[strings.ToLower(strings.ReplaceAll(brand, "_", " "))] {
		if re.MatchString(title) {
			return true, "brand_pattern:" + re.String()[4:]
		}
	}

	length := utf8.RuneCountInString(title)
	if length < minTitleLength {
		return true, ReasonTooShort
	}
	if length > maxTitleLength {
		return true, ReasonTooLong
	}

	alpha := len(alphaPattern.FindAllStringIndex(title, -1))
	if float64(alpha)/float64(length) < minAlphaRatio {
		return true, ReasonLowAlphaRatio
	}

	return false, ReasonPassed
}
