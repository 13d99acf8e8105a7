package listing

import (
	"errors"
	"net/http"
	"regexp"
	"sync"
	"time"

	validator "github.com/go-playground/validator/v10"
)

// Listing is one Yahoo auction item flowing from the sniper to Discord
type Listing struct {
	AuctionID      string     `json:"auction_id" db:"auction_id" validate:"required,auction_id"`
	Title          string     `json:"title" db:"title" validate:"required,max=500"`
	Brand          string     `json:"brand" db:"brand" validate:"required,max=100"`
	PriceJPY       int64      `json:"price_jpy" db:"price_jpy" validate:"gte=0,lte=2147483647"`
	PriceUSD       float64    `json:"price_usd" db:"price_usd" validate:"gte=0"`
	SellerID       string     `json:"seller_id,omitempty" db:"seller_id"`
	ZenmarketURL   string     `json:"zenmarket_url" db:"zenmarket_url" validate:"required,url"`
	YahooURL       string     `json:"yahoo_url,omitempty" db:"yahoo_url" validate:"omitempty,url"`
	ImageURL       string     `json:"image_url,omitempty" db:"image_url" validate:"omitempty,url"`
	DealQuality    float64    `json:"deal_quality" db:"deal_quality" validate:"gte=0,lte=1"`
	Priority       float64    `json:"priority" db:"priority_score"`
	AuctionEndTime *time.Time `json:"auction_end_time,omitempty" db:"-"`
	Sizes          []string   `json:"sizes,omitempty" db:"-"`
	IsNewListing   bool       `json:"is_new_listing,omitempty" db:"-"`
	MessageID      *int64     `json:"message_id,omitempty" db:"message_id"`
	CreatedAt      time.Time  `json:"created_at,omitempty" db:"created_at"`
}

// WebhookRequest is the JSON body the sniper posts. Pointers distinguish a
// missing price from a zero price. price_jpy is stored as a Postgres INTEGER.
type WebhookRequest struct {
	Listing
	PriceJPY *int64   `json:"price_jpy" validate:"required,gte=0,lte=2147483647"`
	PriceUSD *float64 `json:"price_usd" validate:"required,gte=0"`
}

// ToListing flattens the request once it has been validated
func (r *WebhookRequest) ToListing() Listing {
	l := r.Listing
	if r.PriceJPY != nil {
		l.PriceJPY = *r.PriceJPY
	}
	if r.PriceUSD != nil {
		l.PriceUSD = *r.PriceUSD
	}
	if l.SellerID == "" {
		l.SellerID = "unknown"
	}
	return l
}

// Stats summarises the listing store for GET /stats
type Stats struct {
	TotalListings  int64 `json:"total_listings"`
	TotalReactions int64 `json:"total_reactions"`
	ActiveUsers    int64 `json:"active_users"`
	BufferSize     int   `json:"buffer_size"`
}

// ScrapeStats is one sniper cycle's bookkeeping row
type ScrapeStats struct {
	Timestamp        time.Time `json:"timestamp"`
	TotalFound       int       `json:"total_found"`
	QualityFiltered  int       `json:"quality_filtered"`
	SentToDiscord    int       `json:"sent_to_discord"`
	ErrorsCount      int       `json:"errors_count"`
	KeywordsSearched int       `json:"keywords_searched"`
}

// auctionIDPattern matches Yahoo auction ids such as "x123456789" or "1098765432",
// optionally carrying the "yahoo_" prefix the sniper used historically
var auctionIDPattern = regexp.MustCompile(`^(yahoo_)?[a-zA-Z]?[0-9]{6,12}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the auction_id rule registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("auction_id", func(fl validator.FieldLevel) bool {
			return auctionIDPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks a webhook request
func (r *WebhookRequest) Validate() error {
	return Validator().Struct(r)
}

// ListingError represents a listing-related error with an HTTP status code
type ListingError struct {
	Message string
	Code    int
}

// NewListingErrorWithCode creates a new ListingError
func NewListingErrorWithCode(message string, code int) *ListingError {
	return &ListingError{Message: message, Code: code}
}

func (e *ListingError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for this error
func (e *ListingError) StatusCode() int {
	return e.Code
}

// Domain errors for the listing module
var (
	ErrDuplicateListing = NewListingErrorWithCode("listing already posted", http.StatusConflict)
	ErrInvalidListing   = NewListingErrorWithCode("Missing required fields", http.StatusBadRequest)
)

// IsDuplicate reports whether err is ErrDuplicateListing
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateListing)
}
