package portal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2/clientcredentials"

	"tender_server/core/domain"
	"tender_server/core/port/out"
	"tender_server/pkg/apperr"
	"tender_server/pkg/logger"
)

// APIPortalConfig configures a portal with a JSON API behind OAuth2 client
// credentials.
type APIPortalConfig struct {
	ID           string
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	PageSize     int
	MaxPages     int
	RequestDelay time.Duration
	Enabled      bool
}

// APIAdapter implements out.PortalAdapter against a paginated JSON listings
// endpoint.
type APIAdapter struct {
	cfg    *APIPortalConfig
	client *http.Client
	log    *logger.Logger
}

// apiListing is the portal's wire format for one listing.
type apiListing struct {
	Reference      string     `json:"reference"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	OriginalTitle  string     `json:"original_title"`
	Buyer          string     `json:"buyer"`
	PublishedAt    *time.Time `json:"published_at"`
	ClosesAt       *time.Time `json:"closes_at"`
	EstimatedValue *float64   `json:"estimated_value"`
	Currency       string     `json:"currency"`
	Type           string     `json:"type"`
	Sector         string     `json:"sector"`
}

type apiPage struct {
	Listings []apiListing `json:"listings"`
	HasMore  bool         `json:"has_more"`
}

// NewAPIAdapter creates a new APIAdapter. The OAuth2 client refreshes its
// token transparently.
func NewAPIAdapter(cfg *APIPortalConfig) *APIAdapter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 1500 * time.Millisecond
	}

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	client := credentials.Client(context.Background())
	client.Timeout = 20 * time.Second

	return &APIAdapter{
		cfg:    cfg,
		client: client,
		log:    logger.WithField("portal", cfg.ID),
	}
}

var _ out.RangedPortalAdapter = (*APIAdapter)(nil)

func (a *APIAdapter) ID() string    { return a.cfg.ID }
func (a *APIAdapter) Enabled() bool { return a.cfg.Enabled }

// Fetch pages through the listings endpoint until the portal reports no
// more pages or MaxPages is hit.
func (a *APIAdapter) Fetch(ctx context.Context) ([]*domain.RawListingRecord, error) {
	return a.FetchRange(ctx, nil, nil)
}

// FetchRange is Fetch restricted to a publication window; the portal filters
// server-side via published_from/published_to.
func (a *APIAdapter) FetchRange(ctx context.Context, from, to *time.Time) ([]*domain.RawListingRecord, error) {
	var records []*domain.RawListingRecord

	for page := 1; page <= a.cfg.MaxPages; page++ {
		if page > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.RequestDelay):
			}
		}

		result, err := a.fetchPage(ctx, page, from, to)
		if err != nil {
			return nil, apperr.AdapterError(a.cfg.ID, err)
		}
		for i := range result.Listings {
			records = append(records, a.toRaw(&result.Listings[i]))
		}
		if !result.HasMore {
			break
		}
	}

	a.log.Info("fetched %d listings", len(records))
	return records, nil
}

func (a *APIAdapter) fetchPage(ctx context.Context, page int, from, to *time.Time) (*apiPage, error) {
	url := fmt.Sprintf("%s/listings?page=%d&page_size=%d", a.cfg.BaseURL, page, a.cfg.PageSize)
	if from != nil {
		url += "&published_from=" + from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		url += "&published_to=" + to.UTC().Format(time.RFC3339)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %d: unexpected status %d", page, resp.StatusCode)
	}

	var result apiPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *APIAdapter) toRaw(listing *apiListing) *domain.RawListingRecord {
	return &domain.RawListingRecord{
		Portal:         a.cfg.ID,
		ExternalRef:    listing.Reference,
		SourceURL:      listing.URL,
		Title:          listing.Title,
		OriginalTitle:  listing.OriginalTitle,
		BuyerName:      listing.Buyer,
		PublishedAt:    listing.PublishedAt,
		ClosesAt:       listing.ClosesAt,
		EstimatedValue: listing.EstimatedValue,
		Currency:       listing.Currency,
		ListingType:    listing.Type,
		Sector:         listing.Sector,
		Raw: map[string]any{
			"reference": listing.Reference,
			"title":     listing.Title,
			"buyer":     listing.Buyer,
		},
	}
}
