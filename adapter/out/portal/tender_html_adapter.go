// Package portal provides procurement portal source adapters.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tender_server/core/domain"
	"tender_server/core/port/out"
	"tender_server/pkg/apperr"
	"tender_server/pkg/logger"
)

// HTMLSelectors maps a portal's listing markup to record fields. All
// selectors are relative to Row except Row itself.
type HTMLSelectors struct {
	Row         string
	Title       string
	Link        string
	ExternalRef string
	Buyer       string
	Published   string
	Closes      string
}

// HTMLPortalConfig configures one scraped portal.
type HTMLPortalConfig struct {
	ID           string
	BaseURL      string
	PagePath     string // printf pattern with one %d page number
	Selectors    HTMLSelectors
	DateLayout   string
	MaxPages     int
	RequestDelay time.Duration
	Enabled      bool
}

// HTMLAdapter implements out.PortalAdapter by scraping paginated listing
// pages. Pagination stops at the first empty page or MaxPages, whichever
// comes first, with a politeness delay between requests.
type HTMLAdapter struct {
	cfg    *HTMLPortalConfig
	client *http.Client
	log    *logger.Logger
}

// NewHTMLAdapter creates a new HTMLAdapter.
func NewHTMLAdapter(cfg *HTMLPortalConfig) *HTMLAdapter {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 1500 * time.Millisecond
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "2006-01-02"
	}
	return &HTMLAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 20 * time.Second},
		log:    logger.WithField("portal", cfg.ID),
	}
}

var _ out.PortalAdapter = (*HTMLAdapter)(nil)

func (a *HTMLAdapter) ID() string    { return a.cfg.ID }
func (a *HTMLAdapter) Enabled() bool { return a.cfg.Enabled }

// Fetch walks the listing pages and extracts raw records. A failed page
// fails the whole fetch; partial pages would silently under-report.
func (a *HTMLAdapter) Fetch(ctx context.Context) ([]*domain.RawListingRecord, error) {
	var records []*domain.RawListingRecord

	for page := 1; page <= a.cfg.MaxPages; page++ {
		if page > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.RequestDelay):
			}
		}

		pageRecords, err := a.fetchPage(ctx, page)
		if err != nil {
			return nil, apperr.AdapterError(a.cfg.ID, err)
		}
		if len(pageRecords) == 0 {
			break
		}
		records = append(records, pageRecords...)
	}

	a.log.Info("fetched %d listings", len(records))
	return records, nil
}

func (a *HTMLAdapter) fetchPage(ctx context.Context, page int) ([]*domain.RawListingRecord, error) {
	pageURL := a.cfg.BaseURL + fmt.Sprintf(a.cfg.PagePath, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "tenderwatch/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %d: unexpected status %d", page, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var records []*domain.RawListingRecord
	doc.Find(a.cfg.Selectors.Row).Each(func(_ int, row *goquery.Selection) {
		record := a.parseRow(row)
		if record != nil {
			records = append(records, record)
		}
	})
	return records, nil
}

// parseRow extracts one listing; rows without a title are skipped.
func (a *HTMLAdapter) parseRow(row *goquery.Selection) *domain.RawListingRecord {
	title := strings.TrimSpace(row.Find(a.cfg.Selectors.Title).Text())
	if title == "" {
		return nil
	}

	record := &domain.RawListingRecord{
		Portal: a.cfg.ID,
		Title:  title,
		Raw:    map[string]any{"html": rowHTML(row)},
	}
	if a.cfg.Selectors.ExternalRef != "" {
		record.ExternalRef = strings.TrimSpace(row.Find(a.cfg.Selectors.ExternalRef).Text())
	}
	if a.cfg.Selectors.Buyer != "" {
		record.BuyerName = strings.TrimSpace(row.Find(a.cfg.Selectors.Buyer).Text())
	}
	if href, ok := row.Find(a.cfg.Selectors.Link).Attr("href"); ok {
		record.SourceURL = a.absoluteURL(href)
	}
	if a.cfg.Selectors.Published != "" {
		record.PublishedAt = a.parseDate(row.Find(a.cfg.Selectors.Published).Text())
	}
	if a.cfg.Selectors.Closes != "" {
		record.ClosesAt = a.parseDate(row.Find(a.cfg.Selectors.Closes).Text())
	}
	return record
}

func (a *HTMLAdapter) absoluteURL(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	base, err := url.Parse(a.cfg.BaseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (a *HTMLAdapter) parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(a.cfg.DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func rowHTML(row *goquery.Selection) string {
	html, err := row.Html()
	if err != nil {
		return ""
	}
	return html
}
