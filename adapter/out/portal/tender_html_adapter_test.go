package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listingPage = `
<html><body>
<table>
  <tr class="listing">
    <td class="ref">T-2024-001</td>
    <td class="title"><a href="/tenders/1">Supply of network switches</a></td>
    <td class="buyer">City of Example</td>
    <td class="published">2024-03-01</td>
    <td class="closes">2024-04-01</td>
  </tr>
  <tr class="listing">
    <td class="ref">T-2024-002</td>
    <td class="title"><a href="/tenders/2">Road resurfacing</a></td>
    <td class="buyer">Highways Agency</td>
    <td class="published">2024-03-02</td>
    <td class="closes">not-a-date</td>
  </tr>
  <tr class="listing">
    <td class="ref">T-2024-003</td>
    <td class="title"><a href="/tenders/3"></a></td>
  </tr>
</table>
</body></html>`

func testSelectors() HTMLSelectors {
	return HTMLSelectors{
		Row:         "tr.listing",
		Title:       "td.title a",
		Link:        "td.title a",
		ExternalRef: "td.ref",
		Buyer:       "td.buyer",
		Published:   "td.published",
		Closes:      "td.closes",
	}
}

func TestHTMLAdapterFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, listingPage)
			return
		}
		fmt.Fprint(w, "<html><body></body></html>") // empty page ends pagination
	}))
	defer server.Close()

	adapter := NewHTMLAdapter(&HTMLPortalConfig{
		ID:           "eproc",
		BaseURL:      server.URL,
		PagePath:     "/tenders?page=%d",
		Selectors:    testSelectors(),
		MaxPages:     5,
		RequestDelay: time.Millisecond,
		Enabled:      true,
	})

	records, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	// third row has no title text and is skipped
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Portal != "eproc" || first.ExternalRef != "T-2024-001" {
		t.Errorf("identity = %q/%q, want eproc/T-2024-001", first.Portal, first.ExternalRef)
	}
	if first.Title != "Supply of network switches" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.SourceURL != server.URL+"/tenders/1" {
		t.Errorf("SourceURL = %q, want absolute URL", first.SourceURL)
	}
	if first.PublishedAt == nil || first.PublishedAt.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}
	if records[1].ClosesAt != nil {
		t.Error("unparseable close date should come through nil")
	}
	if first.Raw["html"] == "" {
		t.Error("raw payload should carry the row markup")
	}
}

func TestHTMLAdapterStopsAtMaxPages(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		fmt.Fprint(w, listingPage) // never empty
	}))
	defer server.Close()

	adapter := NewHTMLAdapter(&HTMLPortalConfig{
		ID:           "eproc",
		BaseURL:      server.URL,
		PagePath:     "/tenders?page=%d",
		Selectors:    testSelectors(),
		MaxPages:     3,
		RequestDelay: time.Millisecond,
		Enabled:      true,
	})

	if _, err := adapter.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if pages != 3 {
		t.Errorf("fetched %d pages, want 3", pages)
	}
}

func TestHTMLAdapterPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewHTMLAdapter(&HTMLPortalConfig{
		ID:        "eproc",
		BaseURL:   server.URL,
		PagePath:  "/tenders?page=%d",
		Selectors: testSelectors(),
		Enabled:   true,
	})

	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() should fail on HTTP error")
	}
}
