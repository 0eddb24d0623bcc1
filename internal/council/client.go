package council

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bins-status-backend/config"
	"bins-status-backend/internal/bins"
)

// ErrNoAddresses is returned when a postcode lookup yields no matches. This
// is a configuration error: setup must be rejected, not partially completed.
var ErrNoAddresses = errors.New("no addresses found for postcode")

// Client talks to the council's address-lookup and collection-details
// endpoints.
type Client struct {
	lookupBase  string
	detailsBase string
	client      *http.Client
	loc         *time.Location
}

// NewClient builds a Client from the council configuration.
func NewClient(cfg *config.CouncilConfig) (*Client, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: invalid proxy URL %q: %v. Client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		lookupBase:  strings.TrimRight(cfg.LookupBaseURL, "/"),
		detailsBase: strings.TrimRight(cfg.DetailsBaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		loc: loc,
	}, nil
}

// Location returns the timezone collection dates are interpreted in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// LookupAddresses resolves a postcode to candidate addresses. Returns
// ErrNoAddresses when the council knows no property at that postcode.
func (c *Client) LookupAddresses(ctx context.Context, postcode string) ([]Address, error) {
	endpoint := c.lookupBase + "/getAddresses/" + url.PathEscape(strings.TrimSpace(postcode))

	var records []addressRecord
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}

	addresses := make([]Address, 0, len(records))
	for _, rec := range records {
		uprn := rec.Uprn.String()
		if uprn == "" {
			continue
		}
		addresses = append(addresses, Address{UPRN: uprn, Label: rec.label()})
	}

	if len(addresses) == 0 {
		return nil, ErrNoAddresses
	}
	return addresses, nil
}

// label joins the non-empty address components into a display string.
func (r addressRecord) label() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{r.Property, r.Street, r.Locality, r.Town, r.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FetchCollections retrieves the collection schedule and live status for a
// property. Services the response omits, or that are not a recognized
// collection type, are left out of the snapshot.
func (c *Client) FetchCollections(ctx context.Context, uprn string) (*bins.Snapshot, error) {
	endpoint := c.detailsBase + "/GetCollectionDetails?" + url.Values{"uprn": {uprn}}.Encode()

	var resp detailsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	snapshot := &bins.Snapshot{
		Collections: make(map[bins.Type]bins.Collection, len(resp.Value)),
		FetchedAt:   time.Now().In(c.loc),
	}

	for _, svc := range resp.Value {
		t, ok := bins.ParseType(svc.ServiceName)
		if !ok {
			continue
		}
		snapshot.Collections[t] = bins.Collection{
			Type:           t,
			NextCollection: c.parseDate(svc.NextCollection),
			LastCollection: c.parseDate(svc.LastCollection),
			LastCompleted:  c.parseTimestamp(svc.LastCompleted),
			LiveStatus:     svc.StateName,
			StatusReason:   svc.Reason,
			StatusSource:   svc.StateSource,
			Schedule:       svc.ScheduleDescription,
			Round:          svc.Round,
			RoundGroup:     svc.RoundGroup,
		}
	}

	return snapshot, nil
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// parseTimestamp parses an RFC3339 timestamp into the council timezone.
// Empty and unparseable values yield nil; a bad field must not fail the
// whole fetch.
func (c *Client) parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Printf("Warning: could not parse timestamp %q: %v", s, err)
		return nil
	}
	local := t.In(c.loc)
	return &local
}

// parseDate parses an RFC3339 timestamp and truncates it to the calendar day
// in the council timezone.
func (c *Client) parseDate(s string) *time.Time {
	t := c.parseTimestamp(s)
	if t == nil {
		return nil
	}
	d := bins.DateOnly(*t)
	return &d
}
