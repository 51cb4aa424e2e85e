// Package scan probes data broker sites for a user's personal
// information and records the findings as exposures.
package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/provider/resilience"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// maxBodyBytes caps how much of a broker page is read for matching.
const maxBodyBytes = 1 << 20

// Result is the outcome of probing one broker for one profile.
type Result struct {
	Found      bool
	ProfileURL string
	DataFound  map[string]bool
}

// Prober checks a single broker site for a profile.
type Prober interface {
	Probe(ctx context.Context, b *broker.Broker, profile *user.Profile) (*Result, error)
}

// SiteProber fetches broker search pages over HTTP and matches the
// profile's name heuristically against the response body.
type SiteProber struct {
	client *resilience.Client
	logger zerolog.Logger
}

// NewSiteProber creates a prober backed by a resilient HTTP client.
func NewSiteProber(client *resilience.Client, logger zerolog.Logger) *SiteProber {
	return &SiteProber{client: client, logger: logger}
}

// Probe fetches the broker's search URL for the profile and reports
// whether a listing appears to exist.
func (p *SiteProber) Probe(ctx context.Context, b *broker.Broker, profile *user.Profile) (*Result, error) {
	searchURL := BuildSearchURL(b.SearchURLPattern, profile)
	if searchURL == "" {
		return &Result{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building probe request for %s: %w", b.Domain, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PrivacyEraser/1.0)")

	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", b.Domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug().Str("broker", b.Domain).Int("status", resp.StatusCode).Msg("probe returned non-200")
		return &Result{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading probe response from %s: %w", b.Domain, err)
	}

	return matchProfile(string(body), searchURL, profile), nil
}

// BuildSearchURL fills the broker's search pattern placeholders from
// the profile. Returns "" when the pattern or the name is missing.
func BuildSearchURL(pattern string, profile *user.Profile) string {
	if pattern == "" || !profile.HasName() {
		return ""
	}

	city, state := primaryLocation(profile)
	replacer := strings.NewReplacer(
		"{first_name}", url.PathEscape(profile.FirstName),
		"{last_name}", url.PathEscape(profile.LastName),
		"{city}", url.PathEscape(city),
		"{state}", url.PathEscape(state),
	)
	return replacer.Replace(pattern)
}

func primaryLocation(profile *user.Profile) (city, state string) {
	if len(profile.Addresses) == 0 {
		return "", ""
	}
	return profile.Addresses[0].City, profile.Addresses[0].State
}

// matchProfile applies the name heuristic: the page counts as a hit
// when it mentions the full name and does not declare an empty result.
func matchProfile(body, pageURL string, profile *user.Profile) *Result {
	lower := strings.ToLower(body)
	fullName := strings.ToLower(profile.FirstName + " " + profile.LastName)

	if !strings.Contains(lower, fullName) || strings.Contains(lower, "no results") {
		return &Result{}
	}

	return &Result{
		Found:      true,
		ProfileURL: pageURL,
		DataFound: map[string]bool{
			"name":      true,
			"address":   strings.Contains(lower, "address"),
			"phone":     strings.Contains(lower, "phone"),
			"email":     strings.Contains(body, "@"),
			"relatives": strings.Contains(lower, "relatives"),
			"age":       strings.Contains(lower, "age") || strings.Contains(lower, "born"),
		},
	}
}
