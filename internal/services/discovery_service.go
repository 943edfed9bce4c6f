package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/version"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// categoryPatterns map locator shapes to a suggested category; first match
// wins and unmatched locators stay unknown.
var categoryPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)tilda-members|members\.tildaapi\.com|members2\.tildacdn\.com`), types.CategoryMembers},
	{regexp.MustCompile(`(?i)tilda-(cart|catalog|wishlist|products|variant)`), types.CategoryEcommerce},
	{regexp.MustCompile(`(?i)tilda-zero`), types.CategoryZeroBlock},
	{regexp.MustCompile(`(?i)tilda-(quiz|cards|stories|slider|popup|slds|zoom|video)`), types.CategoryUIComponents},
	{regexp.MustCompile(`(?i)tilda-(scripts|grid|forms|animation|cover|menu|lazyload|events)`), types.CategoryCore},
	{regexp.MustCompile(`(?i)tilda-(phone|conditional|payment|ratescale|step-manager|widget|lk|skiplink|stat|error|performance|table|paint|redactor|highlight)`), types.CategoryUtilities},
}

var categoryPriorities = map[string]string{
	types.CategoryCore:         types.PriorityCritical,
	types.CategoryMembers:      types.PriorityCritical,
	types.CategoryEcommerce:    types.PriorityHigh,
	types.CategoryZeroBlock:    types.PriorityHigh,
	types.CategoryUIComponents: types.PriorityMedium,
	types.CategoryUtilities:    types.PriorityLow,
	types.CategoryUnknown:      types.PriorityMedium,
}

// defaultWatchedDomains are the CDN hosts scanned when no explicit domain list
// is configured.
var defaultWatchedDomains = []string{
	"static.tildacdn.com",
	"members.tildaapi.com",
	"members2.tildacdn.com",
	"neo.tildacdn.com",
}

var (
	scriptSrcRe = regexp.MustCompile(`(?i)<script[^>]+src\s*=\s*["']([^"']+)["']`)
	linkHrefRe  = regexp.MustCompile(`(?i)<link[^>]+href\s*=\s*["']([^"']+)["']`)
	rawAssetRe  = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.(?:js|css)`)
)

// DiscoverySummary aggregates one scan over all configured entry pages.
type DiscoverySummary struct {
	Pages    int `json:"pages"`
	Failed   int `json:"failed"`
	Found    int `json:"found"`
	Recorded int `json:"recorded"`
	New      int `json:"new"`
}

// DiscoveryService scans entry pages for asset locators on the watched CDN
// domains and records them as candidates. It proposes, never promotes: turning
// a candidate into a migration is the update finder's call.
type DiscoveryService interface {
	Scan(ctx context.Context) (DiscoverySummary, error)
}

type discoveryService struct {
	db         *gorm.DB
	log        *logger.Logger
	fetcher    fetch.Fetcher
	assets     repos.TrackedAssetRepo
	candidates repos.CandidateAssetRepo
	notify     Notifier
	pages      []string
	domains    []string
}

func NewDiscoveryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	fetcher fetch.Fetcher,
	assets repos.TrackedAssetRepo,
	candidates repos.CandidateAssetRepo,
	notify Notifier,
	pages []string,
	domains []string,
) DiscoveryService {
	if len(domains) == 0 {
		domains = defaultWatchedDomains
	}
	return &discoveryService{
		db:         db,
		log:        baseLog.With("service", "DiscoveryService"),
		fetcher:    fetcher,
		assets:     assets,
		candidates: candidates,
		notify:     notify,
		pages:      pages,
		domains:    domains,
	}
}

type sighting struct {
	locator    string
	sourcePage string
}

func (s *discoveryService) Scan(ctx context.Context) (DiscoverySummary, error) {
	sum := DiscoverySummary{Pages: len(s.pages)}
	if len(s.pages) == 0 {
		s.log.Warn("no entry pages configured, skipping discovery")
		return sum, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	tracked, err := s.assets.List(dbc, "", "", nil, 0, 0)
	if err != nil {
		return sum, fmt.Errorf("list tracked assets: %w", err)
	}
	trackedURLs := make(map[string]struct{}, len(tracked))
	for _, ta := range tracked {
		trackedURLs[ta.URL] = struct{}{}
	}

	seen := make(map[string]struct{})
	sightings := make([]sighting, 0, 32)
	for _, page := range s.pages {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.fetcher.Fetch(ctx, page)
		if err != nil {
			sum.Failed++
			// one unreachable page never aborts the scan
			s.log.Warn("entry page fetch failed",
				"page", page,
				"class", fetch.ErrorClass(err),
				"error", err,
			)
			continue
		}
		found := 0
		for _, loc := range s.extractLocators(page, res.Content) {
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			sightings = append(sightings, sighting{locator: loc, sourcePage: page})
			found++
		}
		s.log.Info("entry page scanned", "page", page, "found", found)
	}
	sum.Found = len(sightings)

	for _, sg := range sightings {
		if _, ok := trackedURLs[sg.locator]; ok {
			continue
		}
		existing, err := s.candidates.GetByURL(dbc, sg.locator)
		if err != nil {
			s.log.Warn("candidate lookup failed", "url", sg.locator, "error", err)
			continue
		}

		parsed := version.Parse(sg.locator)
		category, priority := categorize(sg.locator)
		cand, err := s.candidates.UpsertSighting(dbc, &types.CandidateAsset{
			URL:        sg.locator,
			BaseName:   parsed.BaseName,
			Filename:   parsed.Filename,
			Domain:     parsed.Domain,
			FileKind:   parsed.FileKind,
			Pattern:    parsed.Pattern,
			Version:    parsed.Version,
			Category:   category,
			Priority:   priority,
			SourcePage: sg.sourcePage,
			Status:     types.CandidateStatusNew,
		})
		if err != nil {
			s.log.Warn("candidate upsert failed", "url", sg.locator, "error", err)
			continue
		}
		sum.Recorded++
		if existing == nil {
			sum.New++
			s.log.Info("candidate discovered",
				"url", sg.locator,
				"base_name", parsed.BaseName,
				"version", parsed.Version,
				"category", category,
				"source_page", sg.sourcePage,
			)
			if s.notify != nil && cand != nil {
				s.notify.CandidateFound(dbc, cand)
			}
		}
	}

	s.log.Info("discovery finished",
		"pages", sum.Pages,
		"pages_failed", sum.Failed,
		"found", sum.Found,
		"recorded", sum.Recorded,
		"new", sum.New,
	)
	return sum, nil
}

// extractLocators pulls asset URLs out of page markup: script src and link
// href attributes plus raw URLs in text, normalized to absolute form and
// filtered to watched domains carrying a js or css payload.
func (s *discoveryService) extractLocators(pageURL, body string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	raw := make([]string, 0, 16)
	for _, m := range scriptSrcRe.FindAllStringSubmatch(body, -1) {
		raw = append(raw, m[1])
	}
	for _, m := range linkHrefRe.FindAllStringSubmatch(body, -1) {
		raw = append(raw, m[1])
	}
	raw = append(raw, rawAssetRe.FindAllString(body, -1)...)

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		loc := normalizeLocator(base, r)
		if loc == "" {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil || !s.watchedDomain(u.Host) {
			continue
		}
		if kind := version.Parse(loc).FileKind; kind != types.FileKindScript && kind != types.FileKindStylesheet {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}

func (s *discoveryService) watchedDomain(host string) bool {
	for _, d := range s.domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// normalizeLocator resolves protocol-relative and page-relative references
// into absolute http(s) URLs, dropping anything else.
func normalizeLocator(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// categorize assigns the suggested category and watch priority for a locator.
func categorize(locator string) (category, priority string) {
	category = types.CategoryUnknown
	for _, p := range categoryPatterns {
		if p.re.MatchString(locator) {
			category = p.category
			break
		}
	}
	priority, ok := categoryPriorities[category]
	if !ok {
		priority = types.PriorityMedium
	}
	return category, priority
}
