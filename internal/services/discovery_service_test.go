package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/notify"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

type discoveryHarness struct {
	svc        DiscoveryService
	fetcher    *scriptedFetcher
	candidates repos.CandidateAssetRepo
	logs       repos.NotificationLogRepo
	tx         *gorm.DB
	dbc        dbctx.Context
}

func newDiscoveryHarness(t *testing.T, pages []string) *discoveryHarness {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	assets := repos.NewTrackedAssetRepo(tx, log)
	candidates := repos.NewCandidateAssetRepo(tx, log)
	migrations := repos.NewMigrationRecordRepo(tx, log)
	changes := repos.NewChangeRepo(tx, log)
	logs := repos.NewNotificationLogRepo(tx, log)

	notifier := NewNotifier(log, notify.NewLogPublisher(log), logs, changes, migrations)
	fetcher := &scriptedFetcher{}
	svc := NewDiscoveryService(tx, log, fetcher, assets, candidates, notifier, pages, nil)

	return &discoveryHarness{
		svc:        svc,
		fetcher:    fetcher,
		candidates: candidates,
		logs:       logs,
		tx:         tx,
		dbc:        dbctx.Context{Ctx: context.Background()},
	}
}

const discoveryPage = `<html><head>
<link rel="stylesheet" href="https://static.tildacdn.com/css/tilda-grid-3.0.min.css">
<link rel="preconnect" href="https://fonts.example.com">
<script src="https://static.tildacdn.com/js/tilda-cart-1.2.min.js"></script>
<script src="//static.tildacdn.com/js/tilda-zero-2.0.min.js"></script>
<script src="https://cdn.other.com/js/analytics-1.0.min.js"></script>
</head><body>
Release notes at https://static.tildacdn.com/js/tilda-slider-1.1.min.js today.
</body></html>`

func TestDiscoveryScan(t *testing.T) {
	pages := []string{
		"https://tilda.nomadnocode.com/all-external",
		"https://tilda.nomadnocode.com/members/login",
	}
	h := newDiscoveryHarness(t, pages)
	ctx := context.Background()

	// The grid stylesheet is already tracked and must not become a candidate.
	testutil.SeedTrackedAsset(t, ctx, h.tx, "tilda-grid", "3.0")
	if err := h.tx.WithContext(ctx).Model(&types.TrackedAsset{}).
		Where("base_name = ?", "tilda-grid").
		Update("url", "https://static.tildacdn.com/css/tilda-grid-3.0.min.css").Error; err != nil {
		t.Fatalf("repoint tracked url: %v", err)
	}

	h.fetcher.fn = func(url string) (*fetch.Result, error) {
		if url == pages[1] {
			return nil, fetch.ErrNetwork
		}
		return &fetch.Result{URL: url, StatusCode: 200, Content: discoveryPage, Size: len(discoveryPage)}, nil
	}

	sum, err := h.svc.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if sum.Pages != 2 || sum.Failed != 1 {
		t.Fatalf("pages/failed = %d/%d, want 2/1", sum.Pages, sum.Failed)
	}
	if sum.Found != 4 || sum.Recorded != 3 || sum.New != 3 {
		t.Fatalf("found/recorded/new = %d/%d/%d, want 4/3/3 (grid is tracked, off-domain dropped)",
			sum.Found, sum.Recorded, sum.New)
	}

	cart, err := h.candidates.GetByURL(h.dbc, "https://static.tildacdn.com/js/tilda-cart-1.2.min.js")
	if err != nil || cart == nil {
		t.Fatalf("cart candidate: %v (%+v)", err, cart)
	}
	if cart.BaseName != "tilda-cart" || cart.Version != "1.2" {
		t.Fatalf("cart parse = %+v", cart)
	}
	if cart.Category != types.CategoryEcommerce || cart.Priority != types.PriorityHigh {
		t.Fatalf("cart classification = %s/%s", cart.Category, cart.Priority)
	}
	if cart.SourcePage != pages[0] || cart.Status != types.CandidateStatusNew {
		t.Fatalf("cart sighting = %+v", cart)
	}

	// Protocol-relative reference lands as absolute https.
	zero, err := h.candidates.GetByURL(h.dbc, "https://static.tildacdn.com/js/tilda-zero-2.0.min.js")
	if err != nil || zero == nil {
		t.Fatalf("zero candidate not normalized: %v", err)
	}
	if zero.Category != types.CategoryZeroBlock {
		t.Fatalf("zero category = %s", zero.Category)
	}

	// Raw text URLs count too.
	slider, err := h.candidates.GetByURL(h.dbc, "https://static.tildacdn.com/js/tilda-slider-1.1.min.js")
	if err != nil || slider == nil {
		t.Fatalf("slider candidate: %v", err)
	}
	if slider.Category != types.CategoryUIComponents || slider.Priority != types.PriorityMedium {
		t.Fatalf("slider classification = %s/%s", slider.Category, slider.Priority)
	}

	if tracked, _ := h.candidates.GetByURL(h.dbc, "https://static.tildacdn.com/css/tilda-grid-3.0.min.css"); tracked != nil {
		t.Fatalf("tracked locator must not be recorded as candidate: %+v", tracked)
	}
	if foreign, _ := h.candidates.GetByURL(h.dbc, "https://cdn.other.com/js/analytics-1.0.min.js"); foreign != nil {
		t.Fatalf("off-domain locator must be dropped: %+v", foreign)
	}

	emitted := 0
	rows, err := h.logs.ListRecent(h.dbc, 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	for _, row := range rows {
		if row.Kind == types.NotifyKindCandidateFound {
			emitted++
		}
	}
	if emitted != 3 {
		t.Fatalf("candidate_found notifications = %d, want 3", emitted)
	}
}

func TestDiscoveryRescanBumpsSightings(t *testing.T) {
	pages := []string{"https://tilda.nomadnocode.com/all-external"}
	h := newDiscoveryHarness(t, pages)
	ctx := context.Background()

	h.fetcher.fn = func(url string) (*fetch.Result, error) {
		return &fetch.Result{URL: url, StatusCode: 200, Content: discoveryPage, Size: len(discoveryPage)}, nil
	}

	if _, err := h.svc.Scan(ctx); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	sum, err := h.svc.Scan(ctx)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if sum.Recorded != 4 || sum.New != 0 {
		t.Fatalf("re-scan recorded/new = %d/%d, want 4/0", sum.Recorded, sum.New)
	}

	cart, err := h.candidates.GetByURL(h.dbc, "https://static.tildacdn.com/js/tilda-cart-1.2.min.js")
	if err != nil || cart == nil {
		t.Fatalf("cart candidate: %v", err)
	}
	if cart.TimesSeen != 2 {
		t.Fatalf("TimesSeen = %d, want 2 after re-scan", cart.TimesSeen)
	}
}

func TestDiscoveryWithoutPages(t *testing.T) {
	h := newDiscoveryHarness(t, nil)
	sum, err := h.svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if sum.Found != 0 || len(h.fetcher.fetched()) != 0 {
		t.Fatalf("no pages configured should be a no-op: %+v", sum)
	}
}
