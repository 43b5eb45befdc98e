package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/gunho/artifact/pkg/apidoc"
	"github.com/gunho/artifact/pkg/cache"
	"github.com/gunho/artifact/pkg/deck"
	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/flow"
	"github.com/gunho/artifact/pkg/quota"
	"github.com/gunho/artifact/pkg/store"
)

// recordingGate wraps a MemoryGate and records call order.
type recordingGate struct {
	inner *quota.MemoryGate
	calls []string
}

func (g *recordingGate) Reserve(ctx context.Context, userID string, kind quota.Kind) error {
	g.calls = append(g.calls, "reserve")
	return g.inner.Reserve(ctx, userID, kind)
}

func (g *recordingGate) Release(ctx context.Context, userID string, kind quota.Kind) error {
	g.calls = append(g.calls, "release")
	return g.inner.Release(ctx, userID, kind)
}

func (g *recordingGate) Lookup(ctx context.Context, userID string) (quota.Subscription, error) {
	return g.inner.Lookup(ctx, userID)
}

// recordingStore wraps a Store and records persists; failAfter >= 0 makes
// that persist call fail.
type recordingStore struct {
	inner     store.Store
	calls     *[]string
	persists  int
	failAfter int
}

func (s *recordingStore) Persist(ctx context.Context, prefix string, frag store.Fragment) (store.Artifact, error) {
	*s.calls = append(*s.calls, "persist")
	s.persists++
	if s.failAfter >= 0 && s.persists > s.failAfter {
		return store.Artifact{}, errors.New(errors.ErrCodeStorage, "disk full")
	}
	return s.inner.Persist(ctx, prefix, frag)
}

func newTestGate(limit int) *recordingGate {
	g := quota.NewMemoryGate()
	g.Put(quota.Subscription{
		UserID: "u1",
		Status: quota.StatusActive,
		Limits: map[quota.Kind]int{quota.KindArtifact: limit},
	})
	return &recordingGate{inner: g}
}

func newTestRunner(t *testing.T, gate quota.Gate, st store.Store) *Runner {
	t.Helper()
	if st == nil {
		fs, err := store.NewFileStore(t.TempDir(), "/files")
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		st = fs
	}
	return NewRunner(gate, st, nil, nil, nil)
}

func flowchartRequest() Request {
	return Request{
		UserID: "u1",
		Kind:   KindFlowchart,
		Chart: &flow.Chart{
			Title:  "Order Flow",
			Layout: flow.LayoutLR,
			Nodes: []flow.Node{
				{ID: "A", Label: "Client", Shape: flow.ShapeExternal},
				{ID: "B", Label: "API", Shape: flow.ShapeService},
			},
			Edges: []flow.Edge{{From: "A", To: "B", Label: "POST /orders"}},
		},
	}
}

func TestExecuteFlowchart(t *testing.T) {
	gate := newTestGate(5)
	r := newTestRunner(t, gate, nil)

	result, err := r.Execute(context.Background(), flowchartRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3 (mermaid, visual, html)", len(result.Artifacts))
	}
	wantSuffixes := []string{".mmd", ".json", ".html"}
	for i, a := range result.Artifacts {
		if !strings.HasSuffix(a.FileName, wantSuffixes[i]) {
			t.Errorf("artifact %d = %s, want suffix %s", i, a.FileName, wantSuffixes[i])
		}
		if !strings.HasPrefix(a.URL, "/files/flowcharts/") {
			t.Errorf("artifact URL = %s, want /files/flowcharts/ prefix", a.URL)
		}
	}

	sub, _ := gate.Lookup(context.Background(), "u1")
	if sub.Usage[quota.KindArtifact] != 1 {
		t.Errorf("usage = %d, want 1", sub.Usage[quota.KindArtifact])
	}
}

func TestExecuteReservesBeforeRendering(t *testing.T) {
	gate := newTestGate(5)
	calls := []string{}
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	st := &recordingStore{inner: fs, calls: &calls, failAfter: -1}
	r := NewRunner(gate, st, nil, nil, nil)

	if _, err := r.Execute(context.Background(), flowchartRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(gate.calls) == 0 || gate.calls[0] != "reserve" {
		t.Fatalf("gate calls = %v, want reserve first", gate.calls)
	}
	if len(calls) == 0 {
		t.Fatal("store was never called")
	}
}

func TestExecuteQuotaExceededFailsFast(t *testing.T) {
	gate := newTestGate(0)
	calls := []string{}
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	st := &recordingStore{inner: fs, calls: &calls, failAfter: -1}
	r := NewRunner(gate, st, nil, nil, nil)

	_, err = r.Execute(context.Background(), flowchartRequest())
	if errors.GetCode(err) != errors.ErrCodeQuotaExceeded {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeQuotaExceeded)
	}
	if len(calls) != 0 {
		t.Errorf("store called %d times after quota rejection", len(calls))
	}
}

func TestExecuteReleasesOnPersistFailure(t *testing.T) {
	gate := newTestGate(5)
	calls := []string{}
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	st := &recordingStore{inner: fs, calls: &calls, failAfter: 1}
	r := NewRunner(gate, st, nil, nil, nil)

	_, err = r.Execute(context.Background(), flowchartRequest())
	if errors.GetCode(err) != errors.ErrCodeStorage {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeStorage)
	}

	// The reserved unit must be given back.
	sub, _ := gate.Lookup(context.Background(), "u1")
	if sub.Usage[quota.KindArtifact] != 0 {
		t.Errorf("usage = %d, want 0 after rollback", sub.Usage[quota.KindArtifact])
	}
	if gate.calls[len(gate.calls)-1] != "release" {
		t.Errorf("gate calls = %v, want release last", gate.calls)
	}
}

func TestExecuteInvalidRequestNeverReserves(t *testing.T) {
	gate := newTestGate(5)
	r := newTestRunner(t, gate, nil)

	cases := []Request{
		{UserID: "", Kind: KindFlowchart, Chart: &flow.Chart{}},
		{UserID: "u1", Kind: "poster"},
		{UserID: "u1", Kind: KindFlowchart},
		{UserID: "u1", Kind: KindAPIDoc},
		{UserID: "u1", Kind: KindDeck},
		{UserID: "u1", Kind: KindAPIDoc, Title: "t", Endpoints: []apidoc.Endpoint{{Method: "GET", Path: "/x"}}, Formats: []string{FormatPPTX}},
	}
	for _, req := range cases {
		if _, err := r.Execute(context.Background(), req); err == nil {
			t.Errorf("Execute(%+v) expected error", req)
		}
	}
	if len(gate.calls) != 0 {
		t.Errorf("gate calls = %v, want none for invalid requests", gate.calls)
	}
}

func TestExecuteInvalidChartReleases(t *testing.T) {
	gate := newTestGate(5)
	r := newTestRunner(t, gate, nil)

	req := flowchartRequest()
	req.Chart.Edges = []flow.Edge{{From: "A", To: "missing"}}

	_, err := r.Execute(context.Background(), req)
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
	sub, _ := gate.Lookup(context.Background(), "u1")
	if sub.Usage[quota.KindArtifact] != 0 {
		t.Errorf("usage = %d, want 0", sub.Usage[quota.KindArtifact])
	}
}

func TestExecuteAPIDoc(t *testing.T) {
	r := newTestRunner(t, newTestGate(5), nil)

	result, err := r.Execute(context.Background(), Request{
		UserID: "u1",
		Kind:   KindAPIDoc,
		Title:  "Orders API",
		Endpoints: []apidoc.Endpoint{
			{Method: "POST", Path: "/orders", Summary: "Create order"},
			{Method: "GET", Path: "/orders/{id}"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2 (json, html)", len(result.Artifacts))
	}
	if result.Artifacts[0].FileName != "orders-api-openapi.json" {
		t.Errorf("first artifact = %s", result.Artifacts[0].FileName)
	}
	if !strings.HasPrefix(result.Artifacts[0].URL, "/files/docs/") {
		t.Errorf("URL = %s, want /files/docs/ prefix", result.Artifacts[0].URL)
	}
}

func TestExecuteDeck(t *testing.T) {
	r := newTestRunner(t, newTestGate(5), nil)

	result, err := r.Execute(context.Background(), Request{
		UserID: "u1",
		Kind:   KindDeck,
		Deck: &deck.Deck{
			Title:  "Launch Plan",
			Slides: []deck.Slide{{Title: "Timeline", Bullets: []string{"Q1"}}},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Artifacts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(result.Artifacts))
	}
	if result.Artifacts[0].FileName != "launch-plan.pptx" {
		t.Errorf("artifact = %s", result.Artifacts[0].FileName)
	}
	if result.CacheHit {
		t.Error("deck renders must not report cache hits")
	}
}

func TestExecuteCachesRenders(t *testing.T) {
	gate := newTestGate(5)
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(gate, fs, c, nil, nil)

	first, err := r.Execute(context.Background(), flowchartRequest())
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first run should not hit cache")
	}

	second, err := r.Execute(context.Background(), flowchartRequest())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second run should hit cache")
	}
	if len(second.Artifacts) != len(first.Artifacts) {
		t.Errorf("cached run artifacts = %d, want %d", len(second.Artifacts), len(first.Artifacts))
	}

	// Refresh bypasses the cache
	req := flowchartRequest()
	req.Refresh = true
	third, err := r.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}
	if third.CacheHit {
		t.Error("refresh run should not hit cache")
	}
}

func TestExecuteRefreshUpdatesCacheEntry(t *testing.T) {
	gate := newTestGate(5)
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(gate, fs, c, nil, nil)

	// A refreshed render must land on the same key a plain request reads,
	// so the very next plain run hits the cache.
	req := flowchartRequest()
	req.Refresh = true
	if _, err := r.Execute(context.Background(), req); err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}

	second, err := r.Execute(context.Background(), flowchartRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("plain run after a refresh should hit the refreshed entry")
	}
}

func TestExecuteCacheIsolatedPerUser(t *testing.T) {
	g := quota.NewMemoryGate()
	for _, u := range []string{"u1", "u2"} {
		g.Put(quota.Subscription{
			UserID: u,
			Status: quota.StatusActive,
			Limits: map[quota.Kind]int{quota.KindArtifact: 5},
		})
	}
	fs, err := store.NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(g, fs, c, nil, nil)

	if _, err := r.Execute(context.Background(), flowchartRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Another user's identical request must not read u1's entry.
	other := flowchartRequest()
	other.UserID = "u2"
	result, err := r.Execute(context.Background(), other)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.CacheHit {
		t.Error("cache entries must not be shared across users")
	}

	// u1's own entry is still there.
	again, err := r.Execute(context.Background(), flowchartRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !again.CacheHit {
		t.Error("repeat run by the same user should hit cache")
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Order Flow", "order-flow"},
		{"  Fees & Limits!  ", "fees-limits"},
		{"ALLCAPS", "allcaps"},
		{"___", "artifact"},
		{"", "artifact"},
	}
	for _, tc := range cases {
		if got := slug(tc.in); got != tc.want {
			t.Errorf("slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
