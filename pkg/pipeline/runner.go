package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gunho/artifact/pkg/apidoc"
	"github.com/gunho/artifact/pkg/cache"
	"github.com/gunho/artifact/pkg/deck"
	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/flow"
	"github.com/gunho/artifact/pkg/htmldoc"
	"github.com/gunho/artifact/pkg/quota"
	"github.com/gunho/artifact/pkg/store"
)

// Runner executes the admit → render → persist flow.
//
// The Runner is stateless except for its collaborators, so the same
// instance serves all users and goroutines.
type Runner struct {
	Gate   quota.Gate
	Store  store.Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	Decks  *deck.Generator
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables render caching, a nil
// keyer uses the default, a nil decks generator renders decks without
// images, and a nil logger discards output. Gate and store are required.
func NewRunner(gate quota.Gate, st store.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Gate:   gate,
		Store:  st,
		Cache:  c,
		Keyer:  keyer,
		Decks:  deck.NewGenerator(nil, logger),
		Logger: logger,
	}
}

// Execute runs one generation request end to end.
//
// The quota unit is reserved before any rendering. If rendering or
// persistence fails afterwards, the unit is released so the user does not
// pay for output they never received.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if err := r.Gate.Reserve(ctx, req.UserID, quota.KindArtifact); err != nil {
		return nil, err
	}

	result, err := r.run(ctx, req)
	if err != nil {
		if relErr := r.Gate.Release(ctx, req.UserID, quota.KindArtifact); relErr != nil {
			r.Logger.Error("releasing quota after failed generation", "user", req.UserID, "err", relErr)
		}
		return nil, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	renderStart := time.Now()
	frags, hit, err := r.renderCached(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Stats.RenderTime = time.Since(renderStart)
	result.Stats.Fragments = len(frags)
	result.CacheHit = hit

	r.Logger.Info("rendered artifact",
		"kind", req.Kind,
		"fragments", len(frags),
		"cached", hit,
		"duration", result.Stats.RenderTime)

	persistStart := time.Now()
	artifacts, err := store.PersistAll(ctx, r.Store, storePrefix[req.Kind], frags)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.PersistTime = time.Since(persistStart)

	r.Logger.Info("persisted artifact",
		"kind", req.Kind,
		"files", len(artifacts),
		"duration", result.Stats.PersistTime)

	return result, nil
}

// renderCached renders the request's fragments, consulting the cache
// first. Decks are never cached; their remote images can change between
// runs.
func (r *Runner) renderCached(ctx context.Context, req Request) ([]store.Fragment, bool, error) {
	if req.Kind == KindDeck {
		frags, err := r.renderDeck(ctx, req)
		return frags, false, err
	}

	key, err := r.renderKey(req)
	if err != nil {
		return nil, false, err
	}

	if !req.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var frags []store.Fragment
			if err := json.Unmarshal(data, &frags); err == nil {
				return frags, true, nil
			}
			// Corrupt entry, drop it and re-render.
			_ = r.Cache.Delete(ctx, key)
		}
	}

	var frags []store.Fragment
	switch req.Kind {
	case KindFlowchart:
		frags, err = r.renderFlowchart(ctx, req)
	case KindAPIDoc:
		frags, err = r.renderAPIDoc(req)
	default:
		err = errors.New(errors.ErrCodeInvalidKind, "unknown artifact kind %q", req.Kind)
	}
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(frags); err == nil {
		if err := r.Cache.Set(ctx, key, data, 24*time.Hour); err != nil {
			r.Logger.Warn("caching rendered fragments", "key", key, "err", err)
		}
	}
	return frags, false, nil
}

// renderKey derives the cache key from everything that affects output.
// Per-user isolation comes from the scoped keyer prefix; the user id and
// the refresh knob never change rendered bytes, so they are stripped from
// the hashed payload and a refreshed render lands on the same key the next
// plain request reads.
func (r *Runner) renderKey(req Request) (string, error) {
	keyer := cache.NewScopedKeyer(r.Keyer, "user:"+req.UserID+":")
	req.UserID = ""
	req.Refresh = false

	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash request")
	}

	opts := cache.RenderKeyOpts{}
	if req.Chart != nil {
		opts.Theme = req.Chart.Theme
		opts.Layout = req.Chart.NormalizedLayout()
	}
	return keyer.RenderKey(req.Kind, cache.Hash(payload), opts), nil
}

func (r *Runner) renderFlowchart(ctx context.Context, req Request) ([]store.Fragment, error) {
	c := *req.Chart
	if err := c.Validate(); err != nil {
		return nil, err
	}
	th := c.ResolveTheme()
	if th.FellBack {
		r.Logger.Warn("unknown theme, using default", "theme", c.Theme)
	}
	stem := slug(req.Title)

	var frags []store.Fragment
	if req.wantsFormat(FormatMermaid) {
		frags = append(frags, store.Fragment{
			FileName:    stem + ".mmd",
			ContentType: "text/plain; charset=utf-8",
			Bytes:       []byte(flow.ToMermaid(c)),
		})
	}

	spec := flow.BuildVisualSpec(c, th)
	if req.wantsFormat(FormatVisual) {
		data, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, err, "encode visual spec")
		}
		frags = append(frags, store.Fragment{
			FileName:    stem + ".json",
			ContentType: "application/json",
			Bytes:       data,
		})
	}
	if req.wantsFormat(FormatHTML) {
		page, err := htmldoc.FlowDocument(req.Title, spec, th, c.NormalizedLayout())
		if err != nil {
			return nil, err
		}
		frags = append(frags, store.Fragment{
			FileName:    stem + ".html",
			ContentType: "text/html; charset=utf-8",
			Bytes:       []byte(page),
		})
	}
	if req.wantsFormat(FormatSVG) {
		svg, err := flow.RenderSVG(ctx, flow.ToDOT(c, th))
		if err != nil {
			return nil, err
		}
		frags = append(frags, store.Fragment{
			FileName:    stem + ".svg",
			ContentType: "image/svg+xml",
			Bytes:       svg,
		})
	}
	return frags, nil
}

func (r *Runner) renderAPIDoc(req Request) ([]store.Fragment, error) {
	doc := apidoc.Build(req.Title, req.Version, req.Endpoints)
	data, err := apidoc.Render(doc)
	if err != nil {
		return nil, err
	}
	stem := slug(req.Title)

	var frags []store.Fragment
	if req.wantsFormat(FormatJSON) {
		frags = append(frags, store.Fragment{
			FileName:    stem + "-openapi.json",
			ContentType: "application/json",
			Bytes:       data,
		})
	}
	if req.wantsFormat(FormatHTML) {
		page := htmldoc.APIReferenceDocument(req.Title, data)
		frags = append(frags, store.Fragment{
			FileName:    stem + ".html",
			ContentType: "text/html; charset=utf-8",
			Bytes:       []byte(page),
		})
	}
	return frags, nil
}

func (r *Runner) renderDeck(ctx context.Context, req Request) ([]store.Fragment, error) {
	gen := r.Decks
	if gen == nil {
		gen = deck.NewGenerator(nil, r.Logger)
	}
	data, err := gen.Generate(ctx, *req.Deck)
	if err != nil {
		return nil, err
	}
	return []store.Fragment{{
		FileName:    slug(req.Title) + ".pptx",
		ContentType: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		Bytes:       data,
	}}, nil
}
