// Package deck turns a slide outline into a presentation file.
//
// The output is a minimal OOXML package: one title slide from the deck
// title plus one slide per outline entry. Remote images referenced by
// slides are fetched best-effort; a slide whose image cannot be fetched is
// still produced, just without the picture.
package deck

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/httputil"
)

// Deck is a slide outline.
type Deck struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Slides   []Slide `json:"slides"`
}

// Slide is one content slide: a heading, bullet lines, and an optional
// remote image.
type Slide struct {
	Title    string   `json:"title"`
	Bullets  []string `json:"bullets,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Validate checks the outline before any network or render work.
func (d Deck) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "deck title is required")
	}
	if len(d.Slides) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "deck needs at least one slide")
	}
	for i, s := range d.Slides {
		if strings.TrimSpace(s.Title) == "" {
			return errors.New(errors.ErrCodeInvalidInput, "slide %d has no title", i+1)
		}
	}
	return nil
}

// Generator renders decks. The fetcher is used for slide images; a nil
// fetcher disables image fetching entirely.
type Generator struct {
	fetcher *httputil.Fetcher
	logger  *log.Logger
}

// NewGenerator creates a deck generator. logger may be nil.
func NewGenerator(fetcher *httputil.Fetcher, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{fetcher: fetcher, logger: logger}
}

// Generate renders the outline into presentation file bytes.
func (g *Generator) Generate(ctx context.Context, d Deck) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	images := make([]slideImage, len(d.Slides))
	for i, s := range d.Slides {
		if s.ImageURL == "" || g.fetcher == nil {
			continue
		}
		data, contentType, err := g.fetcher.Fetch(ctx, s.ImageURL)
		if err != nil {
			g.logger.Warn("skipping slide image", "url", s.ImageURL, "err", err)
			continue
		}
		ext, ok := imageExt(contentType, s.ImageURL)
		if !ok {
			g.logger.Warn("skipping slide image with unsupported type", "url", s.ImageURL, "contentType", contentType)
			continue
		}
		images[i] = slideImage{data: data, ext: ext}
	}

	out, err := buildPackage(d, images)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "assemble deck %q", d.Title)
	}
	return out, nil
}

// imageExt maps a response content type (or URL suffix as fallback) to a
// package media extension.
func imageExt(contentType, url string) (string, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/png"):
		return "png", true
	case strings.HasPrefix(ct, "image/jpeg"), strings.HasPrefix(ct, "image/jpg"):
		return "jpeg", true
	case strings.HasPrefix(ct, "image/gif"):
		return "gif", true
	}
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "png", true
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "jpeg", true
	case strings.HasSuffix(lower, ".gif"):
		return "gif", true
	}
	return "", false
}
