// Package validate fetches each candidate page and classifies it as
// article or non-article, enriching its title and date along the way.
package validate

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/extract"
)

// Fetcher fetches a page body for validation.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// articleSchemaTypes are structured-data types that decide "article"
// outright.
var articleSchemaTypes = map[string]bool{
	"blogposting": true, "article": true, "newsarticle": true,
	"report": true, "techarticle": true, "scholarlyarticle": true,
}

// nonArticleSchemaTypes decide "not an article" only when the page is also
// short; plenty of long-form pages ship with a generic WebPage type.
var nonArticleSchemaTypes = map[string]bool{
	"product": true, "service": true, "webpage": true, "faqpage": true,
	"collectionpage": true, "contactpage": true, "aboutpage": true,
	"itemlist": true, "offer": true, "event": true, "organization": true,
}

// mainContentSelectors locate the page's main text for word counting.
var mainContentSelectors = []string{
	"article", "main", ".post-content", ".entry-content",
	".article-content", ".content", "body",
}

// signals are the raw observations one page yields; each classification
// predicate reads from here, keeping the rules independently testable.
type signals struct {
	schemaTypes []string
	wordCount   int
	hasTime     bool
	date        *time.Time
	title       string
	slugLikeURL bool
}

func (s signals) hasArticleSchema() bool {
	for _, schemaType := range s.schemaTypes {
		if articleSchemaTypes[schemaType] {
			return true
		}
	}
	return false
}

func (s signals) hasNonArticleSchema() bool {
	for _, schemaType := range s.schemaTypes {
		if nonArticleSchemaTypes[schemaType] {
			return true
		}
	}
	return false
}

func (s signals) isLongForm(minWords int) bool {
	return s.wordCount >= minWords
}

// Validator classifies candidate pages. One network fetch per call.
type Validator struct {
	cfg     blogscout.Config
	logger  *log.Logger
	fetcher Fetcher
}

// New builds a Validator over the given fetch tier.
func New(cfg blogscout.Config, logger *log.Logger, fetcher Fetcher) *Validator {
	return &Validator{cfg: cfg, logger: logger, fetcher: fetcher}
}

// Validate fetches and classifies one candidate. A fetch or parse failure
// marks the result inconclusive rather than rejecting the candidate: a
// transient failure must never silently drop real content.
func (v *Validator) Validate(ctx context.Context, candidate blogscout.Candidate) blogscout.ValidationResult {
	body, err := v.fetcher.Get(ctx, candidate.URL)
	if err != nil {
		v.logger.Debug("validation fetch failed", "url", candidate.URL, "err", err)
		return blogscout.ValidationResult{Inconclusive: true}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		v.logger.Debug("validation parse failed", "url", candidate.URL, "err", err)
		return blogscout.ValidationResult{Inconclusive: true}
	}

	sig := v.observe(doc, candidate.URL)

	return blogscout.ValidationResult{
		IsArticle:     v.classify(sig),
		SchemaTypes:   sig.schemaTypes,
		PublishedDate: sig.date,
		Title:         sig.title,
	}
}

// PublishedDate fetches a candidate page for its date alone, without
// classifying it. A candidate that already carries a date is returned
// untouched; a fetch or parse failure yields nil, leaving the candidate
// undated rather than dropped.
func (v *Validator) PublishedDate(ctx context.Context, candidate blogscout.Candidate) *time.Time {
	if candidate.PublishedDate != nil {
		return candidate.PublishedDate
	}

	body, err := v.fetcher.Get(ctx, candidate.URL)
	if err != nil {
		v.logger.Debug("date fetch failed", "url", candidate.URL, "err", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		v.logger.Debug("date parse failed", "url", candidate.URL, "err", err)
		return nil
	}

	return extract.DateFromDocument(doc)
}

// classify applies the decision rules in order: an explicit article-like
// schema type wins; an explicit non-article type on a short page loses;
// everything else gets the lenient default, because most real-world blogs
// omit structured data entirely.
func (v *Validator) classify(sig signals) bool {
	if sig.hasArticleSchema() {
		return true
	}
	if sig.hasNonArticleSchema() && !sig.isLongForm(v.cfg.MinWordCount) {
		return false
	}
	return sig.date != nil ||
		sig.hasTime ||
		sig.isLongForm(v.cfg.MinWordCount) ||
		sig.slugLikeURL
}

func (v *Validator) observe(doc *goquery.Document, pageURL string) signals {
	return signals{
		schemaTypes: schemaTypes(doc),
		wordCount:   mainContentWordCount(doc),
		hasTime:     doc.Find("time").Length() > 0,
		date:        extract.DateFromDocument(doc),
		title:       pageTitle(doc),
		slugLikeURL: slugLike(pageURL),
	}
}

// schemaTypes collects lower-cased structured-data type names from JSON-LD
// blocks and microdata itemtype attributes. Malformed blocks are skipped.
func schemaTypes(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var types []string
	record := func(name string) {
		name = strings.ToLower(strings.TrimSpace(name))
		// itemtype values arrive as full schema.org URLs.
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			types = append(types, name)
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		collectJSONTypes(data, record)
	})

	doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		if value, ok := s.Attr("itemtype"); ok {
			record(value)
		}
	})

	return types
}

func collectJSONTypes(node any, record func(string)) {
	switch value := node.(type) {
	case map[string]any:
		if raw, ok := value["@type"]; ok {
			switch typed := raw.(type) {
			case string:
				record(typed)
			case []any:
				for _, entry := range typed {
					if name, ok := entry.(string); ok {
						record(name)
					}
				}
			}
		}
		for _, child := range value {
			collectJSONTypes(child, record)
		}
	case []any:
		for _, child := range value {
			collectJSONTypes(child, record)
		}
	}
}

func mainContentWordCount(doc *goquery.Document) int {
	for _, selector := range mainContentSelectors {
		region := doc.Find(selector).First()
		if region.Length() == 0 {
			continue
		}
		clone := region.Clone()
		clone.Find("script, style, nav, header, footer, aside").Remove()
		if count := len(strings.Fields(clone.Text())); count > 0 {
			return count
		}
	}
	return 0
}

// pageTitle prefers the page's h1, then og:title, then <title>.
func pageTitle(doc *goquery.Document) string {
	if h1 := extract.CollapseWhitespace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if cleaned := extract.CollapseWhitespace(og); cleaned != "" {
			return cleaned
		}
	}
	return extract.CollapseWhitespace(doc.Find("title").First().Text())
}

// slugLike reports whether the final path segment looks like a post slug,
// i.e. contains a hyphen.
func slugLike(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	segment := ""
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			segment = part
		}
	}
	return strings.Contains(segment, "-")
}
