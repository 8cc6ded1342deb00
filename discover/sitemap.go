package discover

import (
	"context"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/extract"
	"github.com/pevans/blogscout/urlutil"
)

// wellKnownPaths are conventional sitemap and feed locations probed off the
// site root, in order.
var wellKnownPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap.xml",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/feed",
	"/rss",
	"/index.xml",
	"/blog/feed",
	"/blog/rss.xml",
}

// contentSitemapMarkers prioritize child sitemaps whose filename sounds
// like it holds posts rather than pages or taxonomy noise.
var contentSitemapMarkers = []string{"post", "blog", "article", "news", "content"}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapURLSet struct {
	XMLName xml.Name       `xml:"urlset"`
	URLs    []sitemapEntry `xml:"url"`
}

type sitemapIndexDoc struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

// SitemapStrategy probes well-known sitemap and feed paths, recursing into
// sitemap indexes and parsing RSS/Atom feeds. It is the cheapest tier: one
// request often yields the whole archive with lastmod dates attached.
type SitemapStrategy struct {
	cfg    blogscout.Config
	logger *log.Logger
	client Fetcher
}

func (s *SitemapStrategy) Name() string { return "sitemap" }

// Applies: the sitemap tier always goes first.
func (s *SitemapStrategy) Applies(req Request, found int) bool {
	return found < req.target()
}

// Discover probes each well-known path and stops at the first one that
// yields candidates. Probe failures are expected on most sites and are
// never fatal.
func (s *SitemapStrategy) Discover(ctx context.Context, req Request, sink *Sink) error {
	root := urlutil.Root(req.SeedURL)
	if root == "" {
		return nil
	}

	for _, path := range wellKnownPaths {
		if sink.Full() {
			return nil
		}

		probeURL := root + path
		body, err := s.client.Get(ctx, probeURL)
		if err != nil {
			s.logger.Debug("probe miss", "url", probeURL, "err", err)
			continue
		}

		before := sink.Count()
		s.ingest(ctx, req, sink, probeURL, body, 0)
		if sink.Count() > before {
			s.logger.Debug("probe hit", "url", probeURL, "added", sink.Count()-before)
			return nil
		}
	}
	return nil
}

// ingest routes one fetched document to the right parser: sitemap index,
// sitemap urlset, or RSS/Atom feed.
func (s *SitemapStrategy) ingest(ctx context.Context, req Request, sink *Sink, sourceURL, body string, depth int) {
	switch {
	case strings.Contains(body, "<sitemapindex"):
		s.ingestIndex(ctx, req, sink, sourceURL, body, depth)
	case strings.Contains(body, "<urlset"):
		s.ingestURLSet(req, sink, sourceURL, body)
	default:
		s.ingestFeed(req, sink, sourceURL, body)
	}
}

// ingestIndex recursively fetches child sitemaps, capped at
// MaxSitemapChildren, visiting content-sounding filenames first.
func (s *SitemapStrategy) ingestIndex(ctx context.Context, req Request, sink *Sink, sourceURL, body string, depth int) {
	if depth > 2 {
		return
	}

	var index sitemapIndexDoc
	if err := xml.Unmarshal([]byte(body), &index); err != nil {
		s.logger.Warn("malformed sitemap index", "url", sourceURL, "err", err)
		return
	}

	children := index.Sitemaps
	sort.SliceStable(children, func(i, j int) bool {
		return contentScore(children[i].Loc) > contentScore(children[j].Loc)
	})
	if len(children) > s.cfg.MaxSitemapChildren {
		children = children[:s.cfg.MaxSitemapChildren]
	}

	for _, child := range children {
		if sink.Full() {
			return
		}
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		childBody, err := s.client.Get(ctx, loc)
		if err != nil {
			s.logger.Debug("child sitemap fetch failed", "url", loc, "err", err)
			continue
		}
		s.ingest(ctx, req, sink, loc, childBody, depth+1)
	}
}

func (s *SitemapStrategy) ingestURLSet(req Request, sink *Sink, sourceURL, body string) {
	var urlset sitemapURLSet
	if err := xml.Unmarshal([]byte(body), &urlset); err != nil {
		s.logger.Warn("malformed sitemap", "url", sourceURL, "err", err)
		return
	}

	for _, entry := range urlset.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}

		date := extract.DateFromURL(loc)
		if date == nil && entry.LastMod != "" {
			date = extract.DateFromText(entry.LastMod)
		}

		ok := sink.Add(blogscout.Candidate{
			URL:           strings.TrimSuffix(loc, "/"),
			Title:         extract.TitleFromURL(loc),
			PublishedDate: date,
		})
		if !ok {
			return
		}
	}
}

// ingestFeed parses an RSS or Atom document; gofeed detects the format.
// Non-feed bodies (plain HTML 200s on probe paths) simply parse to nothing.
func (s *SitemapStrategy) ingestFeed(req Request, sink *Sink, sourceURL, body string) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		s.logger.Debug("not a feed", "url", sourceURL, "err", err)
		return
	}

	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		candidate := blogscout.Candidate{
			URL:   strings.TrimSuffix(strings.TrimSpace(item.Link), "/"),
			Title: extract.CollapseWhitespace(item.Title),
		}
		if item.PublishedParsed != nil {
			date := blogscout.Date(item.PublishedParsed.Year(), item.PublishedParsed.Month(), item.PublishedParsed.Day())
			candidate.PublishedDate = &date
		} else {
			candidate.PublishedDate = extract.DateFromURL(candidate.URL)
		}
		if candidate.Title == "" {
			candidate.Title = extract.TitleFromURL(candidate.URL)
		}

		if !sink.Add(candidate) {
			return
		}
	}
}

func contentScore(loc string) int {
	lower := strings.ToLower(loc)
	for _, marker := range contentSitemapMarkers {
		if strings.Contains(lower, marker) {
			return 1
		}
	}
	return 0
}
