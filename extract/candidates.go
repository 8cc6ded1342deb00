package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/exclusion"
	"github.com/pevans/blogscout/urlutil"
)

// candidateSelectors are tried in priority order; the first selector that
// yields any candidates wins. Article containers beat heading-wrapped links
// beat card/post class patterns beat the catch-all.
var candidateSelectors = []string{
	"article a[href]",
	"h1 a[href], h2 a[href], h3 a[href]",
	".post a[href], .post-card a[href], .blog-post a[href], .card a[href], .entry a[href], .teaser a[href]",
	"main a[href]",
	"a[href]",
}

// containerSelector finds the card or article wrapper around a link when
// the anchor text itself is unusable.
const containerSelector = "article, .post, .post-card, .blog-post, .card, .entry, .teaser, li"

const headingSelector = "h1, h2, h3, h4"

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+|/[^)\s]*)\)`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s"'<>()\[\]]+`)
	mdHeadingRe    = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
	mdBoldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Candidates parses page content into candidate links. Structured HTML
// parsing is tried first; when it yields nothing (typically because the
// content came back as Markdown), Markdown link syntax is tried, then a
// bare-URL scan as last resort. Each candidate's date is derived from its
// URL when the path embeds one.
func Candidates(content, baseURL string, crawlCtx blogscout.Context, cfg blogscout.Config) []blogscout.Candidate {
	collector := newCollector(baseURL, crawlCtx, cfg)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		collector.fromDocument(doc)
	}
	if len(collector.candidates) == 0 {
		collector.fromMarkdown(content)
	}
	if len(collector.candidates) == 0 {
		collector.fromBareURLs(content)
	}

	return collector.candidates
}

type collector struct {
	baseURL    string
	crawlCtx   blogscout.Context
	cfg        blogscout.Config
	seen       map[string]bool
	candidates []blogscout.Candidate
}

func newCollector(baseURL string, crawlCtx blogscout.Context, cfg blogscout.Config) *collector {
	return &collector{
		baseURL:  baseURL,
		crawlCtx: crawlCtx,
		cfg:      cfg,
		seen:     map[string]bool{},
	}
}

// add resolves, filters and dedups one link. fromSlug marks a slug-derived
// title, which passes a lower length bar because it came from the URL
// itself rather than noisy surrounding text.
func (c *collector) add(href, title string, fromSlug bool) {
	absolute := urlutil.Resolve(c.baseURL, href)
	absolute = strings.TrimSuffix(absolute, "/")
	if absolute == "" || c.seen[absolute] {
		return
	}
	if absolute == strings.TrimSuffix(c.baseURL, "/") {
		return
	}
	if exclusion.IsExcluded(absolute, c.baseURL, c.crawlCtx) {
		return
	}

	title = CollapseWhitespace(title)
	minLen := c.cfg.MinTitleLength
	if fromSlug {
		minLen = c.cfg.MinSlugTitleLength
	}
	if len(title) < minLen {
		// One more chance through the slug before giving up on the link.
		if fromSlug {
			return
		}
		slug := TitleFromURL(absolute)
		if len(slug) < c.cfg.MinSlugTitleLength {
			return
		}
		title = slug
	}

	c.seen[absolute] = true
	c.candidates = append(c.candidates, blogscout.Candidate{
		URL:           absolute,
		Title:         title,
		PublishedDate: DateFromURL(absolute),
	})
}

func (c *collector) fromDocument(doc *goquery.Document) {
	for _, selector := range candidateSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			title, fromSlug := resolveLinkTitle(s, urlutil.Resolve(c.baseURL, href))
			c.add(href, title, fromSlug)
		})
		if len(c.candidates) > 0 {
			return
		}
	}
}

func (c *collector) fromMarkdown(content string) {
	for _, loc := range markdownLinkRe.FindAllStringSubmatchIndex(content, -1) {
		// Image syntax ![alt](src) shares the link shape; the leading bang
		// marks it.
		if loc[0] > 0 && content[loc[0]-1] == '!' {
			continue
		}
		title := content[loc[2]:loc[3]]
		href := content[loc[4]:loc[5]]
		c.add(href, title, false)
	}
}

func (c *collector) fromBareURLs(content string) {
	for _, loc := range bareURLRe.FindAllStringIndex(content, -1) {
		href := strings.TrimRight(content[loc[0]:loc[1]], ".,;:")
		title := nearbyMarkdownTitle(content[:loc[0]])
		if title != "" {
			c.add(href, title, false)
			continue
		}
		c.add(href, TitleFromURL(href), true)
	}
}

// resolveLinkTitle applies the title resolution order for one anchor:
// anchor text (unless generic), container heading for generic anchors,
// image alt for image-only links, preceding sentence fragment, then the
// URL slug.
func resolveLinkTitle(s *goquery.Selection, absoluteURL string) (string, bool) {
	anchorText := CollapseWhitespace(s.Text())

	if anchorText != "" && !IsGenericLinkText(anchorText) {
		return anchorText, false
	}

	if anchorText != "" {
		// Generic phrase: the real title usually lives on a heading inside
		// the same card.
		if heading := containerHeading(s); heading != "" {
			return heading, false
		}
	}

	if alt, ok := s.Find("img").First().Attr("alt"); ok {
		if cleaned := CollapseWhitespace(alt); cleaned != "" {
			return cleaned, false
		}
	}

	if heading := containerHeading(s); heading != "" {
		return heading, false
	}

	if fragment := precedingFragment(s); fragment != "" {
		return fragment, false
	}

	return TitleFromURL(absoluteURL), true
}

func containerHeading(s *goquery.Selection) string {
	container := s.Closest(containerSelector)
	if container.Length() == 0 {
		return ""
	}
	return CollapseWhitespace(container.Find(headingSelector).First().Text())
}

// precedingFragment grabs the sentence fragment immediately before the
// anchor inside its parent, a weak last signal before the slug.
func precedingFragment(s *goquery.Selection) string {
	parent := s.Parent()
	if parent.Length() == 0 {
		return ""
	}
	full := CollapseWhitespace(parent.Text())
	anchor := CollapseWhitespace(s.Text())
	if anchor != "" {
		if idx := strings.Index(full, anchor); idx > 0 {
			full = full[:idx]
		}
	}
	sentences := strings.FieldsFunc(full, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '|'
	})
	if len(sentences) == 0 {
		return ""
	}
	return CollapseWhitespace(sentences[len(sentences)-1])
}

// nearbyMarkdownTitle looks backwards from a bare URL for the closest
// Markdown heading or bolded phrase.
func nearbyMarkdownTitle(before string) string {
	if len(before) > 400 {
		before = before[len(before)-400:]
	}
	if matches := mdHeadingRe.FindAllStringSubmatch(before, -1); len(matches) > 0 {
		return CollapseWhitespace(matches[len(matches)-1][1])
	}
	if matches := mdBoldRe.FindAllStringSubmatch(before, -1); len(matches) > 0 {
		return CollapseWhitespace(matches[len(matches)-1][1])
	}
	return ""
}
