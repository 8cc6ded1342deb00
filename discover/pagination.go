package discover

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/extract"
	"github.com/pevans/blogscout/fetch"
	"github.com/pevans/blogscout/urlutil"
)

var (
	pageQueryRe = regexp.MustCompile(`([?&](?:page|p|pg)=)(\d+)`)
	pagePathRe  = regexp.MustCompile(`(/page/)(\d+)`)
)

// pagerSelectors locate numbered pager controls when no rel=next link
// exists.
var pagerSelectors = []string{
	`link[rel="next"]`,
	`a[rel="next"]`,
	".pagination a[href]",
	".pager a[href]",
	".page-numbers[href]",
	`nav[aria-label*="agination"] a[href]`,
}

// PaginationStrategy fetches the seed through the rendering service and
// follows pagination links breadth-first, synthesizing next-page URLs when
// a page-number pattern is detectable but no explicit links exist. The
// crawl self-terminates: a page cap, a stop after MaxNoNewPages consecutive
// pages with nothing new, and synthesis only while new candidates keep
// appearing.
type PaginationStrategy struct {
	cfg      blogscout.Config
	logger   *log.Logger
	renderer Renderer
}

func (s *PaginationStrategy) Name() string { return "pagination" }

// Applies: runs whenever the sitemap tier fell short of the target.
func (s *PaginationStrategy) Applies(req Request, found int) bool {
	return found < req.target()
}

func (s *PaginationStrategy) Discover(ctx context.Context, req Request, sink *Sink) error {
	queue := []string{req.SeedURL}
	visited := map[string]bool{normalizePage(req.SeedURL): true}
	pagesFetched := 0
	noNewStreak := 0

	for len(queue) > 0 && pagesFetched < s.cfg.MaxPages && !sink.Full() {
		pageURL := queue[0]
		queue = queue[1:]

		content, err := s.renderer.Render(ctx, pageURL, fetch.RenderOptions{
			Format:   "html",
			RenderJS: true,
		})
		if err != nil {
			if pagesFetched == 0 {
				return fmt.Errorf("rendered fetch of seed failed: %w", err)
			}
			s.logger.Debug("pagination page fetch failed", "url", pageURL, "err", err)
			continue
		}
		if pagesFetched == 0 {
			sink.MarkSeedReached()
		}
		pagesFetched++

		before := sink.Count()
		for _, candidate := range extract.Candidates(content, pageURL, req.Context, s.cfg) {
			if !sink.Add(candidate) {
				break
			}
		}
		added := sink.Count() - before

		if added == 0 {
			noNewStreak++
			if noNewStreak >= s.cfg.MaxNoNewPages {
				s.logger.Debug("stopping pagination crawl",
					"reason", "consecutive pages with no new candidates",
					"pages", pagesFetched)
				break
			}
		} else {
			noNewStreak = 0
		}

		links := paginationLinks(content, pageURL)
		enqueued := 0
		for _, link := range links {
			key := normalizePage(link)
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, link)
			enqueued++
		}

		// No unvisited pager link, but the page still produced new
		// candidates: increment a detected page-number pattern, taken from
		// the current URL or from the pager links seen (a listing whose
		// only pager link is ?page=1 still reveals the pattern).
		if enqueued == 0 && added > 0 {
			for _, seed := range append([]string{pageURL}, links...) {
				next := nextPageByPattern(seed)
				if next == "" {
					continue
				}
				key := normalizePage(next)
				if visited[key] {
					continue
				}
				visited[key] = true
				queue = append(queue, next)
				break
			}
		}
	}

	return nil
}

// paginationLinks extracts explicit pagination URLs from a page: rel=next,
// pager controls, and any same-site link whose URL carries a page-number
// pattern.
func paginationLinks(content, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var links []string
	add := func(href string) {
		resolved := urlutil.Resolve(pageURL, href)
		if !urlutil.SameSite(resolved, pageURL) || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	}

	for _, selector := range pagerSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok {
				add(href)
			}
		})
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if pageQueryRe.MatchString(href) || pagePathRe.MatchString(href) {
			add(href)
		}
	})

	return links
}

// nextPageByPattern increments the page number embedded in a URL, as a
// query parameter or a /page/N segment. Returns "" when no pattern exists.
func nextPageByPattern(pageURL string) string {
	for _, re := range []*regexp.Regexp{pageQueryRe, pagePathRe} {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			return re.ReplaceAllString(pageURL, m[1]+strconv.Itoa(n+1))
		}
	}
	return ""
}

// normalizePage canonicalizes a pagination URL for the visited set; page 1
// and the bare listing are the same page on most blogs.
func normalizePage(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return strings.TrimSuffix(pageURL, "/")
	}

	query := parsed.Query()
	for _, param := range []string{"page", "p", "pg"} {
		if query.Get(param) == "1" {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()

	if m := pagePathRe.FindStringSubmatch(parsed.Path); m != nil && m[2] == "1" {
		parsed.Path = strings.Replace(parsed.Path, m[0], "", 1)
	}

	return strings.TrimSuffix(parsed.String(), "/")
}
