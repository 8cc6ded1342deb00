// Package extract pulls publish dates, titles and candidate links out of
// URLs, HTML, structured data and free text.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlDatePathRe = regexp.MustCompile(`/((?:19|20)\d{2})/(\d{1,2})/(\d{1,2})(?:/|$)`)
	urlDateSlugRe = regexp.MustCompile(`/((?:19|20)\d{2})-(\d{1,2})-(\d{1,2})(?:-|/|$)`)

	isoDateRe       = regexp.MustCompile(`\b((?:19|20)\d{2})-(\d{1,2})-(\d{1,2})\b`)
	monthDayYearRe  = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+((?:19|20)\d{2})\b`)
	dayMonthYearRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+((?:19|20)\d{2})\b`)
	numericSlashRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-]((?:19|20)\d{2})\b`)
	publishedTimeRe = regexp.MustCompile(`(?i)Published Time:\s*(\S+)`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// metaDateSelectors are attribute-bearing elements checked for a machine
// readable publish date, in priority order.
var metaDateSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[property="og:article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="DC.date"]`, "content"},
	{`meta[name="DC.date.issued"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="publish-date"]`, "content"},
	{`meta[name="publication_date"]`, "content"},
	{`time[datetime]`, "datetime"},
	{`[itemprop="datePublished"]`, "datetime"},
}

// jsonLDDateKeys are structured-data field names, in priority order, that
// hold a publish date.
var jsonLDDateKeys = []string{
	"datepublished", "datecreated", "publisheddate", "pubdate",
	"published", "uploaddate",
}

// headerRegionSelectors are the byline/meta regions scanned for a free-text
// date before falling back to the opening of the main content.
var headerRegionSelectors = []string{
	"header", ".byline", ".post-meta", ".entry-meta", ".article-meta",
	".meta", ".date", ".published", ".post-date",
}

var contentRegionSelectors = []string{
	"article", "main", ".post-content", ".entry-content", ".article-content",
}

// Date resolves a publish date from a URL, an HTML document and plain text,
// in that priority order. Every source is optional; pass "" to skip it. A
// future or unparseable date is rejected and the next source is tried; the
// result is nil rather than a guess.
func Date(rawURL, html, text string) *time.Time {
	if d := DateFromURL(rawURL); d != nil {
		return d
	}
	if html != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			if d := DateFromDocument(doc); d != nil {
				return d
			}
		}
	}
	if text != "" {
		if d := DateFromText(text); d != nil {
			return d
		}
	}
	return nil
}

// DateFromURL extracts a date embedded in the URL path, either as
// /2024/01/15/... segments or a /2024-01-15-slug prefix.
func DateFromURL(rawURL string) *time.Time {
	for _, re := range []*regexp.Regexp{urlDatePathRe, urlDateSlugRe} {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			if d := makeDate(m[1], m[2], m[3]); d != nil {
				return d
			}
		}
	}
	return nil
}

// DateFromDocument tries, in order: meta/time elements, JSON-LD structured
// data, byline regions, and the opening text of the main content.
func DateFromDocument(doc *goquery.Document) *time.Time {
	for _, meta := range metaDateSelectors {
		var found *time.Time
		doc.Find(meta.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if value, ok := s.Attr(meta.attr); ok {
				if d := parseDateString(value); d != nil {
					found = d
					return false
				}
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	// <time> elements without a usable datetime attribute still often carry
	// the date as text.
	var timeText *time.Time
	doc.Find("time").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if d := DateFromText(s.Text()); d != nil {
			timeText = d
			return false
		}
		return true
	})
	if timeText != nil {
		return timeText
	}

	if d := dateFromJSONLD(doc); d != nil {
		return d
	}

	for _, selector := range headerRegionSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if d := DateFromText(text); d != nil {
			return d
		}
	}

	for _, selector := range contentRegionSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(text) > 500 {
			text = text[:500]
		}
		if d := DateFromText(text); d != nil {
			return d
		}
	}

	return nil
}

// DateFromText scans free text for a date in Month-Day-Year, Day-Month-Year,
// ISO or numeric slash/dash form, plus the "Published Time:" field some
// rendering services emit.
func DateFromText(text string) *time.Time {
	if text == "" {
		return nil
	}

	if m := publishedTimeRe.FindStringSubmatch(text); m != nil {
		if d := parseDateString(m[1]); d != nil {
			return d
		}
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d := makeDate(m[1], m[2], m[3]); d != nil {
			return d
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(text); m != nil {
		if d := makeMonthNameDate(m[1], m[2], m[3]); d != nil {
			return d
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		if d := makeMonthNameDate(m[2], m[1], m[3]); d != nil {
			return d
		}
	}
	if m := numericSlashRe.FindStringSubmatch(text); m != nil {
		// Ambiguous between mm/dd and dd/mm; month-first is assumed and the
		// day-first reading is tried when that produces an invalid month.
		if d := makeDate(m[3], m[1], m[2]); d != nil {
			return d
		}
		if d := makeDate(m[3], m[2], m[1]); d != nil {
			return d
		}
	}
	return nil
}

// dateFromJSONLD parses every JSON-LD script on the page and recursively
// searches for a known date field. Malformed blocks are skipped, never
// fatal.
func dateFromJSONLD(doc *goquery.Document) *time.Time {
	var found *time.Time
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if d := searchJSONDates(data); d != nil {
			found = d
			return false
		}
		return true
	})
	return found
}

func searchJSONDates(node any) *time.Time {
	switch value := node.(type) {
	case map[string]any:
		for _, key := range jsonLDDateKeys {
			for field, raw := range value {
				if strings.ToLower(field) != key {
					continue
				}
				if str, ok := raw.(string); ok {
					if d := parseDateString(str); d != nil {
						return d
					}
				}
			}
		}
		for _, child := range value {
			if d := searchJSONDates(child); d != nil {
				return d
			}
		}
	case []any:
		for _, child := range value {
			if d := searchJSONDates(child); d != nil {
				return d
			}
		}
	}
	return nil
}

// dateLayouts cover the machine-readable forms seen in meta tags and
// structured data.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
}

func parseDateString(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return calendarDate(parsed)
		}
	}
	// Machine layouts failed; fall back to the free-text patterns.
	return DateFromText(value)
}

func makeDate(year, month, day string) *time.Time {
	y, m, d := atoiSafe(year), atoiSafe(month), atoiSafe(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return nil
	}
	return calendarDate(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}

func makeMonthNameDate(month, day, year string) *time.Time {
	m, ok := monthsByPrefix[strings.ToLower(month[:3])]
	if !ok {
		return nil
	}
	d, y := atoiSafe(day), atoiSafe(year)
	if d < 1 || d > 31 {
		return nil
	}
	return calendarDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// calendarDate truncates to midnight UTC and rejects dates in the future or
// implausibly old.
func calendarDate(t time.Time) *time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if date.After(time.Now()) || date.Year() < 1990 {
		return nil
	}
	return &date
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
