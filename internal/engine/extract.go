package engine

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rankscout/serptrack/internal/serp"
)

// localIntentMarker flags keywords as local intent regardless of language.
// A documented simplification carried from upstream, tunable.
const localIntentMarker = "near"

// Parse extracts organic listings from a rendered results page. Malformed
// nodes are skipped rather than aborting the whole page, so extraction
// degrades gracefully when markup drifts.
func (a *Adapter) Parse(html, keyword string, maxResults int) []serp.ExtractedResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	keywordLocal := strings.Contains(strings.ToLower(keyword), localIntentMarker)

	var nodes *goquery.Selection
	for _, sel := range a.rules.containers {
		nodes = doc.Find(sel)
		if nodes.Length() > 0 {
			break
		}
	}
	if nodes == nil || nodes.Length() == 0 {
		return nil
	}

	results := make([]serp.ExtractedResult, 0, maxResults)
	nodes.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		res, ok := a.parseNode(s, keywordLocal)
		if !ok {
			return true // skip the node, keep going
		}
		res.Position = len(results) + 1
		results = append(results, res)
		return len(results) < maxResults
	})
	return results
}

func (a *Adapter) parseNode(s *goquery.Selection, keywordLocal bool) (serp.ExtractedResult, bool) {
	title := firstText(s, a.rules.titles)
	href := firstHref(s, a.rules.links)
	if title == "" || href == "" {
		return serp.ExtractedResult{}, false
	}
	if a.rules.unwrapRedirect {
		href = unwrapRedirect(href)
	}

	parsed, err := url.Parse(href)
	if err != nil || parsed.Hostname() == "" {
		return serp.ExtractedResult{}, false
	}

	res := serp.ExtractedResult{
		Title:   title,
		URL:     href,
		Snippet: firstText(s, a.rules.snippets),
		Domain:  strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www."),
	}

	res.LocalIntent = keywordLocal || matchesAny(s, a.rules.localMarkers)
	if a.rules.featuredNeighbor != "" {
		res.FeaturedSnippet = s.Closest(a.rules.featuredNeighbor).Length() > 0 ||
			s.Prev().Is(a.rules.featuredNeighbor)
	}

	for _, sel := range a.rules.sitelinks {
		s.Find(sel).Each(func(_ int, link *goquery.Selection) {
			if label := strings.TrimSpace(link.Text()); label != "" {
				res.Sitelinks = append(res.Sitelinks, label)
			}
		})
		if len(res.Sitelinks) > 0 {
			break
		}
	}

	return res, true
}

// Features probes the page for SERP modules independently of the organic
// listings.
func (a *Adapter) Features(html string) serp.FeatureRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return serp.FeatureRecord{}
	}
	return serp.FeatureRecord{
		FeaturedSnippet: anyPresent(doc, a.rules.featureFeatured),
		LocalPack:       anyPresent(doc, a.rules.featureLocal),
		Shopping:        anyPresent(doc, a.rules.featureShopping),
		Video:           anyPresent(doc, a.rules.featureVideo),
		News:            anyPresent(doc, a.rules.featureNews),
	}
}

func firstText(s *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		if found := s.Find(sel).First(); found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func firstHref(s *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		found := s.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		href, ok := found.Attr("href")
		if !ok {
			continue
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		return href
	}
	return ""
}

func matchesAny(s *goquery.Selection, chain []string) bool {
	for _, sel := range chain {
		if s.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func anyPresent(doc *goquery.Document, chain []string) bool {
	for _, sel := range chain {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// unwrapRedirect resolves DDG's /l/?uddg= redirect wrapper to the real
// destination.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/?") && !strings.HasPrefix(href, "/l/?") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
