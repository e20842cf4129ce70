package crawler

import (
	"sort"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the distinct in-scope URLs of every anchor in doc,
// resolved against pageURL and sorted.
func ExtractLinks(doc *goquery.Document, pageURL string, filter *Filter) []string {
	seen := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, present := s.Attr("href")
		link, ok := filter.ResolveAndFilter(pageURL, href, present)
		if !ok {
			return
		}
		seen[link] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}
