// Package htmlclean implements the HTML Cleaner (spec.md §4.2): it
// strips chrome and clutter from a fetched chapter's raw HTML down to
// the story content, grounded on
// original_source/webnovel_archiver/core/parsers/html_cleaner.py and
// built with goquery, the same DOM-query library
// other_examples/ac28db71_mdepp-ebook-scraper uses for scraping.
package htmlclean

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultTagsToRemove are stripped regardless of source site.
var defaultTagsToRemove = []string{
	"script", "style", "link", "meta", "noscript",
	"header", "footer", "nav", "aside", "form", "iframe", "button", "input",
}

// defaultAttributesToRemove are stripped from every remaining element.
var defaultAttributesToRemove = []string{
	"style", "class", "id",
	"onclick", "onerror", "onload", "onmouseover", "onmouseout",
	"data-reactid", "data-testid",
	"aria-labelledby", "aria-describedby", "role",
	"jsaction", "jscontroller", "jsmodel", "c-wiz", "jsshadow", "jsname",
}

// voidElements are never removed by the empty-tag pass even with no
// content, matching the original's common_self_closing exception.
var voidElements = map[string]bool{"br": true, "hr": true, "img": true}

const maxEmptyTagPasses = 10

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Clean strips the raw HTML for chapter sourced from sourceSite down to
// its story content. It never panics on malformed input: a parse
// failure returns rawHTML unchanged.
func Clean(rawHTML string, sourceSite string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	rules := rulesFor(sourceSite)

	if rules.mainContentSelector != "" {
		if main := doc.Find(rules.mainContentSelector).First(); main.Length() > 0 {
			if inner, err := goquery.OuterHtml(main); err == nil {
				if sub, err := goquery.NewDocumentFromReader(strings.NewReader(inner)); err == nil {
					doc = sub
				}
			}
		}
	}

	for _, selector := range rules.removeSelectors {
		doc.Find(selector).Remove()
	}

	doc.Find(strings.Join(defaultTagsToRemove, ", ")).Remove()

	for _, attr := range defaultAttributesToRemove {
		doc.Find("*").RemoveAttr(attr)
	}

	removeEmptyTags(doc)

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			return rawHTML
		}
	}

	out = blankLines.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

// removeEmptyTags repeatedly strips elements with no text and no
// children until a pass removes nothing, so that removing a leaf makes
// its now-empty parent eligible on the next pass (bottom-up, without
// needing an explicit tree walk).
func removeEmptyTags(doc *goquery.Document) {
	for pass := 0; pass < maxEmptyTagPasses; pass++ {
		changed := false
		doc.Find("*").Each(func(_ int, s *goquery.Selection) {
			tag := goquery.NodeName(s)
			if voidElements[tag] {
				return
			}
			if strings.TrimSpace(s.Text()) != "" {
				return
			}
			if s.Children().Length() > 0 {
				return
			}
			s.Remove()
			changed = true
		})
		if !changed {
			break
		}
	}
}
