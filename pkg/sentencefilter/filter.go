// Package sentencefilter implements the Sentence Filter (spec.md §4.3):
// it strips operator-configured sentences and regex patterns from a
// chapter's text nodes, grounded on
// original_source/webnovel_archiver/core/modifiers/sentence_remover.py.
// Go has no BeautifulSoup equivalent that exposes a flat text-node
// walk, so this package parses with golang.org/x/net/html (the tree
// goquery itself is built on) and walks it directly.
package sentencefilter

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

var skipTextParents = map[string]bool{"script": true, "style": true}

var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true,
}

var rootElements = map[string]bool{"html": true, "head": true, "body": true}

// Filter removes cfg's configured sentences and patterns from rawHTML's
// text nodes, then collapses any container left empty by the removal,
// bottom-up. A parse failure or an empty Config returns rawHTML
// unchanged rather than erroring.
func Filter(rawHTML string, cfg Config) string {
	if len(cfg.RemoveSentences) == 0 && len(cfg.RemovePatterns) == 0 {
		return rawHTML
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	applyTextRules(doc, cfg)
	trimEmptyContainers(doc)

	body := findNode(doc, "body")
	if body == nil {
		body = doc
	}

	var buf bytes.Buffer
	// The parser moves a fragment's leading script/style elements into
	// head; render them as well so they are not dropped from the output.
	if head := findNode(doc, "head"); head != nil && body != doc {
		for c := head.FirstChild; c != nil; c = c.NextSibling {
			_ = html.Render(&buf, c)
		}
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return strings.TrimSpace(buf.String())
}

func applyTextRules(n *html.Node, cfg Config) {
	if n.Type == html.TextNode && !(n.Parent != nil && skipTextParents[n.Parent.Data]) {
		n.Data = applyRules(n.Data, cfg)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		applyTextRules(c, cfg)
	}
}

func applyRules(text string, cfg Config) string {
	for _, sentence := range cfg.RemoveSentences {
		text = strings.ReplaceAll(text, sentence, "")
	}
	for _, pattern := range cfg.RemovePatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return text
}

// trimEmptyContainers recurses to the leaves first so that removing an
// empty child can make its parent empty in turn, then strips any
// non-void, non-root element left with no text and no children.
func trimEmptyContainers(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode {
			trimEmptyContainers(child)
			if isEmptyElement(child) {
				n.RemoveChild(child)
			}
		}
		child = next
	}
}

func isEmptyElement(n *html.Node) bool {
	if voidElements[n.Data] || rootElements[n.Data] {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

func findNode(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, tag); found != nil {
			return found
		}
	}
	return nil
}
