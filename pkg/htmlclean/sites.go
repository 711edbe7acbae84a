package htmlclean

// siteRules holds the per-source selectors the Cleaner consults in
// addition to the defaults shared by every source, grounded on
// original_source/webnovel_archiver/core/parsers/html_cleaner.py's
// royalroad_selectors_to_remove and main-content extraction.
type siteRules struct {
	// mainContentSelector isolates the chapter body before cleaning, if
	// present. Empty means "clean the whole document".
	mainContentSelector string

	// removeSelectors strips source-specific clutter: author notes,
	// comment sections, ad containers, rating widgets.
	removeSelectors []string
}

var rulesBySite = map[string]siteRules{
	"royalroad.com": {
		mainContentSelector: ".chapter-content",
		removeSelectors: []string{
			".author-notes-start", ".author-notes-end",
			".comments-area", "#comments", ".comment-section",
			".rating-section", ".star-rating",
			".patreon-button", ".subscribe-button",
			".portlet",
			"div[id*=nitro-ad]", "div[class*=nitro-ad]",
			"div[class*=ad-container]",
		},
	},
}

func rulesFor(sourceSite string) siteRules {
	return rulesBySite[sourceSite]
}
