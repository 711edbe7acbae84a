package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/joskode/wna/pkg/wnaerr"
)

// permanentIDPattern extracts the numeric fiction ID from a RoyalRoad
// story or chapter URL, e.g. https://www.royalroad.com/fiction/12345/slug.
var permanentIDPattern = regexp.MustCompile(`/fiction/(\d+)`)

// RoyalRoad implements Source against royalroad.com using colly, exactly
// the library other_examples/ac28db71_mdepp-ebook-scraper's
// scrapeRoyalRoad is built on; selectors below are taken verbatim from
// that reference (.fic-title h1, .fic-title h4 a,
// .fic-header img[data-type="cover"], #chapters tr td:nth-child(1) a,
// .chapter-content).
type RoyalRoad struct {
	base *colly.Collector
}

func NewRoyalRoad(minInterval time.Duration) *RoyalRoad {
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}

	base := colly.NewCollector(colly.UserAgent(userAgent))
	base.Limit(&colly.LimitRule{DomainGlob: "*royalroad.com", Delay: minInterval, Parallelism: 1})
	base.SetRequestTimeout(15 * time.Second)

	return &RoyalRoad{base: base}
}

func (r *RoyalRoad) SiteName() string { return "royalroad.com" }

func (r *RoyalRoad) PermanentID(storyURL string) (string, error) {
	m := permanentIDPattern.FindStringSubmatch(storyURL)
	if m == nil {
		return "", &wnaerr.MalformedURL{URL: storyURL}
	}
	return "royalroad-" + m[1], nil
}

// newCollector clones r.base so each fetch gets its own OnHTML/OnError
// closures without disturbing other in-flight fetches, while every
// clone shares base's rate limiter: colly only coordinates Delay and
// Parallelism across Visit calls made through collectors descended from
// the same parent, so a single shared base is required for the per-host
// limit to actually bound concurrent workers (mdepp-ebook-scraper's
// scrapeRoyalRoad is built the same way, cloning one baseCollector).
func (r *RoyalRoad) newCollector() *colly.Collector {
	return r.base.Clone()
}

const userAgent = "wna-archiver/1.0 (+https://github.com/joskode/wna)"

func classifyStatus(statusCode int, op, url string) error {
	switch {
	case statusCode == http.StatusNotFound:
		return &wnaerr.ChapterGone{URL: url}
	case statusCode >= 500:
		return &wnaerr.NetworkError{Op: op, Err: fmt.Errorf("status %d", statusCode)}
	case statusCode >= 400:
		return &wnaerr.ParseError{Op: op, Err: fmt.Errorf("status %d", statusCode)}
	default:
		return nil
	}
}

func (r *RoyalRoad) Metadata(ctx context.Context, storyURL string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, &wnaerr.Cancelled{Op: "fetch metadata"}
	}

	var meta Metadata
	var fetchErr error

	c := r.newCollector()
	c.OnHTML("html", func(e *colly.HTMLElement) {
		cover := e.Request.AbsoluteURL(e.ChildAttr(`.fic-header img[data-type="cover"]`, "src"))
		if strings.Contains(cover, "/nocover") {
			cover = ""
		}
		cover = strings.ReplaceAll(cover, "covers-full", "covers-large")

		meta = Metadata{
			Title:                        strings.TrimSpace(e.ChildText(".fic-title h1")),
			Author:                       strings.TrimSpace(e.ChildText(".fic-title h4 a")),
			CoverURL:                     cover,
			Synopsis:                     strings.TrimSpace(childHTML(e, ".description .hidden-content")),
			EstimatedTotalChaptersSource: e.DOM.Find("#chapters tbody tr").Length(),
		}
	})
	c.OnError(func(resp *colly.Response, err error) {
		if ce := classifyStatus(resp.StatusCode, "fetch metadata", storyURL); ce != nil {
			fetchErr = ce
			return
		}
		fetchErr = &wnaerr.NetworkError{Op: "fetch metadata", Err: err}
	})

	if err := c.Visit(storyURL); err != nil && fetchErr == nil {
		fetchErr = &wnaerr.NetworkError{Op: "fetch metadata", Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return Metadata{}, fetchErr
	}
	return meta, nil
}

func (r *RoyalRoad) Manifest(ctx context.Context, storyURL string) ([]ChapterStub, error) {
	if err := ctx.Err(); err != nil {
		return nil, &wnaerr.Cancelled{Op: "fetch manifest"}
	}

	var stubs []ChapterStub
	var fetchErr error

	c := r.newCollector()
	c.OnHTML("#chapters", func(e *colly.HTMLElement) {
		e.ForEach("tr td:nth-child(1) a", func(i int, a *colly.HTMLElement) {
			abs := e.Request.AbsoluteURL(a.Attr("href"))
			stubs = append(stubs, ChapterStub{
				SourceChapterID: chapterIDFromURL(abs),
				ChapterURL:      abs,
				ChapterTitle:    strings.TrimSpace(a.Text),
				SourceOrder:     i,
			})
		})
	})
	c.OnError(func(resp *colly.Response, err error) {
		if ce := classifyStatus(resp.StatusCode, "fetch manifest", storyURL); ce != nil {
			fetchErr = ce
			return
		}
		fetchErr = &wnaerr.NetworkError{Op: "fetch manifest", Err: err}
	})

	if err := c.Visit(storyURL); err != nil && fetchErr == nil {
		fetchErr = &wnaerr.NetworkError{Op: "fetch manifest", Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	return stubs, nil
}

func (r *RoyalRoad) ChapterBody(ctx context.Context, chapterURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &wnaerr.Cancelled{Op: "fetch chapter"}
	}

	var body string
	var found bool
	var fetchErr error

	c := r.newCollector()
	c.OnHTML("html", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(".fic-header h1"))
		content := childHTML(e, ".chapter-content")
		if content == "" {
			return
		}
		found = true
		body = "<h2>" + title + "</h2>" + content
	})
	c.OnError(func(resp *colly.Response, err error) {
		if ce := classifyStatus(resp.StatusCode, "fetch chapter", chapterURL); ce != nil {
			fetchErr = ce
			return
		}
		fetchErr = &wnaerr.NetworkError{Op: "fetch chapter", Err: err}
	})

	if err := c.Visit(chapterURL); err != nil && fetchErr == nil {
		fetchErr = &wnaerr.NetworkError{Op: "fetch chapter", Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if !found {
		// Sentinel "not found": the expected content container is absent.
		return "", &wnaerr.ChapterGone{URL: chapterURL}
	}
	return body, nil
}

func (r *RoyalRoad) ProbeNext(ctx context.Context, chapterURL string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &wnaerr.Cancelled{Op: "probe next chapter"}
	}

	var next string
	var found bool

	c := r.newCollector()
	c.OnHTML("a.btn-next, a[rel='next']", func(e *colly.HTMLElement) {
		if found {
			return
		}
		href := e.Attr("href")
		if href == "" {
			return
		}
		next = e.Request.AbsoluteURL(href)
		found = true
	})
	c.OnError(func(resp *colly.Response, err error) {
		// Best-effort: swallow errors, report not-found.
	})

	if err := c.Visit(chapterURL); err != nil {
		return "", false, nil
	}
	c.Wait()

	return next, found, nil
}

func childHTML(e *colly.HTMLElement, selector string) string {
	html, err := e.DOM.Find(selector).Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

func chapterIDFromURL(u string) string {
	parts := strings.Split(strings.TrimRight(u, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if _, err := strconv.Atoi(parts[i]); err == nil {
			return parts[i]
		}
	}
	return u
}
