package sources

import (
	"net/url"
	"time"

	"github.com/joskode/wna/pkg/wnaerr"
)

// Dispatch resolves a Source by the story URL's host. It is built once
// per run (not a package-level global) so tests can register fakes.
type Dispatch struct {
	byHost map[string]Source
}

// NewDispatch wires the one reference adapter this module implements
// end to end (RoyalRoad), rate-limited per host via colly's own
// colly.LimitRule rather than the shared httpclient.Client, which is
// reserved for the EPUB Builder's plain cover-image download.
func NewDispatch(minInterval time.Duration) *Dispatch {
	d := &Dispatch{byHost: make(map[string]Source)}
	rr := NewRoyalRoad(minInterval)
	d.Register("www.royalroad.com", rr)
	d.Register("royalroad.com", rr)
	return d
}

func (d *Dispatch) Register(host string, s Source) {
	d.byHost[host] = s
}

// For resolves the Source for storyURL, or *wnaerr.UnsupportedSource.
func (d *Dispatch) For(storyURL string) (Source, error) {
	u, err := url.Parse(storyURL)
	if err != nil {
		return nil, &wnaerr.MalformedURL{URL: storyURL}
	}
	s, ok := d.byHost[u.Host]
	if !ok {
		return nil, &wnaerr.UnsupportedSource{Host: u.Host}
	}
	return s, nil
}
