package sources

import (
	"testing"
	"time"

	"github.com/joskode/wna/pkg/wnaerr"
)

func TestDispatch_For(t *testing.T) {
	d := NewDispatch(time.Millisecond)

	s, err := d.For("https://www.royalroad.com/fiction/1/test")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if s.SiteName() != "royalroad.com" {
		t.Errorf("SiteName() = %q", s.SiteName())
	}

	if _, err := d.For("https://royalroad.com/fiction/1/test"); err != nil {
		t.Errorf("For() bare host error = %v", err)
	}

	t.Run("unsupported host", func(t *testing.T) {
		_, err := d.For("https://example.com/story/1")
		if _, ok := err.(*wnaerr.UnsupportedSource); !ok {
			t.Errorf("For() error type = %T, want *wnaerr.UnsupportedSource", err)
		}
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := d.For("://not a url")
		if _, ok := err.(*wnaerr.MalformedURL); !ok {
			t.Errorf("For() error type = %T, want *wnaerr.MalformedURL", err)
		}
	})
}

func TestDispatch_Register(t *testing.T) {
	d := &Dispatch{byHost: make(map[string]Source)}
	d.Register("example.com", NewRoyalRoad(time.Millisecond))

	s, err := d.For("https://example.com/fiction/1/test")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if s == nil {
		t.Fatal("For() returned nil source")
	}
}
