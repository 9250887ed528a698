package pagescan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watchOnly treats any URL containing "watch/" as media and canonicalises
// it to its last path segment.
func watchOnly(raw string) string {
	i := strings.Index(raw, "watch/")
	if i < 0 {
		return ""
	}
	return "media:" + raw[i+len("watch/"):]
}

const page = `<html><body>
<iframe src="https://video.example/watch/one"></iframe>
<iframe src="https://ads.example/banner"></iframe>
<a href="/watch/two">relative</a>
<a href="https://video.example/watch/one">duplicate</a>
<a href="https://other.example/">other</a>
</body></html>`

func TestFindLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s := NewScanner(watchOnly, 0)
	links, err := s.FindLinks(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, []string{"media:one", "media:two"}, links)
}

func TestFindLinksShortCircuitsMediaURL(t *testing.T) {
	s := NewScanner(watchOnly, 0)
	links, err := s.FindLinks(context.Background(), "https://video.example/watch/direct")
	require.NoError(t, err)
	assert.Equal(t, []string{"media:direct"}, links)
}

func TestFindLinksErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewScanner(watchOnly, 0)
	_, err := s.FindLinks(context.Background(), srv.URL)
	assert.Error(t, err)

	_, err = s.FindLinks(context.Background(), "mailto:someone")
	assert.Error(t, err)
}

func TestFindLinksEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	links, err := NewScanner(watchOnly, 0).FindLinks(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, links)
}
