package discovery

import (
	"reflect"
	"testing"

	"campscout/internal/search"
)

func TestCollectorDedupesByDomain(t *testing.T) {
	c := NewCollector()

	hits := []search.Result{
		{Title: "Trackers Earth | Summer Camps", URL: "https://trackersearth.com/camps"},
		{Title: "Trackers Earth Portland", URL: "https://www.trackersearth.com/portland"},
		{Title: "OMSI Camps", URL: "https://omsi.edu/camps-classes"},
	}
	for _, h := range hits {
		c.Add(h)
	}

	want := []string{"https://trackersearth.com/camps", "https://omsi.edu/camps-classes"}
	if !reflect.DeepEqual(c.URLs, want) {
		t.Fatalf("URLs = %v, want %v", c.URLs, want)
	}
}

func TestCollectorDenyList(t *testing.T) {
	c := NewCollector()

	for _, u := range []string{
		"https://www.google.com/search?q=camps",
		"https://en.wikipedia.org/wiki/Summer_camp",
		"https://www.yelp.com/search?find_desc=camps",
		"https://www.facebook.com/somecamp",
	} {
		if c.Add(search.Result{URL: u}) {
			t.Errorf("deny-listed URL accepted: %s", u)
		}
	}
	if c.Found() != 0 {
		t.Fatalf("Found() = %d, want 0", c.Found())
	}
}

func TestCollectorRoutesDirectories(t *testing.T) {
	c := NewCollector()

	c.Add(search.Result{Title: "Best Summer Camps in Portland", URL: "https://portlandmag.com/best-summer-camps"})
	c.Add(search.Result{Title: "ParentMap Camps", URL: "https://www.parentmap.com/camps"})
	c.Add(search.Result{Title: "Trackers Earth", URL: "https://trackersearth.com"})

	if len(c.DirectoryURLs) != 2 {
		t.Fatalf("DirectoryURLs = %v, want 2 entries", c.DirectoryURLs)
	}
	if len(c.URLs) != 1 {
		t.Fatalf("URLs = %v, want 1 entry", c.URLs)
	}
}

func TestCollectorStripsTracking(t *testing.T) {
	c := NewCollector()
	c.Add(search.Result{URL: "https://example.com/camps?utm_source=g&utm_campaign=x&fbclid=abc&page=2#section"})

	if len(c.URLs) != 1 {
		t.Fatalf("URLs = %v", c.URLs)
	}
	if c.URLs[0] != "https://example.com/camps?page=2" {
		t.Fatalf("normalized = %q", c.URLs[0])
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Trackers Earth | Summer Camps Portland", "Trackers Earth"},
		{"OMSI Camps - Registration", "OMSI Camps"},
		{"ab", ""},
		{"Camp Fire Columbia", "Camp Fire Columbia"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComboQueries(t *testing.T) {
	names := []string{"Trackers Earth", "OMSI", "Steve and Kate's", "Camp Fire"}
	queries := comboQueries(names, "Portland")

	if len(queries) != 2 {
		t.Fatalf("queries = %v, want 2", queries)
	}
	if queries[0] != `"Trackers Earth" "OMSI" Portland summer camps` {
		t.Fatalf("first combo = %q", queries[0])
	}
}
