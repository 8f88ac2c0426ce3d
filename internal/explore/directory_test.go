package explore

import (
	"reflect"
	"testing"
)

func TestIsLikelyDirectory(t *testing.T) {
	tests := []struct {
		url   string
		count string
		want  bool
	}{
		{"https://www.kidsoutandabout.com/portland", "", true},
		{"https://mommypoppins.com/anything", "", true},
		{"https://example.com/best-summer-camps-2026", "", true},
		{"https://example.com/guide/camps", "", true},
		{"https://example.com/about", "50", true},
		{"https://example.com/about", "12", false},
		{"https://trackersearth.com/camps", "", false},
		{"://bad", "", false},
	}

	for _, tt := range tests {
		if got := IsLikelyDirectory(tt.url, tt.count); got != tt.want {
			t.Errorf("IsLikelyDirectory(%q, %q) = %v, want %v", tt.url, tt.count, got, tt.want)
		}
	}
}

func TestFilterDirectoryLinks(t *testing.T) {
	base := "https://www.parentmap.com/camps-guide"
	raw := []RawLink{
		{URL: "https://trackersearth.com/summer", Name: "Trackers Earth"},
		{URL: "https://trackersearth.com/portland", Name: "Trackers Portland"},
		{URL: "https://omsi.edu/camps", Name: "OMSI Camps"},
		{URL: "/camps/rock-climbing-camp", Name: "Rock Climbing Camp"},
		{URL: "/camps/rock-climbing-camp", Name: "Rock Climbing Camp"},
		{URL: "/search?q=camps", Name: "Search"},
		{URL: "https://facebook.com/parentmap", Name: "Facebook"},
		{URL: "mailto:info@parentmap.com", Name: "Email us"},
		{URL: "#top", Name: "Back to top"},
		{URL: "/brochure.pdf", Name: "Brochure"},
	}

	links := FilterDirectoryLinks(base, raw)

	var externals, internals []string
	for _, l := range links {
		if l.IsInternal {
			internals = append(internals, l.URL)
		} else {
			externals = append(externals, l.URL)
		}
	}

	wantExternals := []string{"https://trackersearth.com/summer", "https://omsi.edu/camps"}
	if !reflect.DeepEqual(externals, wantExternals) {
		t.Fatalf("externals = %v, want %v", externals, wantExternals)
	}

	wantInternals := []string{"https://www.parentmap.com/camps/rock-climbing-camp"}
	if !reflect.DeepEqual(internals, wantInternals) {
		t.Fatalf("internals = %v, want %v", internals, wantInternals)
	}
}

func TestFilterDirectoryLinksIdempotent(t *testing.T) {
	base := "https://www.parentmap.com/camps-guide"
	raw := []RawLink{
		{URL: "https://trackersearth.com/summer", Name: "Trackers Earth"},
		{URL: "/camps/forest-camp", Name: "Forest Camp"},
	}

	first := FilterDirectoryLinks(base, raw)
	second := FilterDirectoryLinks(base, raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("filter is not deterministic: %v vs %v", first, second)
	}
}
