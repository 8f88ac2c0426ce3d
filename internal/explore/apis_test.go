package explore

import (
	"strings"
	"testing"

	"campscout/internal/browser"
)

func TestGeneralizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "https://api.example.com/v1/camps/12345/sessions",
			want: "https://api.example.com/v1/camps/{id}/sessions",
		},
		{
			in:   "https://api.example.com/orgs/550e8400-e29b-41d4-a716-446655440000",
			want: "https://api.example.com/orgs/{uuid}",
		},
		{
			in:   "https://api.example.com/docs/5f2b8c3d9e1a7b6c5d4e3f2a",
			want: "https://api.example.com/docs/{objectId}",
		},
		{
			in:   "https://api.example.com/search?page=2&siteId=77",
			want: "https://api.example.com/search?page=2&siteId=77",
		},
	}

	for _, tt := range tests {
		if got := GeneralizeURL(tt.in); got != tt.want {
			t.Errorf("GeneralizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreResponsesFiltersAndSorts(t *testing.T) {
	responses := []browser.SniffedResponse{
		{
			URL:         "https://example.com/api/activities",
			Method:      "GET",
			ContentType: "application/json",
			Body:        `[{"name":"Trackers Forest Camp","price":35000,"session":"week 1","age":7}]`,
		},
		{
			URL:         "https://example.com/api/analytics",
			Method:      "POST",
			ContentType: "application/json",
			Body:        `{"event":"pageview","ts":1700000000}`,
		},
		{
			URL:         "https://example.com/api/catalog",
			Method:      "GET",
			ContentType: "application/json",
			Body:        `{"camps":["trackers","trackers","trackers"],"registration":"open","price":1,"cost":2,"age":3}`,
		},
	}

	apis := ScoreResponses(responses, []string{"trackers"})
	if len(apis) != 2 {
		t.Fatalf("expected 2 kept responses, got %d", len(apis))
	}
	for i := 1; i < len(apis); i++ {
		if apis[i-1].MatchCount < apis[i].MatchCount {
			t.Fatalf("apis not sorted by matchCount desc: %d before %d",
				apis[i-1].MatchCount, apis[i].MatchCount)
		}
	}
	if apis[0].URL != "https://example.com/api/catalog" {
		t.Fatalf("strongest candidate should lead, got %s", apis[0].URL)
	}
}

func TestStructureHint(t *testing.T) {
	if got := structureHint(`[1,2,3]`); got != "Array[3]" {
		t.Errorf("array hint = %q", got)
	}
	got := structureHint(`{"b":1,"a":2}`)
	if got != "Object with keys: a, b" {
		t.Errorf("object hint = %q", got)
	}
	if got := structureHint(`"just a string"`); got != "" {
		t.Errorf("scalar hint = %q, want empty", got)
	}
}

func TestSampleDataTruncation(t *testing.T) {
	body := `{"k":"` + strings.Repeat("x", 5000) + `"}`
	got := sampleData(body)
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Fatalf("oversized sample should be marked truncated")
	}
	if len(got) > sampleDataLimit+32 {
		t.Fatalf("sample not truncated: %d bytes", len(got))
	}
}
