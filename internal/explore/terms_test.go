package explore

import (
	"reflect"
	"testing"
)

func TestDeriveSearchTerms(t *testing.T) {
	tests := []struct {
		name       string
		sourceName string
		sourceURL  string
		want       []string
	}{
		{
			name:       "name tokens with stopwords removed",
			sourceName: "Trackers Earth Summer Camps",
			sourceURL:  "https://trackersearth.com",
			want:       []string{"trackers", "earth"},
		},
		{
			name:       "url path contributes tokens",
			sourceName: "OMSI",
			sourceURL:  "https://omsi.edu/camps-classes/registration",
			want:       []string{"omsi", "registration"},
		},
		{
			name:       "capped at five terms",
			sourceName: "alpha bravo charlie delta echo foxtrot golf",
			sourceURL:  "https://example.com",
			want:       []string{"alpha", "bravo", "charlie", "delta", "echo"},
		},
		{
			name:       "short tokens dropped",
			sourceName: "Go 4H It Camp",
			sourceURL:  "https://example.org/enroll",
			want:       []string{"enroll"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSearchTerms(tt.sourceName, tt.sourceURL)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DeriveSearchTerms(%q, %q) = %v, want %v", tt.sourceName, tt.sourceURL, got, tt.want)
			}
		})
	}
}

func TestDeriveSearchTermsDeterministic(t *testing.T) {
	a := DeriveSearchTerms("Steve & Kate's Camp", "https://steveandkatescamp.com/portland")
	b := DeriveSearchTerms("Steve & Kate's Camp", "https://steveandkatescamp.com/portland")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same inputs produced different terms: %v vs %v", a, b)
	}
}
