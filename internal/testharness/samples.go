package testharness

import (
	"encoding/json"
	"fmt"
	"strings"

	"campscout/internal/backend"
)

// rawSample tolerates the field spellings generated scrapers actually
// emit: dates as a single string or a start/end pair, ages as a string
// or a numeric min/max pair, price as a string or cents.
type rawSample struct {
	Name      string          `json:"name"`
	Dates     string          `json:"dates"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Location  string          `json:"location"`
	Ages      string          `json:"ages"`
	MinAge    *int            `json:"minAge"`
	MaxAge    *int            `json:"maxAge"`
	Price     json.RawMessage `json:"price"`
	Available *bool           `json:"available"`
}

func (r rawSample) normalize() backend.TestSample {
	s := backend.TestSample{
		Name:      r.Name,
		Dates:     r.Dates,
		Location:  r.Location,
		Ages:      r.Ages,
		Available: true,
	}

	if s.Dates == "" && r.StartDate != "" {
		s.Dates = r.StartDate
		if r.EndDate != "" {
			s.Dates += " to " + r.EndDate
		}
	}

	if s.Ages == "" {
		switch {
		case r.MinAge != nil && r.MaxAge != nil:
			s.Ages = fmt.Sprintf("%d-%d", *r.MinAge, *r.MaxAge)
		case r.MinAge != nil:
			s.Ages = fmt.Sprintf("%d+", *r.MinAge)
		}
	}

	if len(r.Price) > 0 {
		var asString string
		if err := json.Unmarshal(r.Price, &asString); err == nil {
			s.Price = asString
		} else {
			var cents int
			if err := json.Unmarshal(r.Price, &cents); err == nil {
				s.Price = fmt.Sprintf("$%d.%02d", cents/100, cents%100)
			}
		}
	}

	if r.Available != nil {
		s.Available = *r.Available
	}

	return s
}

// normalizeSamples converts up to limit raw sessions into sample
// records, dropping entries with no usable name or dates.
func normalizeSamples(raw []rawSample, limit int) []backend.TestSample {
	out := make([]backend.TestSample, 0, limit)
	for _, r := range raw {
		if len(out) >= limit {
			break
		}
		s := r.normalize()
		if strings.TrimSpace(s.Name) == "" && strings.TrimSpace(s.Dates) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
